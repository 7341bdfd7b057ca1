package signal

// drainAndDispatch is the bridge event's callback (component F): called
// from the host reactor whenever the self-pipe's read end is readable,
// never from a signal context. It drains every available byte, counts
// occurrences per signal number, then activates each corresponding
// user event with that count as multiplicity, matching
// libevent's evsig_cb/drain_and_dispatch.
func (b *Bridge) drainAndDispatch() {
	var ncaught [NSIG]int

	buf := make([]byte, 1024)
	for {
		n, err := readSelfPipe(b.pipeRXSnapshot(), buf)
		if n <= 0 {
			if err != nil && !isRetryable(err) && rateLimitedWarn("drain-fatal") {
				logWarn(b.host, 0, "signal: fatal error draining self-pipe: "+err.Error())
			}
			break
		}
		for i := 0; i < n; i++ {
			sig := int(buf[i])
			if sig < NSIG {
				ncaught[sig]++
			}
		}
	}

	b.host.Lock()
	for sig, count := range ncaught {
		if count > 0 {
			b.host.SignalActive(sig, count)
		}
	}
	b.host.Unlock()
}

// pipeRXSnapshot reads the current read-end fd under the bridge's own
// lock; drainAndDispatch always runs on the host's loop thread, but the
// fd is still read through the lock for consistency with the rest of
// SignalInfo's access discipline.
func (b *Bridge) pipeRXSnapshot() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.info.pipeRX
}
