// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

// baseOptions holds configuration options for Base creation.
type baseOptions struct {
	logger           Logger
	lockDebugging    bool
	maxSignalPerTick int
}

// Option configures a Base instance.
type Option interface {
	applyBase(*baseOptions) error
}

// optionImpl implements Option.
type optionImpl struct {
	applyFunc func(*baseOptions) error
}

func (o *optionImpl) applyBase(opts *baseOptions) error {
	return o.applyFunc(opts)
}

// WithLogger sets the structured logger used by the base and anything
// wired through it (the signal bridge, in particular).
// Defaults to a no-op logger.
func WithLogger(logger Logger) Option {
	return &optionImpl{func(opts *baseOptions) error {
		if logger != nil {
			opts.logger = logger
		}
		return nil
	}}
}

// WithLockDebugging enables debug-mode assertions on the base's main
// lock via the thread package's debug lock wrapper.
func WithLockDebugging(enabled bool) Option {
	return &optionImpl{func(opts *baseOptions) error {
		opts.lockDebugging = enabled
		return nil
	}}
}

// WithMaxSignalsPerTick caps the activation multiplicity n delivered to a
// signal event's SignalCallback in a single drain-and-dispatch pass: a
// signum that arrived 10000 times since the last drain still invokes its
// callback only n times, bounding tail latency under a signal storm. Zero
// (the default) means unlimited.
func WithMaxSignalsPerTick(n int) Option {
	return &optionImpl{func(opts *baseOptions) error {
		opts.maxSignalPerTick = n
		return nil
	}}
}

// resolveOptions applies Option instances to baseOptions.
func resolveOptions(opts []Option) (*baseOptions, error) {
	cfg := &baseOptions{
		logger: NoOpLogger{},
	}
	for _, opt := range opts {
		if opt == nil {
			continue // skip nil options gracefully
		}
		if err := opt.applyBase(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
