package signal

import (
	"time"

	"github.com/joeycumines/go-catrate"
)

// warnLimiter bounds how often this package's warning log lines fire,
// keyed by category: a signal storm hammering Register with a
// cross-reactor takeover, or a wedged pipe fd producing a fatal recv
// error on every readable edge, must not be able to flood the host's
// log sink. Ten warnings per second and sixty per minute, per category,
// is generous enough that a single real warning is never dropped while
// still bounding a pathological burst.
var warnLimiter = catrate.NewLimiter(map[time.Duration]int{
	time.Second: 10,
	time.Minute: 60,
})

// rateLimitedWarn reports whether a warning in category should actually
// be emitted right now, consuming one token from warnLimiter if so.
func rateLimitedWarn(category string) bool {
	_, ok := warnLimiter.Allow(category)
	return ok
}
