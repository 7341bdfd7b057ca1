// Package logifaceadapter wires this module's own [reactor.Logger]
// interface to github.com/joeycumines/logiface, so every warning and
// diagnostic this core emits (signal re-registration, a wedged pipe fd,
// a poll error) can be routed through any logiface-compatible backend —
// stumpy, zerolog, logrus, or a hand-rolled one — instead of only
// reactor's own built-in DefaultLogger/WriterLogger.
package logifaceadapter

import (
	reactor "github.com/joeycumines/go-eventloop"
	"github.com/joeycumines/logiface"
)

// event is the concrete logiface.Event this adapter feeds to a
// logiface.Logger; it accumulates exactly what reactor.LogEntry needs,
// nothing more.
type event struct {
	logiface.UnimplementedEvent
	level  logiface.Level
	msg    string
	err    error
	fields map[string]any
}

func (e *event) Level() logiface.Level { return e.level }

func (e *event) AddField(key string, val any) {
	if e.fields == nil {
		e.fields = make(map[string]any, 4)
	}
	e.fields[key] = val
}

func (e *event) AddMessage(msg string) bool {
	e.msg = msg
	return true
}

func (e *event) AddError(err error) bool {
	e.err = err
	return true
}

type eventFactory struct{}

func (eventFactory) NewEvent(level logiface.Level) logiface.Event {
	return &event{level: level}
}

// Logger adapts a logiface sink into a reactor.Logger.
type Logger struct {
	inner *logiface.Logger[logiface.Event]
}

// NewLogifaceLogger builds a reactor.Logger that accumulates each
// reactor.LogEntry into a logiface.Event and writes it through w —
// typically a generified backend obtained via that backend's own
// Logger().Logger() call (see stumpy/zerolog/logrus). minLevel gates
// both the underlying logiface.Logger and this adapter's IsEnabled.
func NewLogifaceLogger(w logiface.Writer[logiface.Event], minLevel logiface.Level) *Logger {
	return &Logger{
		inner: logiface.New[logiface.Event](
			logiface.WithEventFactory[logiface.Event](eventFactory{}),
			logiface.WithWriter[logiface.Event](w),
			logiface.WithLevel[logiface.Event](minLevel),
		),
	}
}

// NewLogifaceLoggerTo builds a reactor.Logger that flows every entry
// through a logiface.Logger before handing it to out — an existing
// reactor.Logger such as reactor.NewDefaultLogger — so out's level
// gating and rendering are reused while the entry still passes through
// logiface's own Level/canLog machinery first.
func NewLogifaceLoggerTo(out reactor.Logger, minLevel logiface.Level) *Logger {
	return NewLogifaceLogger(reactorWriter{out: out}, minLevel)
}

// IsEnabled implements reactor.Logger.
func (l *Logger) IsEnabled(level reactor.LogLevel) bool {
	lvl := toLogifaceLevel(level)
	cur := l.inner.Level()
	return lvl.Enabled() && (lvl <= cur || lvl > logiface.LevelTrace)
}

// Log implements reactor.Logger: it replays entry's fields into a fresh
// logiface.Event via Logger.Log's direct (non-builder) path, so this
// adapter needs no dependency on the fluent Builder/Context chain.
func (l *Logger) Log(entry reactor.LogEntry) {
	level := toLogifaceLevel(entry.Level)
	_ = l.inner.Log(level, logiface.ModifierFunc[logiface.Event](func(e logiface.Event) error {
		e.AddField("category", entry.Category)
		if entry.SignalNum != 0 {
			e.AddField("signal", entry.SignalNum)
		}
		for k, v := range entry.Context {
			e.AddField(k, v)
		}
		if entry.Err != nil {
			e.AddError(entry.Err)
		}
		e.AddMessage(entry.Message)
		return nil
	}))
}

// reactorWriter adapts an existing reactor.Logger into a
// logiface.Writer[logiface.Event], closing the loop for
// NewLogifaceLoggerTo.
type reactorWriter struct {
	out reactor.Logger
}

func (w reactorWriter) Write(e logiface.Event) error {
	ev, ok := e.(*event)
	if !ok || w.out == nil {
		return nil
	}

	level := fromLogifaceLevel(ev.level)
	if !w.out.IsEnabled(level) {
		return nil
	}

	category := "logiface"
	context := make(map[string]any, len(ev.fields))
	signalNum := 0
	for k, v := range ev.fields {
		switch {
		case k == "category":
			if s, ok := v.(string); ok && s != "" {
				category = s
			}
		case k == "signal":
			if n, ok := v.(int); ok {
				signalNum = n
			}
		default:
			context[k] = v
		}
	}

	w.out.Log(reactor.LogEntry{
		Level:     level,
		Category:  category,
		SignalNum: signalNum,
		Context:   context,
		Message:   ev.msg,
		Err:       ev.err,
	})
	return nil
}

// toLogifaceLevel maps reactor's four-level scale onto logiface's
// syslog-derived scale.
func toLogifaceLevel(level reactor.LogLevel) logiface.Level {
	switch level {
	case reactor.LevelDebug:
		return logiface.LevelDebug
	case reactor.LevelInfo:
		return logiface.LevelInformational
	case reactor.LevelWarn:
		return logiface.LevelWarning
	case reactor.LevelError:
		return logiface.LevelError
	default:
		return logiface.LevelInformational
	}
}

// fromLogifaceLevel maps a logiface.Level back onto reactor's coarser
// four-level scale, rounding any syslog level more severe than Error
// (Critical, Alert, Emergency) up to reactor.LevelError and anything
// less severe than Debug (Trace, custom levels) down to reactor.LevelDebug.
func fromLogifaceLevel(level logiface.Level) reactor.LogLevel {
	switch {
	case level <= logiface.LevelError:
		return reactor.LevelError
	case level <= logiface.LevelWarning:
		return reactor.LevelWarn
	case level <= logiface.LevelInformational:
		return reactor.LevelInfo
	default:
		return reactor.LevelDebug
	}
}
