// Package notify delivers user-facing alerts. Delivery is fire-and-forget:
// a notifier never reports failure back to the engine.
package notify

import (
	"log/slog"
	"sync"
	"time"
)

// Notifier delivers one alert. dedupeKey groups alerts that describe the same
// condition; an empty key is never deduplicated.
type Notifier interface {
	Notify(title, body, dedupeKey string)
}

// Func adapts a plain function to Notifier.
type Func func(title, body, dedupeKey string)

func (f Func) Notify(title, body, dedupeKey string) { f(title, body, dedupeKey) }

// Nop discards every alert.
var Nop Notifier = Func(func(string, string, string) {})

// Multi fans an alert out to every notifier in order.
type Multi []Notifier

func (m Multi) Notify(title, body, dedupeKey string) {
	for _, n := range m {
		if n != nil {
			n.Notify(title, body, dedupeKey)
		}
	}
}

// Log writes alerts to a structured logger.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) Notify(title, body, dedupeKey string) {
	l.logger.Info("alert", "title", title, "body", body, "key", dedupeKey)
}

// Dedupe drops an alert whose key was delivered less than window ago.
type Dedupe struct {
	next   Notifier
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	last map[string]time.Time
}

// DedupeOption configures a Dedupe.
type DedupeOption func(*Dedupe)

// WithClock overrides the time source.
func WithClock(now func() time.Time) DedupeOption {
	return func(d *Dedupe) { d.now = now }
}

func NewDedupe(next Notifier, window time.Duration, opts ...DedupeOption) *Dedupe {
	d := &Dedupe{
		next:   next,
		window: window,
		now:    time.Now,
		last:   make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dedupe) Notify(title, body, dedupeKey string) {
	if dedupeKey != "" && d.window > 0 {
		d.mu.Lock()
		now := d.now()
		if at, ok := d.last[dedupeKey]; ok && now.Sub(at) < d.window {
			d.mu.Unlock()
			return
		}
		d.last[dedupeKey] = now
		d.mu.Unlock()
	}
	d.next.Notify(title, body, dedupeKey)
}

// Alert is one delivered notification.
type Alert struct {
	Title string
	Body  string
	Key   string
}

// Recorder keeps every alert it receives.
type Recorder struct {
	mu     sync.Mutex
	alerts []Alert
}

func (r *Recorder) Notify(title, body, dedupeKey string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, Alert{Title: title, Body: body, Key: dedupeKey})
}

// Alerts returns a snapshot of the recorded alerts.
func (r *Recorder) Alerts() []Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Alert(nil), r.alerts...)
}

// Reset forgets every recorded alert.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = nil
}
