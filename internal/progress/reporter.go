package progress

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/time/rate"

	"github.com/meigma/ferry/core"
)

// Compile-time interface implementation check.
var _ core.ProgressSink = (*Reporter)(nil)

// State is the progress owned by one Reporter.
type State struct {
	// Current is the highest byte count seen. It never decreases.
	Current int64
	// Total is the byte count of the last report with a positive total.
	Total int64
	// LastPercent is the percentage carried by the last successful edit.
	LastPercent float64
	// Updates counts successful edits.
	Updates int
}

// ReporterOption configures a Reporter.
type ReporterOption func(*Reporter)

// WithLogger sets the logger used for swallowed send/edit failures.
func WithLogger(logger *slog.Logger) ReporterOption {
	return func(r *Reporter) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMinInterval spaces non-final edits at least d apart.
// Zero disables time-based throttling.
func WithMinInterval(d time.Duration) ReporterOption {
	return func(r *Reporter) {
		if d > 0 {
			r.limiter = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

// Reporter turns cumulative byte counts into edits of a single status message.
// The message is created on the first report. After that, an edit is sent when
// the percentage advanced by at least one point or the transfer completed.
// Messaging failures are logged and never returned.
//
// A Reporter serves one transfer phase; create a new one per phase.
type Reporter struct {
	messenger core.Messenger
	chat      core.ChatRef
	label     string
	logger    *slog.Logger
	limiter   *rate.Limiter

	mu        sync.Mutex
	attempted bool
	handle    core.MessageHandle
	hasHandle bool
	flushed   bool
	state     State
}

// NewReporter creates a reporter that posts under label in chat.
func NewReporter(messenger core.Messenger, chat core.ChatRef, label string, opts ...ReporterOption) *Reporter {
	r := &Reporter{
		messenger: messenger,
		chat:      chat,
		label:     label,
		logger:    slog.New(slog.DiscardHandler),
		limiter:   rate.NewLimiter(rate.Inf, 1),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Report records current out of total bytes and updates the status message
// when warranted.
func (r *Reporter) Report(ctx context.Context, current, total int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ensureMessage(ctx)

	if total <= 0 {
		return
	}
	if current < r.state.Current {
		current = r.state.Current
	}
	r.state.Current = current
	r.state.Total = total

	final := current >= total
	if final && r.flushed {
		return
	}

	percent := float64(current) * 100 / float64(total)
	if percent > 100 {
		percent = 100
	}
	if !final {
		if percent-r.state.LastPercent < 1 {
			return
		}
		if !r.limiter.Allow() {
			return
		}
	}

	if !r.hasHandle {
		return
	}
	if err := r.messenger.Edit(ctx, r.handle, r.render(percent, current, total)); err != nil {
		r.logger.Debug("progress edit failed", "label", r.label, "error", err)
		return
	}
	r.state.LastPercent = percent
	r.state.Updates++
	if final {
		r.flushed = true
	}
}

// State returns a snapshot of the reporter's progress.
func (r *Reporter) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// ensureMessage sends the initial status message once.
func (r *Reporter) ensureMessage(ctx context.Context) {
	if r.attempted {
		return
	}
	r.attempted = true

	handle, err := r.messenger.Send(ctx, r.chat, r.label)
	if err != nil {
		r.logger.Debug("progress message send failed", "label", r.label, "error", err)
		return
	}
	r.handle = handle
	r.hasHandle = true
}

func (r *Reporter) render(percent float64, current, total int64) string {
	return fmt.Sprintf("%s\nProgress: %.1f%% (%s / %s)",
		r.label,
		percent,
		humanize.Bytes(uint64(current)), //nolint:gosec // G115: current is never negative
		humanize.Bytes(uint64(total)),   //nolint:gosec // G115: total is positive here
	)
}
