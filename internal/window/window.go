// Package window tracks which dates an evaluation pass covers.
//
// A single persisted watermark records the last successful pass. The
// incremental window starts at the watermark (or a fixed lookback when no
// pass has ever completed) and ends today. NDVI baseline and current windows
// are fixed-lag ranges anchored on today and do not follow the watermark.
package window

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

// DateLayout is the ISO-8601 date format used at collaborator boundaries.
const DateLayout = "2006-01-02"

const (
	DefaultLookbackDays     = 14
	DefaultCurrentDays      = 7
	DefaultBaselineNearDays = 14
	DefaultBaselineFarDays  = 21
)

// WatermarkStore persists the last successful pass date.
// GetWatermark returns nil when no pass has ever completed.
type WatermarkStore interface {
	GetWatermark(ctx context.Context) (*time.Time, error)
	SetWatermark(ctx context.Context, date time.Time) error
}

// Range is a half-open [Start, End) date range at day precision. NDVI
// collaborators honour End; see Plan.Reports for how pest reports use it.
type Range struct {
	Start time.Time
	End   time.Time
}

// String renders the range with ISO dates.
func (r Range) String() string {
	return fmt.Sprintf("[%s, %s)", r.Start.Format(DateLayout), r.End.Format(DateLayout))
}

// Plan is the set of ranges one pass evaluates.
type Plan struct {
	// Reports is the incremental range used for pest reports. Reports are
	// selected from Start onwards with no upper bound, so a report filed on
	// pass day after midnight is scored in this pass and again in the next
	// one, whose Start is this pass's Today.
	Reports Range
	// Current is the recent NDVI window.
	Current Range
	// Baseline is the lagged NDVI comparison window.
	Baseline Range
	// FirstRun is true when no watermark existed.
	FirstRun bool
	// Watermark is the stored date read when the plan was made, or nil.
	Watermark *time.Time
	Today     time.Time
}

// Options configure window lengths in days.
type Options struct {
	LookbackDays     int
	CurrentDays      int
	BaselineNearDays int
	BaselineFarDays  int
}

func (o Options) withDefaults() Options {
	if o.LookbackDays <= 0 {
		o.LookbackDays = DefaultLookbackDays
	}
	if o.CurrentDays <= 0 {
		o.CurrentDays = DefaultCurrentDays
	}
	if o.BaselineNearDays <= 0 {
		o.BaselineNearDays = DefaultBaselineNearDays
	}
	if o.BaselineFarDays <= o.BaselineNearDays {
		o.BaselineFarDays = o.BaselineNearDays + (DefaultBaselineFarDays - DefaultBaselineNearDays)
	}
	return o
}

// Tracker computes pass windows from a WatermarkStore.
// Concurrent passes over one store are not supported; callers serialize them.
type Tracker struct {
	store WatermarkStore
	clock clockwork.Clock
	opts  Options
}

// NewTracker creates a Tracker. A nil clock uses real time.
func NewTracker(store WatermarkStore, clock clockwork.Clock, opts Options) *Tracker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Tracker{store: store, clock: clock, opts: opts.withDefaults()}
}

// Today returns the current date truncated to midnight UTC.
func (t *Tracker) Today() time.Time {
	return truncateDay(t.clock.Now())
}

// Plan reads the watermark once and returns the ranges for this pass.
func (t *Tracker) Plan(ctx context.Context) (Plan, error) {
	today := t.Today()

	wm, err := t.store.GetWatermark(ctx)
	if err != nil {
		return Plan{}, fmt.Errorf("failed to read watermark: %w", err)
	}

	p := Plan{
		Today: today,
		Current: Range{
			Start: today.AddDate(0, 0, -t.opts.CurrentDays),
			End:   today,
		},
		Baseline: Range{
			Start: today.AddDate(0, 0, -t.opts.BaselineFarDays),
			End:   today.AddDate(0, 0, -t.opts.BaselineNearDays),
		},
	}

	p.Watermark = wm
	if wm == nil {
		p.FirstRun = true
		p.Reports = Range{Start: today.AddDate(0, 0, -t.opts.LookbackDays), End: today}
		return p, nil
	}

	start := truncateDay(*wm)
	if start.After(today) {
		start = today
	}
	p.Reports = Range{Start: start, End: today}
	return p, nil
}

// Advance records the plan's date as the new watermark and reports whether
// it was written. The watermark read by Plan is reused; the stored date is
// not read again. The watermark never moves backwards, so a plan older than
// its watermark writes nothing.
func (t *Tracker) Advance(ctx context.Context, plan Plan) (bool, error) {
	if plan.Watermark != nil && truncateDay(*plan.Watermark).After(plan.Today) {
		return false, nil
	}
	if err := t.store.SetWatermark(ctx, plan.Today); err != nil {
		return false, fmt.Errorf("failed to write watermark: %w", err)
	}
	return true, nil
}

func truncateDay(ts time.Time) time.Time {
	y, m, d := ts.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MemoryStore is an in-process WatermarkStore, used by tests and dry runs.
type MemoryStore struct {
	date *time.Time
}

// GetWatermark returns the stored date or nil.
func (m *MemoryStore) GetWatermark(_ context.Context) (*time.Time, error) {
	if m.date == nil {
		return nil, nil
	}
	d := *m.date
	return &d, nil
}

// SetWatermark stores the date.
func (m *MemoryStore) SetWatermark(_ context.Context, date time.Time) error {
	d := date
	m.date = &d
	return nil
}
