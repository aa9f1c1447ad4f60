// Package pipeline runs one assessment pass over every registered kebele.
//
// A pass plans its date windows once, then evaluates kebeles sequentially in
// store order: fetch NDVI for the current and baseline windows, fetch point
// weather, read pest reports since the window start, score, persist, notify
// farmers when the level is medium or high, and publish the assessment.
//
// A failed signal fetch skips that kebele and the pass continues. A failed
// write aborts the pass and leaves the watermark where it was.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/warkadguard/riskwatch/internal/logger"
	"github.com/warkadguard/riskwatch/internal/models"
	"github.com/warkadguard/riskwatch/internal/observability"
	"github.com/warkadguard/riskwatch/internal/risk"
	"github.com/warkadguard/riskwatch/internal/window"
)

// ErrPersistence marks a failed write. A pass returning it did not advance
// the watermark.
var ErrPersistence = errors.New("persistence failure")

// NDVISource returns the mean NDVI for a location over [start, end), or nil
// when no imagery is available.
type NDVISource interface {
	FetchNDVI(ctx context.Context, location models.Location, start, end time.Time) (*float64, error)
}

// WeatherSource returns a point observation, or nil when none is available.
type WeatherSource interface {
	FetchWeather(ctx context.Context, lat, lon float64) (*models.WeatherSnapshot, error)
}

// Store is the persistence the pass reads from and writes to.
type Store interface {
	ListLocations(ctx context.Context) ([]models.Location, error)
	ListPestReports(ctx context.Context, kebele string, since time.Time) ([]models.PestReport, error)
	ListFarmers(ctx context.Context, kebele string) ([]models.Farmer, error)
	SaveAssessment(ctx context.Context, a *models.RiskAssessment) error
}

// SignalRecorder keeps fetched observations for audit.
type SignalRecorder interface {
	RecordNDVI(ctx context.Context, obs *models.NDVIObservation) error
	RecordWeather(ctx context.Context, kebele string, w *models.WeatherSnapshot) error
}

// Notifier delivers an alert to one recipient.
type Notifier interface {
	Notify(ctx context.Context, recipient, message string) error
}

// Publisher streams finished assessments.
type Publisher interface {
	Publish(ctx context.Context, runID string, a models.RiskAssessment) error
}

// LocationError represents a kebele skipped during a pass
type LocationError struct {
	Location string
	Err      error
}

func (e LocationError) Error() string {
	return fmt.Sprintf("assessment error for %s: %v", e.Location, e.Err)
}

func (e LocationError) Unwrap() error {
	return e.Err
}

// Result summarizes one pass.
type Result struct {
	RunID       string
	Plan        window.Plan
	Assessments []models.RiskAssessment
	Skipped     []LocationError
	Notified    int
	// Advanced is true only when the watermark was written.
	Advanced bool
}

// Options carries the optional collaborators. Nil fields are disabled.
type Options struct {
	Notifier  Notifier
	Publisher Publisher
	Recorder  SignalRecorder
	Metrics   *observability.Metrics
	Clock     clockwork.Clock
	// HoldWatermarkOnSkip keeps the watermark in place when any kebele was
	// skipped, so the same window is retried next pass.
	HoldWatermarkOnSkip bool
}

// Pipeline evaluates kebeles and advances the watermark.
type Pipeline struct {
	ndvi    NDVISource
	weather WeatherSource
	store   Store
	tracker *window.Tracker
	opts    Options
	newID   func() string
}

// New creates a Pipeline
func New(ndvi NDVISource, weather WeatherSource, store Store, tracker *window.Tracker, opts Options) *Pipeline {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Pipeline{
		ndvi:    ndvi,
		weather: weather,
		store:   store,
		tracker: tracker,
		opts:    opts,
		newID:   func() string { return uuid.New().String() },
	}
}

// Run executes one pass. Skipped kebeles are reported in the result; the
// returned error is non-nil only when the pass could not complete.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	startTime := p.opts.Clock.Now()
	res := &Result{RunID: p.newID()}

	err := p.run(ctx, res)

	if m := p.opts.Metrics; m != nil {
		outcome := "success"
		if err != nil {
			outcome = "failed"
		}
		m.PassesTotal.WithLabelValues(outcome).Inc()
		m.PassDuration.Observe(p.opts.Clock.Since(startTime).Seconds())
	}
	if err != nil {
		return res, err
	}

	logger.Info("Pass %s completed in %v: %d assessed, %d skipped, %d notified",
		res.RunID, p.opts.Clock.Since(startTime), len(res.Assessments), len(res.Skipped), res.Notified)
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, res *Result) error {
	plan, err := p.tracker.Plan(ctx)
	if err != nil {
		return err
	}
	res.Plan = plan
	logger.Info("Starting pass %s (reports %s, current NDVI %s, baseline NDVI %s, first run: %v)",
		res.RunID, plan.Reports, plan.Current, plan.Baseline, plan.FirstRun)

	locations, err := p.store.ListLocations(ctx)
	if err != nil {
		return fmt.Errorf("failed to list locations: %w", err)
	}
	logger.Debug("Evaluating %d kebeles", len(locations))

	for _, loc := range locations {
		if err := ctx.Err(); err != nil {
			return err
		}

		in, err := p.gather(ctx, loc, plan)
		if err != nil {
			locErr := LocationError{Location: loc.Name, Err: err}
			res.Skipped = append(res.Skipped, locErr)
			logger.Warn("Skipping %s: %v", loc.Name, err)
			if m := p.opts.Metrics; m != nil {
				m.LocationsSkipped.Inc()
			}
			continue
		}

		assessment := risk.Assess(p.newID(), loc.Name, in, p.opts.Clock.Now())
		logger.Info("%s: score %.2f (%s), pest %s", loc.Name, assessment.Score, assessment.Level, assessment.Pest)

		if err := p.store.SaveAssessment(ctx, &assessment); err != nil {
			return fmt.Errorf("%w: failed to save assessment for %s: %w", ErrPersistence, loc.Name, err)
		}
		res.Assessments = append(res.Assessments, assessment)

		if m := p.opts.Metrics; m != nil {
			m.LocationsAssessed.WithLabelValues(string(assessment.Level)).Inc()
			m.LastRiskScore.WithLabelValues(loc.Name).Set(assessment.Score)
		}

		if assessment.Level.Alerting() {
			res.Notified += p.notifyFarmers(ctx, assessment)
		}

		if p.opts.Publisher != nil {
			if err := p.opts.Publisher.Publish(ctx, res.RunID, assessment); err != nil {
				logger.Warn("Failed to publish assessment for %s: %v", loc.Name, err)
				if m := p.opts.Metrics; m != nil {
					m.PublishErrors.Inc()
				}
			}
		}
	}

	if len(res.Skipped) > 0 && p.opts.HoldWatermarkOnSkip {
		logger.Warn("Holding watermark: %d kebeles skipped", len(res.Skipped))
		return nil
	}
	advanced, err := p.tracker.Advance(ctx, plan)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if !advanced {
		logger.Warn("Watermark %s is ahead of %s, left unchanged",
			plan.Watermark.Format(window.DateLayout), plan.Today.Format(window.DateLayout))
	}
	res.Advanced = advanced
	return nil
}

// gather fetches every signal for one kebele. Missing signals come back as
// nil values; any returned error means the kebele must be skipped.
func (p *Pipeline) gather(ctx context.Context, loc models.Location, plan window.Plan) (risk.Inputs, error) {
	var in risk.Inputs
	var err error

	in.NDVICurrent, err = p.ndvi.FetchNDVI(ctx, loc, plan.Current.Start, plan.Current.End)
	if err != nil {
		return in, fmt.Errorf("current NDVI: %w", err)
	}
	p.recordNDVI(ctx, loc.Name, plan.Current, in.NDVICurrent)

	in.NDVIPast, err = p.ndvi.FetchNDVI(ctx, loc, plan.Baseline.Start, plan.Baseline.End)
	if err != nil {
		return in, fmt.Errorf("baseline NDVI: %w", err)
	}
	p.recordNDVI(ctx, loc.Name, plan.Baseline, in.NDVIPast)

	in.Weather, err = p.weather.FetchWeather(ctx, loc.Latitude, loc.Longitude)
	if err != nil {
		return in, fmt.Errorf("weather: %w", err)
	}
	if in.Weather != nil && p.opts.Recorder != nil {
		if err := p.opts.Recorder.RecordWeather(ctx, loc.Name, in.Weather); err != nil {
			logger.Warn("Failed to record weather for %s: %v", loc.Name, err)
		}
	}

	// Lower bound only: reports filed on pass day are seen again next pass.
	in.Reports, err = p.store.ListPestReports(ctx, loc.Name, plan.Reports.Start)
	if err != nil {
		return in, fmt.Errorf("pest reports: %w", err)
	}
	logger.Debug("%s: ndvi current=%s past=%s, %d reports", loc.Name, fmtOptional(in.NDVICurrent), fmtOptional(in.NDVIPast), len(in.Reports))

	return in, nil
}

func (p *Pipeline) recordNDVI(ctx context.Context, kebele string, r window.Range, v *float64) {
	if v == nil || p.opts.Recorder == nil {
		return
	}
	obs := &models.NDVIObservation{Kebele: kebele, Start: r.Start, End: r.End, Value: *v}
	if err := p.opts.Recorder.RecordNDVI(ctx, obs); err != nil {
		logger.Warn("Failed to record NDVI for %s %s: %v", kebele, r, err)
	}
}

// notifyFarmers alerts every farmer of the kebele and returns how many
// notifications were delivered. Failures are logged and never fatal.
func (p *Pipeline) notifyFarmers(ctx context.Context, a models.RiskAssessment) int {
	if p.opts.Notifier == nil {
		logger.Debug("%s is %s but no notifier is configured", a.Location, a.Level)
		return 0
	}

	farmers, err := p.store.ListFarmers(ctx, a.Location)
	if err != nil {
		logger.Error("Failed to list farmers for %s: %v", a.Location, err)
		return 0
	}

	message := AlertMessage(a)
	sent := 0
	for _, f := range farmers {
		if err := p.opts.Notifier.Notify(ctx, f.Phone, message); err != nil {
			logger.Warn("Failed to notify %s (%s): %v", f.Name, f.Phone, err)
			if m := p.opts.Metrics; m != nil {
				m.Notifications.WithLabelValues("failed").Inc()
			}
			continue
		}
		sent++
		if m := p.opts.Metrics; m != nil {
			m.Notifications.WithLabelValues("sent").Inc()
		}
	}
	logger.Info("Notified %d/%d farmers in %s", sent, len(farmers), a.Location)
	return sent
}

// AlertMessage renders the farmer-facing alert text.
func AlertMessage(a models.RiskAssessment) string {
	return fmt.Sprintf("Alert: %s pest risk in %s (score: %.2f). %s / %s",
		strings.ToUpper(string(a.Level)), a.Location, a.Score,
		a.Recommendation.English, a.Recommendation.Amharic)
}

func fmtOptional(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", *v)
}
