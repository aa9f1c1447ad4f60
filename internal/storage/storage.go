// Package storage provides SQLite-backed persistence for kebeles, farmers,
// pest reports, risk scores, raw signal observations and the pass watermark.
//
// A single connection is kept open so that ":memory:" databases behave like
// file databases and writes are serialized. All timestamps are stored as
// UTC text so that range filters compare lexicographically.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/warkadguard/riskwatch/internal/models"

	_ "modernc.org/sqlite"
)

const (
	timestampLayout = "2006-01-02T15:04:05Z"
	dateLayout      = "2006-01-02"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS kebeles (
		name       TEXT PRIMARY KEY,
		latitude   REAL NOT NULL,
		longitude  REAL NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS farmers (
		id     INTEGER PRIMARY KEY AUTOINCREMENT,
		name   TEXT NOT NULL,
		phone  TEXT NOT NULL,
		kebele TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_farmers_kebele ON farmers(kebele)`,
	`CREATE TABLE IF NOT EXISTS pest_reports (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		report_time TEXT NOT NULL,
		kebele      TEXT NOT NULL,
		crop        TEXT,
		symptom     TEXT,
		severity    TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pest_reports_kebele_time ON pest_reports(kebele, report_time)`,
	`CREATE TABLE IF NOT EXISTS satellite_ndvi (
		kebele     TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date   TEXT NOT NULL,
		ndvi_value REAL NOT NULL,
		PRIMARY KEY (kebele, start_date, end_date)
	)`,
	`CREATE TABLE IF NOT EXISTS weather_data (
		kebele      TEXT NOT NULL,
		datetime    TEXT NOT NULL,
		temperature REAL,
		humidity    REAL,
		rainfall    REAL,
		PRIMARY KEY (kebele, datetime)
	)`,
	`CREATE TABLE IF NOT EXISTS risk_scores (
		kebele        TEXT PRIMARY KEY,
		assessment_id TEXT NOT NULL,
		risk_score    REAL NOT NULL,
		risk_level    TEXT NOT NULL,
		pest          TEXT,
		crop          TEXT,
		symptom       TEXT,
		severity      TEXT,
		last_updated  TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS watermark (
		id       INTEGER PRIMARY KEY CHECK (id = 1),
		last_run TEXT NOT NULL
	)`,
}

// Storage wraps the SQLite database.
type Storage struct {
	db *sql.DB
}

// New opens (and creates if needed) the database at path and applies the
// schema. Use ":memory:" for an ephemeral database.
func New(path string, dirPermissions os.FileMode) (*Storage, error) {
	if path == "" {
		path = filepath.Join(os.TempDir(), "riskwatch", "riskwatch.db")
	}
	if path != ":memory:" {
		if dirPermissions == 0 {
			dirPermissions = 0o755
		}
		if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Storage{db: db}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Storage) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (s *Storage) Close() error {
	return s.db.Close()
}

// AddLocation registers a kebele. Kebeles are immutable: registering an
// existing name is a no-op.
func (s *Storage) AddLocation(ctx context.Context, loc *models.Location) error {
	if err := loc.Validate(); err != nil {
		return fmt.Errorf("invalid location: %w", err)
	}
	created := loc.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO kebeles (name, latitude, longitude, created_at) VALUES (?, ?, ?, ?)`,
		loc.Name, loc.Latitude, loc.Longitude, formatTime(created))
	if err != nil {
		return fmt.Errorf("failed to add location %s: %w", loc.Name, err)
	}
	return nil
}

// GetLocation returns the kebele or nil when it does not exist.
func (s *Storage) GetLocation(ctx context.Context, name string) (*models.Location, error) {
	var loc models.Location
	var created string
	err := s.db.QueryRowContext(ctx,
		`SELECT name, latitude, longitude, created_at FROM kebeles WHERE name = ?`, name,
	).Scan(&loc.Name, &loc.Latitude, &loc.Longitude, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get location %s: %w", name, err)
	}
	loc.CreatedAt = parseTime(created)
	return &loc, nil
}

// ListLocations returns all kebeles in registration order.
func (s *Storage) ListLocations(ctx context.Context) ([]models.Location, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, latitude, longitude, created_at FROM kebeles ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	defer rows.Close()

	var locations []models.Location
	for rows.Next() {
		var loc models.Location
		var created string
		if err := rows.Scan(&loc.Name, &loc.Latitude, &loc.Longitude, &created); err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		loc.CreatedAt = parseTime(created)
		locations = append(locations, loc)
	}
	return locations, rows.Err()
}

// AddFarmer registers an alert recipient and sets its ID.
func (s *Storage) AddFarmer(ctx context.Context, f *models.Farmer) error {
	if err := f.Validate(); err != nil {
		return fmt.Errorf("invalid farmer: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO farmers (name, phone, kebele) VALUES (?, ?, ?)`, f.Name, f.Phone, f.Kebele)
	if err != nil {
		return fmt.Errorf("failed to add farmer %s: %w", f.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read farmer id: %w", err)
	}
	f.ID = id
	return nil
}

// ListFarmers returns the farmers registered to a kebele.
func (s *Storage) ListFarmers(ctx context.Context, kebele string) ([]models.Farmer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, phone, kebele FROM farmers WHERE kebele = ? ORDER BY id`, kebele)
	if err != nil {
		return nil, fmt.Errorf("failed to list farmers for %s: %w", kebele, err)
	}
	defer rows.Close()

	var farmers []models.Farmer
	for rows.Next() {
		var f models.Farmer
		if err := rows.Scan(&f.ID, &f.Name, &f.Phone, &f.Kebele); err != nil {
			return nil, fmt.Errorf("failed to scan farmer: %w", err)
		}
		farmers = append(farmers, f)
	}
	return farmers, rows.Err()
}

// AddPestReport stores a field submission and sets its ID. The severity
// label is stored as given; readers normalize it.
func (s *Storage) AddPestReport(ctx context.Context, r *models.PestReport) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("invalid pest report: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO pest_reports (report_time, kebele, crop, symptom, severity) VALUES (?, ?, ?, ?, ?)`,
		formatTime(r.ReportedAt), r.Kebele, r.Crop, r.Symptom, string(r.Severity))
	if err != nil {
		return fmt.Errorf("failed to add pest report: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read report id: %w", err)
	}
	r.ID = id
	return nil
}

// ListPestReports returns a kebele's reports submitted at or after since,
// oldest first.
func (s *Storage) ListPestReports(ctx context.Context, kebele string, since time.Time) ([]models.PestReport, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, report_time, kebele, COALESCE(crop, ''), COALESCE(symptom, ''), COALESCE(severity, '')
		 FROM pest_reports WHERE kebele = ? AND report_time >= ? ORDER BY report_time, id`,
		kebele, formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("failed to list pest reports for %s: %w", kebele, err)
	}
	defer rows.Close()

	var reports []models.PestReport
	for rows.Next() {
		var r models.PestReport
		var ts, severity string
		if err := rows.Scan(&r.ID, &ts, &r.Kebele, &r.Crop, &r.Symptom, &severity); err != nil {
			return nil, fmt.Errorf("failed to scan pest report: %w", err)
		}
		r.ReportedAt = parseTime(ts)
		r.Severity = models.Severity(severity)
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// SaveAssessment upserts the current assessment for a kebele. Only the latest
// assessment per kebele is kept.
func (s *Storage) SaveAssessment(ctx context.Context, a *models.RiskAssessment) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("invalid assessment: %w", err)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO risk_scores (kebele, assessment_id, risk_score, risk_level, pest, crop, symptom, severity, last_updated)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(kebele) DO UPDATE SET
		   assessment_id = excluded.assessment_id,
		   risk_score    = excluded.risk_score,
		   risk_level    = excluded.risk_level,
		   pest          = excluded.pest,
		   crop          = excluded.crop,
		   symptom       = excluded.symptom,
		   severity      = excluded.severity,
		   last_updated  = excluded.last_updated`,
		a.Location, a.ID, a.Score, string(a.Level), a.Pest, a.Crop, a.Symptom, string(a.Severity), formatTime(a.LastUpdated))
	if err != nil {
		return fmt.Errorf("failed to save assessment for %s: %w", a.Location, err)
	}
	return nil
}

// StoredScore is the persisted summary of a kebele's latest assessment.
type StoredScore struct {
	Kebele       string
	AssessmentID string
	Score        float64
	Level        models.RiskLevel
	Pest         string
	Crop         string
	Symptom      string
	Severity     models.Severity
	LastUpdated  time.Time
}

// GetScore returns the latest stored score for a kebele, or nil.
func (s *Storage) GetScore(ctx context.Context, kebele string) (*StoredScore, error) {
	var sc StoredScore
	var level, severity, updated string
	err := s.db.QueryRowContext(ctx,
		`SELECT kebele, assessment_id, risk_score, risk_level, COALESCE(pest, ''), COALESCE(crop, ''),
		        COALESCE(symptom, ''), COALESCE(severity, ''), last_updated
		 FROM risk_scores WHERE kebele = ?`, kebele,
	).Scan(&sc.Kebele, &sc.AssessmentID, &sc.Score, &level, &sc.Pest, &sc.Crop, &sc.Symptom, &severity, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get score for %s: %w", kebele, err)
	}
	sc.Level = models.RiskLevel(level)
	sc.Severity = models.Severity(severity)
	sc.LastUpdated = parseTime(updated)
	return &sc, nil
}

// RecordNDVI stores an NDVI reading, replacing any earlier reading for the
// same kebele and range.
func (s *Storage) RecordNDVI(ctx context.Context, obs *models.NDVIObservation) error {
	if err := obs.Validate(); err != nil {
		return fmt.Errorf("invalid ndvi observation: %w", err)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO satellite_ndvi (kebele, start_date, end_date, ndvi_value) VALUES (?, ?, ?, ?)`,
		obs.Kebele, obs.Start.UTC().Format(dateLayout), obs.End.UTC().Format(dateLayout), obs.Value)
	if err != nil {
		return fmt.Errorf("failed to record ndvi for %s: %w", obs.Kebele, err)
	}
	return nil
}

// GetNDVI returns a previously recorded reading or nil.
func (s *Storage) GetNDVI(ctx context.Context, kebele string, start, end time.Time) (*float64, error) {
	var v float64
	err := s.db.QueryRowContext(ctx,
		`SELECT ndvi_value FROM satellite_ndvi WHERE kebele = ? AND start_date = ? AND end_date = ?`,
		kebele, start.UTC().Format(dateLayout), end.UTC().Format(dateLayout),
	).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ndvi for %s: %w", kebele, err)
	}
	return &v, nil
}

// RecordWeather stores a weather snapshot for a kebele.
func (s *Storage) RecordWeather(ctx context.Context, kebele string, w *models.WeatherSnapshot) error {
	observed := w.ObservedAt
	if observed.IsZero() {
		observed = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO weather_data (kebele, datetime, temperature, humidity, rainfall) VALUES (?, ?, ?, ?, ?)`,
		kebele, formatTime(observed), w.Temperature, w.Humidity, w.Precipitation)
	if err != nil {
		return fmt.Errorf("failed to record weather for %s: %w", kebele, err)
	}
	return nil
}

// GetWatermark returns the last successful pass date, or nil if no pass has
// completed.
func (s *Storage) GetWatermark(ctx context.Context) (*time.Time, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT last_run FROM watermark WHERE id = 1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read watermark: %w", err)
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, fmt.Errorf("corrupt watermark %q: %w", raw, err)
	}
	return &t, nil
}

// SetWatermark records the last successful pass date.
func (s *Storage) SetWatermark(ctx context.Context, date time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO watermark (id, last_run) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET last_run = excluded.last_run`,
		date.UTC().Format(dateLayout))
	if err != nil {
		return fmt.Errorf("failed to write watermark: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTime(s string) time.Time {
	if t, err := time.Parse(timestampLayout, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	t, _ := time.Parse(dateLayout, s)
	return t
}
