/*
Package sqlite provides the SQLite-backed implementation of recalc.Store
plus the CRUD surface the HTTP layer uses.

PURPOSE:
  Persists photographers, schools, sessions, time entries, and the
  cost-history ledger. In production the same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

APPEND-ONLY COST HISTORY:
  The cost_history table is a ledger:
  - No UPDATE statements on cost_history
  - No DELETE statements on cost_history
  Recomputation appends a new row; overlapping triggers that recompute
  the same session concurrently simply produce two identical rows with
  distinct ids, which downstream readers tolerate. The only mutable
  cost data is the legacy cost/cost_breakdown mirror on the session row.

KEY TABLES:
  photographers:  compensation profiles
  schools:        shoot locations (coordinates + legacy school_address)
  sessions:       scheduled work, with the legacy cost mirror columns
  time_entries:   raw clock records competing for the weekly hour budget
  cost_history:   append-only breakdown ledger

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  multiple readers don't block, single writer at a time.

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - recalc/store.go: interface definitions and contracts
  - store/memory: in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/focalops/cost-engine/costs"
	"github.com/focalops/cost-engine/recalc"
)

// Store implements recalc.Store and the CRUD surface using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS photographers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		compensation_type TEXT NOT NULL,
		hourly_rate TEXT NOT NULL DEFAULT '0',
		salary_amount TEXT NOT NULL DEFAULT '0',
		overtime_threshold REAL NOT NULL DEFAULT 0,
		amount_per_mile TEXT NOT NULL DEFAULT '0',
		home_address TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS schools (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		coordinates TEXT,
		school_address TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		photographer_id TEXT NOT NULL,
		school_id TEXT NOT NULL,
		date TEXT NOT NULL,
		start_time TEXT,
		end_time TEXT,
		is_time_off INTEGER NOT NULL DEFAULT 0,
		cost TEXT,            -- legacy single-value mirror
		cost_breakdown TEXT,  -- legacy single-breakdown mirror (JSON)
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_photographer ON sessions(photographer_id, date);
	CREATE INDEX IF NOT EXISTS idx_sessions_school ON sessions(school_id, date);

	CREATE TABLE IF NOT EXISTS time_entries (
		id TEXT PRIMARY KEY,
		session_id TEXT,
		photographer_id TEXT NOT NULL,
		date TEXT NOT NULL,
		clock_in TEXT,
		clock_out TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_time_entries_photographer_date ON time_entries(photographer_id, date);

	-- Append-only: the cost path never updates or deletes here.
	CREATE TABLE IF NOT EXISTS cost_history (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		photographer_id TEXT NOT NULL,
		breakdown TEXT NOT NULL,
		computed_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_cost_history_session ON cost_history(session_id, computed_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// PHOTOGRAPHERS
// =============================================================================

func (s *Store) SavePhotographer(ctx context.Context, p costs.Photographer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO photographers (id, name, compensation_type, hourly_rate, salary_amount,
			overtime_threshold, amount_per_mile, home_address, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			compensation_type = excluded.compensation_type,
			hourly_rate = excluded.hourly_rate,
			salary_amount = excluded.salary_amount,
			overtime_threshold = excluded.overtime_threshold,
			amount_per_mile = excluded.amount_per_mile,
			home_address = excluded.home_address,
			updated_at = excluded.updated_at`,
		p.ID, p.Name, string(p.CompensationType), p.HourlyRate.String(), p.SalaryAmount.String(),
		p.OvertimeThreshold, p.AmountPerMile.String(), p.HomeAddress, now, now)
	return err
}

func (s *Store) GetPhotographer(ctx context.Context, id string) (*costs.Photographer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, compensation_type, hourly_rate, salary_amount,
		       overtime_threshold, amount_per_mile, home_address
		FROM photographers WHERE id = ?`, id)

	p, err := scanPhotographer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) ListPhotographers(ctx context.Context) ([]costs.Photographer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, compensation_type, hourly_rate, salary_amount,
		       overtime_threshold, amount_per_mile, home_address
		FROM photographers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []costs.Photographer
	for rows.Next() {
		p, err := scanPhotographer(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

func scanPhotographer(row rowScanner) (*costs.Photographer, error) {
	var p costs.Photographer
	var compType, hourlyRate, salaryAmount, amountPerMile string
	var homeAddress sql.NullString
	err := row.Scan(&p.ID, &p.Name, &compType, &hourlyRate, &salaryAmount,
		&p.OvertimeThreshold, &amountPerMile, &homeAddress)
	if err != nil {
		return nil, err
	}
	p.CompensationType = costs.CompensationType(compType)
	p.HourlyRate = parseDecimal(hourlyRate)
	p.SalaryAmount = parseDecimal(salaryAmount)
	p.AmountPerMile = parseDecimal(amountPerMile)
	p.HomeAddress = homeAddress.String
	return &p, nil
}

// =============================================================================
// SCHOOLS
// =============================================================================

func (s *Store) SaveSchool(ctx context.Context, school costs.School) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO schools (id, name, coordinates, school_address, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			coordinates = excluded.coordinates,
			school_address = excluded.school_address,
			updated_at = excluded.updated_at`,
		school.ID, school.Name, school.Coordinates, school.SchoolAddress, now, now)
	return err
}

func (s *Store) GetSchool(ctx context.Context, id string) (*costs.School, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, coordinates, school_address FROM schools WHERE id = ?`, id)

	school, err := scanSchool(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return school, nil
}

func (s *Store) ListSchools(ctx context.Context) ([]costs.School, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, coordinates, school_address FROM schools ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []costs.School
	for rows.Next() {
		school, err := scanSchool(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *school)
	}
	return result, rows.Err()
}

func scanSchool(row rowScanner) (*costs.School, error) {
	var school costs.School
	var coordinates, schoolAddress sql.NullString
	if err := row.Scan(&school.ID, &school.Name, &coordinates, &schoolAddress); err != nil {
		return nil, err
	}
	school.Coordinates = coordinates.String
	school.SchoolAddress = schoolAddress.String
	return &school, nil
}

// =============================================================================
// SESSIONS
// =============================================================================

func (s *Store) SaveSession(ctx context.Context, session costs.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	date, _ := costs.ParseDateValue(session.Date)
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, photographer_id, school_id, date, start_time, end_time,
			is_time_off, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			photographer_id = excluded.photographer_id,
			school_id = excluded.school_id,
			date = excluded.date,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			is_time_off = excluded.is_time_off,
			updated_at = excluded.updated_at`,
		session.ID, session.PhotographerID, session.SchoolID, date.String(),
		session.StartTime, session.EndTime, boolToInt(session.IsTimeOff), now, now)
	return err
}

func (s *Store) GetSession(ctx context.Context, id string) (*costs.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, photographer_id, school_id, date, start_time, end_time, is_time_off
		FROM sessions WHERE id = ?`, id)

	session, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (s *Store) ListSessions(ctx context.Context) ([]costs.Session, error) {
	return s.querySessions(ctx, `
		SELECT id, photographer_id, school_id, date, start_time, end_time, is_time_off
		FROM sessions ORDER BY date`)
}

// ListSessionsWithCosts returns every session joined with its legacy
// mirror columns in a single query.
func (s *Store) ListSessionsWithCosts(ctx context.Context) ([]recalc.SessionWithCost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, photographer_id, school_id, date, start_time, end_time, is_time_off,
		       cost, cost_breakdown
		FROM sessions ORDER BY date`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []recalc.SessionWithCost
	for rows.Next() {
		var session costs.Session
		var date string
		var startTime, endTime, cost, payload sql.NullString
		var isTimeOff int
		err := rows.Scan(&session.ID, &session.PhotographerID, &session.SchoolID,
			&date, &startTime, &endTime, &isTimeOff, &cost, &payload)
		if err != nil {
			return nil, err
		}
		session.Date = date
		session.StartTime = startTime.String
		session.EndTime = endTime.String
		session.IsTimeOff = isTimeOff != 0

		item := recalc.SessionWithCost{Session: session, Cost: parseDecimal(cost.String)}
		if payload.Valid && payload.String != "" {
			var breakdown costs.Breakdown
			if err := json.Unmarshal([]byte(payload.String), &breakdown); err != nil {
				return nil, fmt.Errorf("unmarshal breakdown for session %s: %w", session.ID, err)
			}
			item.Breakdown = &breakdown
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

func (s *Store) SessionsForPhotographer(ctx context.Context, photographerID string) ([]costs.Session, error) {
	return s.querySessions(ctx, `
		SELECT id, photographer_id, school_id, date, start_time, end_time, is_time_off
		FROM sessions WHERE photographer_id = ? ORDER BY date`, photographerID)
}

func (s *Store) SessionsForSchool(ctx context.Context, schoolID string) ([]costs.Session, error) {
	return s.querySessions(ctx, `
		SELECT id, photographer_id, school_id, date, start_time, end_time, is_time_off
		FROM sessions WHERE school_id = ? ORDER BY date`, schoolID)
}

func (s *Store) querySessions(ctx context.Context, query string, args ...any) ([]costs.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []costs.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *session)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*costs.Session, error) {
	var session costs.Session
	var date string
	var startTime, endTime sql.NullString
	var isTimeOff int
	err := row.Scan(&session.ID, &session.PhotographerID, &session.SchoolID,
		&date, &startTime, &endTime, &isTimeOff)
	if err != nil {
		return nil, err
	}
	session.Date = date
	session.StartTime = startTime.String
	session.EndTime = endTime.String
	session.IsTimeOff = isTimeOff != 0
	return &session, nil
}

// =============================================================================
// TIME ENTRIES
// =============================================================================

func (s *Store) SaveTimeEntry(ctx context.Context, entry costs.RawTimeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	date, _ := costs.ParseDateValue(entry.Date)
	clockIn, _ := costs.FormatClock(entry.ClockInTime)
	clockOut, _ := costs.FormatClock(entry.ClockOutTime)
	if clockIn == "" {
		clockIn = entry.StartTime
	}
	if clockOut == "" {
		clockOut = entry.EndTime
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO time_entries (id, session_id, photographer_id, date, clock_in, clock_out)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			session_id = excluded.session_id,
			photographer_id = excluded.photographer_id,
			date = excluded.date,
			clock_in = excluded.clock_in,
			clock_out = excluded.clock_out`,
		entry.ID, entry.SessionID, entry.PhotographerID, date.String(), clockIn, clockOut)
	return err
}

// TimeEntriesInRange returns raw clock records for the photographer with
// dates inside [from, to]. ISO date strings compare lexicographically.
func (s *Store) TimeEntriesInRange(ctx context.Context, photographerID string, from, to time.Time) ([]costs.RawTimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, photographer_id, date, clock_in, clock_out
		FROM time_entries
		WHERE photographer_id = ? AND date >= ? AND date <= ?
		ORDER BY date`,
		photographerID, from.Format("2006-01-02"), to.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []costs.RawTimeEntry
	for rows.Next() {
		var entry costs.RawTimeEntry
		var sessionID, clockIn, clockOut sql.NullString
		var date string
		if err := rows.Scan(&entry.ID, &sessionID, &entry.PhotographerID, &date, &clockIn, &clockOut); err != nil {
			return nil, err
		}
		entry.SessionID = sessionID.String
		entry.Date = date
		entry.ClockInTime = clockIn.String
		entry.ClockOutTime = clockOut.String
		result = append(result, entry)
	}
	return result, rows.Err()
}

// =============================================================================
// COST HISTORY - append-only
// =============================================================================

// AppendCostRecord adds one breakdown to the ledger. No update or
// delete path exists for cost_history.
func (s *Store) AppendCostRecord(ctx context.Context, rec recalc.CostRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(rec.Breakdown)
	if err != nil {
		return fmt.Errorf("marshal breakdown: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cost_history (id, session_id, photographer_id, breakdown, computed_at)
		VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.SessionID, rec.PhotographerID, string(payload),
		rec.ComputedAt.UTC().Format(time.RFC3339Nano))
	return err
}

// CostHistory returns the session's breakdowns, newest first.
func (s *Store) CostHistory(ctx context.Context, sessionID string) ([]recalc.CostRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, photographer_id, breakdown, computed_at
		FROM cost_history WHERE session_id = ?
		ORDER BY computed_at DESC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []recalc.CostRecord
	for rows.Next() {
		var rec recalc.CostRecord
		var payload, computedAt string
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.PhotographerID, &payload, &computedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(payload), &rec.Breakdown); err != nil {
			return nil, fmt.Errorf("unmarshal breakdown %s: %w", rec.ID, err)
		}
		rec.ComputedAt, _ = time.Parse(time.RFC3339Nano, computedAt)
		result = append(result, rec)
	}
	return result, rows.Err()
}

// MirrorSessionCost refreshes the legacy single-value mirror columns on
// the session row.
func (s *Store) MirrorSessionCost(ctx context.Context, sessionID string, breakdown costs.Breakdown) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(breakdown)
	if err != nil {
		return fmt.Errorf("marshal breakdown: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE sessions SET cost = ?, cost_breakdown = ?, updated_at = ?
		WHERE id = ?`,
		breakdown.TotalCost.String(), string(payload),
		time.Now().UTC().Format(time.RFC3339), sessionID)
	return err
}

// SessionCostMirror reads the legacy mirror columns back.
func (s *Store) SessionCostMirror(ctx context.Context, sessionID string) (decimal.Decimal, *costs.Breakdown, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT cost, cost_breakdown FROM sessions WHERE id = ?`, sessionID)

	var cost, payload sql.NullString
	if err := row.Scan(&cost, &payload); err != nil {
		if err == sql.ErrNoRows {
			return decimal.Zero, nil, nil
		}
		return decimal.Zero, nil, err
	}
	if !payload.Valid || payload.String == "" {
		return parseDecimal(cost.String), nil, nil
	}
	var breakdown costs.Breakdown
	if err := json.Unmarshal([]byte(payload.String), &breakdown); err != nil {
		return decimal.Zero, nil, err
	}
	return parseDecimal(cost.String), &breakdown, nil
}

// =============================================================================
// MAINTENANCE
// =============================================================================

// Reset clears all data. Dev/test only.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"cost_history", "time_entries", "sessions", "schools", "photographers"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
