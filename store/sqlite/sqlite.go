/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements gamification.Stores / gamification.TxStores plus the attendant
  and catalog administration methods the API layer needs. In production, the
  same patterns apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  attendants:              Scored-entity records (host-application owned)
  evaluations:             Immutable scoring events (append-only)
  gamification_state:      One derived aggregate row per entity
  achievement_definitions: The achievement catalog
  achievement_grants:      At-most-once grants
  performance_metrics:     Per-period rollups

INVARIANT ENFORCEMENT:
  - evaluations: no UPDATE or DELETE statements exist in this package
  - achievement_grants: UNIQUE(entity_id, achievement_id); a violation is
    translated to gamification.ErrDuplicateGrant
  - gamification_state: compare-and-swap on updated_at; a lost race is
    translated to gamification.ErrConcurrentModification

TIME ENCODING:
  Timestamps are stored as fixed-width UTC text so lexicographic comparison
  in SQL equals chronological comparison. The nanosecond precision also makes
  updated_at collision-free as a concurrency token.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency.

SEE ALSO:
  - gamification/store.go: Interface definitions
  - gamification/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/scoring-engine/catalog"
	"github.com/warp/scoring-engine/gamification"
)

// timeLayout is fixed-width so stored timestamps sort lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func encodeTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func decodeTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad stored timestamp %q: %w", s, err)
	}
	return t, nil
}

// Store implements all storage interfaces using SQLite.
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
	CREATE TABLE IF NOT EXISTS attendants (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		team TEXT,
		created_at TEXT NOT NULL
	);

	-- Immutable scoring events. Append-only: nothing in this package
	-- updates or deletes rows here.
	CREATE TABLE IF NOT EXISTS evaluations (
		id TEXT PRIMARY KEY,
		entity_id TEXT NOT NULL,
		rater_id TEXT,
		score INTEGER NOT NULL,
		occurred_at TEXT NOT NULL,
		comment TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_evaluations_entity_occurred
		ON evaluations(entity_id, occurred_at);

	CREATE TABLE IF NOT EXISTS gamification_state (
		entity_id TEXT PRIMARY KEY,
		total_points INTEGER NOT NULL,
		experience INTEGER NOT NULL,
		level INTEGER NOT NULL,
		current_streak INTEGER NOT NULL,
		best_streak INTEGER NOT NULL,
		bonus_tier_paid INTEGER NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS achievement_definitions (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		requirement_json TEXT NOT NULL,
		points_awarded INTEGER NOT NULL,
		active INTEGER NOT NULL
	);

	-- CRITICAL: the unique index is what makes grants at-most-once even
	-- under concurrent writers.
	CREATE TABLE IF NOT EXISTS achievement_grants (
		id TEXT PRIMARY KEY,
		entity_id TEXT NOT NULL,
		achievement_id TEXT NOT NULL,
		points_granted INTEGER NOT NULL,
		granted_at TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_grant
		ON achievement_grants(entity_id, achievement_id);

	CREATE TABLE IF NOT EXISTS performance_metrics (
		id TEXT PRIMARY KEY,
		entity_id TEXT NOT NULL,
		period_type TEXT NOT NULL,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		period_label TEXT NOT NULL,
		total_evaluations INTEGER NOT NULL,
		average_score TEXT NOT NULL,
		satisfaction_pct TEXT NOT NULL,
		points_in_period INTEGER NOT NULL,
		streak_days INTEGER NOT NULL,
		computed_at TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_metric
		ON performance_metrics(entity_id, period_type, period_start);
	`
	_, err := s.db.Exec(schema)
	return err
}

// dbtx is satisfied by both *sql.DB and *sql.Tx so every query helper works
// inside and outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// translateErr maps driver failures to the domain error taxonomy.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		switch serr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked, sqlite3.ErrIoErr:
			return fmt.Errorf("%w: %v", gamification.ErrStoreUnavailable, err)
		}
	}
	return err
}

func isUniqueViolation(err error) bool {
	var serr sqlite3.Error
	return errors.As(err, &serr) && serr.ExtendedCode == sqlite3.ErrConstraintUnique
}

// =============================================================================
// ATTENDANTS
// =============================================================================

// Attendant is a scored-entity record.
type Attendant struct {
	ID        string
	Name      string
	Email     string
	Team      string
	CreatedAt time.Time
}

// SaveAttendant inserts or updates an attendant record.
func (s *Store) SaveAttendant(ctx context.Context, a Attendant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attendants (id, name, email, team, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, email=excluded.email, team=excluded.team`,
		a.ID, a.Name, a.Email, a.Team, encodeTime(a.CreatedAt))
	return translateErr(err)
}

// GetAttendant returns the attendant or nil if missing.
func (s *Store) GetAttendant(ctx context.Context, id string) (*Attendant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var a Attendant
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, team, created_at FROM attendants WHERE id = ?`, id).
		Scan(&a.ID, &a.Name, &a.Email, &a.Team, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, translateErr(err)
	}
	if a.CreatedAt, err = decodeTime(createdAt); err != nil {
		return nil, fmt.Errorf("attendant %s: %w", a.ID, err)
	}
	return &a, nil
}

// ListAttendants returns all attendants ordered by name.
func (s *Store) ListAttendants(ctx context.Context) ([]Attendant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email, team, created_at FROM attendants ORDER BY name, id`)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var result []Attendant
	for rows.Next() {
		var a Attendant
		var createdAt string
		if err := rows.Scan(&a.ID, &a.Name, &a.Email, &a.Team, &createdAt); err != nil {
			return nil, err
		}
		if a.CreatedAt, err = decodeTime(createdAt); err != nil {
			return nil, fmt.Errorf("attendant %s: %w", a.ID, err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (s *Store) EntityExists(ctx context.Context, id gamification.EntityID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entityExists(ctx, s.db, id)
}

func (s *Store) entityExists(ctx context.Context, q dbtx, id gamification.EntityID) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM attendants WHERE id = ?`, string(id)).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, translateErr(err)
	}
	return true, nil
}

// =============================================================================
// EVALUATIONS (append-only)
// =============================================================================

// InsertEvaluation appends one evaluation event. There is deliberately no
// update or delete counterpart.
func (s *Store) InsertEvaluation(ctx context.Context, ev gamification.Evaluation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO evaluations (id, entity_id, rater_id, score, occurred_at, comment, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(ev.ID), string(ev.EntityID), ev.RaterID, ev.Score,
		encodeTime(ev.OccurredAt), ev.Comment, encodeTime(time.Now()))
	return translateErr(err)
}

func (s *Store) GetEvaluation(ctx context.Context, id gamification.EvaluationID) (*gamification.Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getEvaluation(ctx, s.db, id)
}

func (s *Store) getEvaluation(ctx context.Context, q dbtx, id gamification.EvaluationID) (*gamification.Evaluation, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, entity_id, rater_id, score, occurred_at, comment
		FROM evaluations WHERE id = ?`, string(id))

	var ev gamification.Evaluation
	var occurredAt string
	err := row.Scan(&ev.ID, &ev.EntityID, &ev.RaterID, &ev.Score, &occurredAt, &ev.Comment)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, translateErr(err)
	}
	if ev.OccurredAt, err = decodeTime(occurredAt); err != nil {
		return nil, fmt.Errorf("evaluation %s: %w", ev.ID, err)
	}
	return &ev, nil
}

func (s *Store) EvaluationsByEntity(ctx context.Context, entityID gamification.EntityID) ([]gamification.Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.evaluationsByEntity(ctx, s.db, entityID)
}

func (s *Store) evaluationsByEntity(ctx context.Context, q dbtx, entityID gamification.EntityID) ([]gamification.Evaluation, error) {
	return s.queryEvaluations(ctx, q, `
		SELECT id, entity_id, rater_id, score, occurred_at, comment
		FROM evaluations WHERE entity_id = ?
		ORDER BY occurred_at, id`, string(entityID))
}

func (s *Store) EvaluationsInRange(ctx context.Context, entityID gamification.EntityID, from, to time.Time) ([]gamification.Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.evaluationsInRange(ctx, s.db, entityID, from, to)
}

func (s *Store) evaluationsInRange(ctx context.Context, q dbtx, entityID gamification.EntityID, from, to time.Time) ([]gamification.Evaluation, error) {
	return s.queryEvaluations(ctx, q, `
		SELECT id, entity_id, rater_id, score, occurred_at, comment
		FROM evaluations
		WHERE entity_id = ? AND occurred_at >= ? AND occurred_at <= ?
		ORDER BY occurred_at, id`,
		string(entityID), encodeTime(from), encodeTime(to))
}

func (s *Store) queryEvaluations(ctx context.Context, q dbtx, query string, args ...any) ([]gamification.Evaluation, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var result []gamification.Evaluation
	for rows.Next() {
		var ev gamification.Evaluation
		var occurredAt string
		if err := rows.Scan(&ev.ID, &ev.EntityID, &ev.RaterID, &ev.Score, &occurredAt, &ev.Comment); err != nil {
			return nil, err
		}
		if ev.OccurredAt, err = decodeTime(occurredAt); err != nil {
			return nil, fmt.Errorf("evaluation %s: %w", ev.ID, err)
		}
		result = append(result, ev)
	}
	return result, rows.Err()
}

// =============================================================================
// GAMIFICATION STATE (CAS on updated_at)
// =============================================================================

func (s *Store) GetState(ctx context.Context, entityID gamification.EntityID) (*gamification.GamificationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getState(ctx, s.db, entityID)
}

func (s *Store) getState(ctx context.Context, q dbtx, entityID gamification.EntityID) (*gamification.GamificationState, error) {
	row := q.QueryRowContext(ctx, `
		SELECT entity_id, total_points, experience, level, current_streak, best_streak, bonus_tier_paid, updated_at
		FROM gamification_state WHERE entity_id = ?`, string(entityID))

	var st gamification.GamificationState
	var updatedAt string
	err := row.Scan(&st.EntityID, &st.TotalPoints, &st.Experience, &st.Level,
		&st.CurrentStreak, &st.BestStreak, &st.BonusTierPaid, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, translateErr(err)
	}
	// A corrupt token must never read back as the zero time: a zero token
	// means "no row yet" to the CAS insert path.
	if st.UpdatedAt, err = decodeTime(updatedAt); err != nil {
		return nil, fmt.Errorf("state for entity %s: %w", st.EntityID, err)
	}
	return &st, nil
}

func (s *Store) SaveState(ctx context.Context, state gamification.GamificationState, expected time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveState(ctx, s.db, state, expected)
}

func (s *Store) saveState(ctx context.Context, q dbtx, state gamification.GamificationState, expected time.Time) error {
	if expected.IsZero() {
		_, err := q.ExecContext(ctx, `
			INSERT INTO gamification_state
				(entity_id, total_points, experience, level, current_streak, best_streak, bonus_tier_paid, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			string(state.EntityID), state.TotalPoints, state.Experience, state.Level,
			state.CurrentStreak, state.BestStreak, state.BonusTierPaid, encodeTime(state.UpdatedAt))
		if isUniqueViolation(err) {
			// A racing writer created the row first.
			return &gamification.StateConflictError{EntityID: state.EntityID, Expected: expected}
		}
		return translateErr(err)
	}

	res, err := q.ExecContext(ctx, `
		UPDATE gamification_state
		SET total_points = ?, experience = ?, level = ?, current_streak = ?,
		    best_streak = ?, bonus_tier_paid = ?, updated_at = ?
		WHERE entity_id = ? AND updated_at = ?`,
		state.TotalPoints, state.Experience, state.Level, state.CurrentStreak,
		state.BestStreak, state.BonusTierPaid, encodeTime(state.UpdatedAt),
		string(state.EntityID), encodeTime(expected))
	if err != nil {
		return translateErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return &gamification.StateConflictError{EntityID: state.EntityID, Expected: expected}
	}
	return nil
}

func (s *Store) DeleteState(ctx context.Context, entityID gamification.EntityID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteState(ctx, s.db, entityID)
}

func (s *Store) deleteState(ctx context.Context, q dbtx, entityID gamification.EntityID) error {
	_, err := q.ExecContext(ctx, `DELETE FROM gamification_state WHERE entity_id = ?`, string(entityID))
	return translateErr(err)
}

// =============================================================================
// ACHIEVEMENT GRANTS
// =============================================================================

func (s *Store) GrantsByEntity(ctx context.Context, entityID gamification.EntityID) ([]gamification.AchievementGrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.grantsByEntity(ctx, s.db, entityID)
}

func (s *Store) grantsByEntity(ctx context.Context, q dbtx, entityID gamification.EntityID) ([]gamification.AchievementGrant, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, entity_id, achievement_id, points_granted, granted_at
		FROM achievement_grants WHERE entity_id = ?
		ORDER BY granted_at, id`, string(entityID))
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var result []gamification.AchievementGrant
	for rows.Next() {
		var g gamification.AchievementGrant
		var grantedAt string
		if err := rows.Scan(&g.ID, &g.EntityID, &g.AchievementID, &g.PointsGranted, &grantedAt); err != nil {
			return nil, err
		}
		if g.GrantedAt, err = decodeTime(grantedAt); err != nil {
			return nil, fmt.Errorf("grant %s: %w", g.ID, err)
		}
		result = append(result, g)
	}
	return result, rows.Err()
}

func (s *Store) InsertGrant(ctx context.Context, grant gamification.AchievementGrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertGrant(ctx, s.db, grant)
}

func (s *Store) insertGrant(ctx context.Context, q dbtx, grant gamification.AchievementGrant) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO achievement_grants (id, entity_id, achievement_id, points_granted, granted_at)
		VALUES (?, ?, ?, ?, ?)`,
		grant.ID, string(grant.EntityID), string(grant.AchievementID),
		grant.PointsGranted, encodeTime(grant.GrantedAt))
	if isUniqueViolation(err) {
		return &gamification.GrantConflictError{EntityID: grant.EntityID, AchievementID: grant.AchievementID}
	}
	return translateErr(err)
}

func (s *Store) DeleteGrants(ctx context.Context, entityID gamification.EntityID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteGrants(ctx, s.db, entityID)
}

func (s *Store) deleteGrants(ctx context.Context, q dbtx, entityID gamification.EntityID) error {
	_, err := q.ExecContext(ctx, `DELETE FROM achievement_grants WHERE entity_id = ?`, string(entityID))
	return translateErr(err)
}

// =============================================================================
// ACHIEVEMENT CATALOG
// =============================================================================

func (s *Store) ActiveDefinitions(ctx context.Context) ([]gamification.AchievementDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryDefinitions(ctx, s.db, `
		SELECT id, name, description, requirement_json, points_awarded, active
		FROM achievement_definitions WHERE active = 1 ORDER BY id`)
}

// ListDefinitions returns the full catalog including inactive achievements.
func (s *Store) ListDefinitions(ctx context.Context) ([]gamification.AchievementDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryDefinitions(ctx, s.db, `
		SELECT id, name, description, requirement_json, points_awarded, active
		FROM achievement_definitions ORDER BY id`)
}

func (s *Store) queryDefinitions(ctx context.Context, q dbtx, query string, args ...any) ([]gamification.AchievementDefinition, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var result []gamification.AchievementDefinition
	for rows.Next() {
		var def gamification.AchievementDefinition
		var reqJSON string
		var active int
		if err := rows.Scan(&def.ID, &def.Name, &def.Description, &reqJSON, &def.PointsAwarded, &active); err != nil {
			return nil, err
		}
		def.Active = active == 1
		def.Requirement, err = catalog.DecodeRequirement([]byte(reqJSON))
		if err != nil {
			return nil, fmt.Errorf("achievement %s: %w", def.ID, err)
		}
		result = append(result, def)
	}
	return result, rows.Err()
}

// SaveDefinition inserts or updates one catalog entry.
func (s *Store) SaveDefinition(ctx context.Context, def gamification.AchievementDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveDefinition(ctx, s.db, def)
}

func (s *Store) saveDefinition(ctx context.Context, q dbtx, def gamification.AchievementDefinition) error {
	reqJSON, err := catalog.EncodeRequirement(def.Requirement)
	if err != nil {
		return err
	}
	active := 0
	if def.Active {
		active = 1
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO achievement_definitions (id, name, description, requirement_json, points_awarded, active)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, description=excluded.description,
			requirement_json=excluded.requirement_json,
			points_awarded=excluded.points_awarded, active=excluded.active`,
		string(def.ID), def.Name, def.Description, string(reqJSON), def.PointsAwarded, active)
	return translateErr(err)
}

// SeedDefinitions inserts catalog entries that do not exist yet. Existing
// entries keep any operator edits.
func (s *Store) SeedDefinitions(ctx context.Context, defs []gamification.AchievementDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, def := range defs {
		reqJSON, err := catalog.EncodeRequirement(def.Requirement)
		if err != nil {
			return err
		}
		active := 0
		if def.Active {
			active = 1
		}
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO achievement_definitions (id, name, description, requirement_json, points_awarded, active)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING`,
			string(def.ID), def.Name, def.Description, string(reqJSON), def.PointsAwarded, active)
		if err != nil {
			return translateErr(err)
		}
	}
	return nil
}

// =============================================================================
// PERFORMANCE METRICS
// =============================================================================

func (s *Store) UpsertMetric(ctx context.Context, metric gamification.PerformanceMetric) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertMetric(ctx, s.db, metric)
}

func (s *Store) upsertMetric(ctx context.Context, q dbtx, m gamification.PerformanceMetric) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO performance_metrics
			(id, entity_id, period_type, period_start, period_end, period_label,
			 total_evaluations, average_score, satisfaction_pct, points_in_period, streak_days, computed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(entity_id, period_type, period_start) DO UPDATE SET
			period_end=excluded.period_end, period_label=excluded.period_label,
			total_evaluations=excluded.total_evaluations,
			average_score=excluded.average_score,
			satisfaction_pct=excluded.satisfaction_pct,
			points_in_period=excluded.points_in_period,
			streak_days=excluded.streak_days,
			computed_at=excluded.computed_at`,
		m.ID, string(m.EntityID), string(m.Period.Type),
		encodeTime(m.Period.Start), encodeTime(m.Period.End), m.Period.Label(),
		m.TotalEvaluations, m.AverageScore.String(), m.SatisfactionPct.String(),
		m.PointsInPeriod, m.StreakDays, encodeTime(m.ComputedAt))
	return translateErr(err)
}

func (s *Store) GetMetric(ctx context.Context, entityID gamification.EntityID, period gamification.Period) (*gamification.PerformanceMetric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getMetric(ctx, s.db, entityID, period)
}

func (s *Store) getMetric(ctx context.Context, q dbtx, entityID gamification.EntityID, period gamification.Period) (*gamification.PerformanceMetric, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, entity_id, period_type, period_start, period_end,
		       total_evaluations, average_score, satisfaction_pct, points_in_period, streak_days, computed_at
		FROM performance_metrics
		WHERE entity_id = ? AND period_type = ? AND period_start = ?`,
		string(entityID), string(period.Type), encodeTime(period.Start))

	var m gamification.PerformanceMetric
	var periodType, periodStart, periodEnd, avg, sat, computedAt string
	err := row.Scan(&m.ID, &m.EntityID, &periodType, &periodStart, &periodEnd,
		&m.TotalEvaluations, &avg, &sat, &m.PointsInPeriod, &m.StreakDays, &computedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, translateErr(err)
	}

	m.Period.Type = gamification.PeriodType(periodType)
	if m.Period.Start, err = decodeTime(periodStart); err != nil {
		return nil, fmt.Errorf("metric %s: %w", m.ID, err)
	}
	if m.Period.End, err = decodeTime(periodEnd); err != nil {
		return nil, fmt.Errorf("metric %s: %w", m.ID, err)
	}
	if m.AverageScore, err = decimal.NewFromString(avg); err != nil {
		return nil, fmt.Errorf("metric %s: bad average_score %q: %w", m.ID, avg, err)
	}
	if m.SatisfactionPct, err = decimal.NewFromString(sat); err != nil {
		return nil, fmt.Errorf("metric %s: bad satisfaction_pct %q: %w", m.ID, sat, err)
	}
	if m.ComputedAt, err = decodeTime(computedAt); err != nil {
		return nil, fmt.Errorf("metric %s: %w", m.ID, err)
	}
	return &m, nil
}

// =============================================================================
// RESET
// =============================================================================

// Reset clears attendants, evaluations, and all derived state. The
// achievement catalog is configuration and survives a reset. Intended for
// demo scenario loading only.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", translateErr(err))
	}
	defer sqlTx.Rollback()

	for _, table := range []string{
		"performance_metrics",
		"achievement_grants",
		"gamification_state",
		"evaluations",
		"attendants",
	} {
		if _, err := sqlTx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, translateErr(err))
		}
	}
	return translateErr(sqlTx.Commit())
}

// =============================================================================
// TRANSACTIONAL STORE (gamification.TxStores interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(gamification.Stores) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", translateErr(err))
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx, parent: s}); err != nil {
		return err
	}
	return translateErr(sqlTx.Commit())
}

type txStore struct {
	tx     *sql.Tx
	parent *Store
}

func (ts *txStore) GetEvaluation(ctx context.Context, id gamification.EvaluationID) (*gamification.Evaluation, error) {
	return ts.parent.getEvaluation(ctx, ts.tx, id)
}

func (ts *txStore) EvaluationsByEntity(ctx context.Context, entityID gamification.EntityID) ([]gamification.Evaluation, error) {
	return ts.parent.evaluationsByEntity(ctx, ts.tx, entityID)
}

func (ts *txStore) EvaluationsInRange(ctx context.Context, entityID gamification.EntityID, from, to time.Time) ([]gamification.Evaluation, error) {
	return ts.parent.evaluationsInRange(ctx, ts.tx, entityID, from, to)
}

func (ts *txStore) EntityExists(ctx context.Context, id gamification.EntityID) (bool, error) {
	return ts.parent.entityExists(ctx, ts.tx, id)
}

func (ts *txStore) GetState(ctx context.Context, entityID gamification.EntityID) (*gamification.GamificationState, error) {
	return ts.parent.getState(ctx, ts.tx, entityID)
}

func (ts *txStore) SaveState(ctx context.Context, state gamification.GamificationState, expected time.Time) error {
	return ts.parent.saveState(ctx, ts.tx, state, expected)
}

func (ts *txStore) DeleteState(ctx context.Context, entityID gamification.EntityID) error {
	return ts.parent.deleteState(ctx, ts.tx, entityID)
}

func (ts *txStore) GrantsByEntity(ctx context.Context, entityID gamification.EntityID) ([]gamification.AchievementGrant, error) {
	return ts.parent.grantsByEntity(ctx, ts.tx, entityID)
}

func (ts *txStore) InsertGrant(ctx context.Context, grant gamification.AchievementGrant) error {
	return ts.parent.insertGrant(ctx, ts.tx, grant)
}

func (ts *txStore) DeleteGrants(ctx context.Context, entityID gamification.EntityID) error {
	return ts.parent.deleteGrants(ctx, ts.tx, entityID)
}

func (ts *txStore) ActiveDefinitions(ctx context.Context) ([]gamification.AchievementDefinition, error) {
	return ts.parent.queryDefinitions(ctx, ts.tx, `
		SELECT id, name, description, requirement_json, points_awarded, active
		FROM achievement_definitions WHERE active = 1 ORDER BY id`)
}

func (ts *txStore) UpsertMetric(ctx context.Context, metric gamification.PerformanceMetric) error {
	return ts.parent.upsertMetric(ctx, ts.tx, metric)
}

func (ts *txStore) GetMetric(ctx context.Context, entityID gamification.EntityID, period gamification.Period) (*gamification.PerformanceMetric, error) {
	return ts.parent.getMetric(ctx, ts.tx, entityID, period)
}
