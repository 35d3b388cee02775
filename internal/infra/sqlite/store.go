package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cogsched/cogsched/internal/domain"
)

// Compile-time check that DB satisfies the storage boundary.
var _ domain.Store = (*DB)(nil)

// ─── Users ──────────────────────────────────────────────────────────────────

// UpsertUser inserts or updates a user record.
func (db *DB) UpsertUser(u domain.User) error {
	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := db.db.Exec(`
		INSERT INTO users (id, external_id, email, name, avatar_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			external_id = excluded.external_id,
			email       = excluded.email,
			name        = excluded.name,
			avatar_url  = excluded.avatar_url
	`, u.ID, nullIfEmpty(u.ExternalID), u.Email, u.Name, u.AvatarURL, createdAt.Format(time.RFC3339))
	return err
}

// GetUser retrieves a user by ID.
func (db *DB) GetUser(id string) (*domain.User, error) {
	var u domain.User
	var external sql.NullString
	var createdStr string
	err := db.db.QueryRow(`
		SELECT id, external_id, email, name, avatar_url, created_at FROM users WHERE id = ?
	`, id).Scan(&u.ID, &external, &u.Email, &u.Name, &u.AvatarURL, &createdStr)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %q: %w", id, domain.ErrUserNotFound)
	}
	if err != nil {
		return nil, err
	}
	u.ExternalID = external.String
	u.CreatedAt = parseTime(createdStr)
	return &u, nil
}

// DeleteUser removes a user; profiles, schedules, TLX entries, weights, and
// streaks cascade.
func (db *DB) DeleteUser(id string) error {
	_, err := db.db.Exec(`DELETE FROM users WHERE id = ?`, id)
	return err
}

// ─── Profiles ───────────────────────────────────────────────────────────────

// UpsertProfile stores the user's profile.
func (db *DB) UpsertProfile(userID string, p domain.Profile) error {
	commitments, err := json.Marshal(p.DailyCommitments)
	if err != nil {
		return err
	}
	breaks, err := json.Marshal(p.BreakPreferences)
	if err != nil {
		return err
	}
	_, err = db.db.Exec(`
		INSERT INTO profiles (user_id, role, chronotype, wake_time, sleep_time, sleep_hours,
			stress_level, daily_commitments, break_preferences, lectures_today, meetings_today, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT(user_id) DO UPDATE SET
			role              = excluded.role,
			chronotype        = excluded.chronotype,
			wake_time         = excluded.wake_time,
			sleep_time        = excluded.sleep_time,
			sleep_hours       = excluded.sleep_hours,
			stress_level      = excluded.stress_level,
			daily_commitments = excluded.daily_commitments,
			break_preferences = excluded.break_preferences,
			lectures_today    = excluded.lectures_today,
			meetings_today    = excluded.meetings_today,
			updated_at        = datetime('now')
	`, userID, string(p.Role), string(p.Chronotype), p.WakeTime, p.SleepTime, p.SleepHours,
		p.StressLevel, string(commitments), string(breaks), p.LecturesToday, p.MeetingsToday)
	return err
}

// GetProfile retrieves the user's profile.
func (db *DB) GetProfile(userID string) (*domain.Profile, error) {
	var p domain.Profile
	var role, chrono, commitments, breaks string
	err := db.db.QueryRow(`
		SELECT role, chronotype, wake_time, sleep_time, sleep_hours, stress_level,
			daily_commitments, break_preferences, lectures_today, meetings_today
		FROM profiles WHERE user_id = ?
	`, userID).Scan(&role, &chrono, &p.WakeTime, &p.SleepTime, &p.SleepHours,
		&p.StressLevel, &commitments, &breaks, &p.LecturesToday, &p.MeetingsToday)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %q: %w", userID, domain.ErrProfileNotFound)
	}
	if err != nil {
		return nil, err
	}
	p.Name = userID
	p.Role = domain.Role(role)
	p.Chronotype = domain.Chronotype(chrono)
	if err := json.Unmarshal([]byte(commitments), &p.DailyCommitments); err != nil {
		return nil, fmt.Errorf("profile %q: daily_commitments: %w", userID, err)
	}
	if err := json.Unmarshal([]byte(breaks), &p.BreakPreferences); err != nil {
		return nil, fmt.Errorf("profile %q: break_preferences: %w", userID, err)
	}
	return &p, nil
}

// ─── Schedules ──────────────────────────────────────────────────────────────

// SaveSchedule stores a produced plan.
func (db *DB) SaveSchedule(s domain.Schedule) error {
	data, err := json.Marshal(s.Plan)
	if err != nil {
		return err
	}
	synced := 0
	if s.CalendarSynced {
		synced = 1
	}
	_, err = db.db.Exec(`
		INSERT INTO schedules (id, user_id, schedule_data, created_at, calendar_synced)
		VALUES (?, ?, ?, ?, ?)
	`, s.ID, s.UserID, string(data), s.CreatedAt.Format(time.RFC3339), synced)
	return err
}

// LatestSchedule returns the most recently created schedule.
func (db *DB) LatestSchedule(userID string) (*domain.Schedule, error) {
	row := db.db.QueryRow(`
		SELECT id, user_id, schedule_data, created_at, calendar_synced
		FROM schedules WHERE user_id = ? ORDER BY created_at DESC LIMIT 1
	`, userID)
	s, err := scanSchedule(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %q: %w", userID, domain.ErrScheduleNotFound)
	}
	return s, err
}

// ListSchedules returns schedules newest first.
func (db *DB) ListSchedules(userID string, limit int) ([]domain.Schedule, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.db.Query(`
		SELECT id, user_id, schedule_data, created_at, calendar_synced
		FROM schedules WHERE user_id = ? ORDER BY created_at DESC LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row rowScanner) (*domain.Schedule, error) {
	var s domain.Schedule
	var data, createdStr string
	var synced int
	if err := row.Scan(&s.ID, &s.UserID, &data, &createdStr, &synced); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(data), &s.Plan); err != nil {
		return nil, fmt.Errorf("schedule %s: %w", s.ID, err)
	}
	s.CreatedAt = parseTime(createdStr)
	s.CalendarSynced = synced == 1
	return &s, nil
}

// ─── TLX Log & Weights ──────────────────────────────────────────────────────

// AppendTLX appends a feedback entry and persists the recalibrated weights in
// one transaction, returning the user's total entry count.
func (db *DB) AppendTLX(userID string, e domain.TLXEntry, w domain.FatigueWeights) (int, error) {
	tx, err := db.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	if _, err := tx.Exec(`
		INSERT INTO tlx_entries (user_id, block_index, mental_demand, effort, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, userID, e.BlockIndex, e.MentalDemand, e.Effort, ts.Format(time.RFC3339)); err != nil {
		return 0, err
	}

	if _, err := tx.Exec(`
		INSERT INTO user_weights (user_id, fatigue_consec_weight, fatigue_total_weight, fatigue_force_break, updated_at)
		VALUES (?, ?, ?, ?, datetime('now'))
		ON CONFLICT(user_id) DO UPDATE SET
			fatigue_consec_weight = excluded.fatigue_consec_weight,
			fatigue_total_weight  = excluded.fatigue_total_weight,
			fatigue_force_break   = excluded.fatigue_force_break,
			updated_at            = datetime('now')
	`, userID, w.ConsecWeight, w.TotalWeight, w.ForceThreshold); err != nil {
		return 0, err
	}

	var count int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM tlx_entries WHERE user_id = ?`, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, tx.Commit()
}

// ListTLX returns TLX entries in chronological order. limit <= 0 means all.
func (db *DB) ListTLX(userID string, limit int) ([]domain.TLXEntry, error) {
	q := `SELECT block_index, mental_demand, effort, created_at FROM tlx_entries WHERE user_id = ? ORDER BY id`
	args := []any{userID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := db.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TLXEntry
	for rows.Next() {
		var e domain.TLXEntry
		var createdStr string
		if err := rows.Scan(&e.BlockIndex, &e.MentalDemand, &e.Effort, &createdStr); err != nil {
			return nil, err
		}
		e.Timestamp = parseTime(createdStr)
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetWeights returns the user's recalibrated weights, or nil when the user
// still runs on config defaults.
func (db *DB) GetWeights(userID string) (*domain.FatigueWeights, error) {
	var w domain.FatigueWeights
	err := db.db.QueryRow(`
		SELECT fatigue_consec_weight, fatigue_total_weight, fatigue_force_break
		FROM user_weights WHERE user_id = ?
	`, userID).Scan(&w.ConsecWeight, &w.TotalWeight, &w.ForceThreshold)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// ─── Streaks ────────────────────────────────────────────────────────────────

// GetStreak returns the user's streak state (zero value when none stored).
func (db *DB) GetStreak(userID string) (*domain.StreakState, error) {
	var s domain.StreakState
	var hadDeep int
	err := db.db.QueryRow(`
		SELECT count, last_date, last_had_deep FROM streaks WHERE user_id = ?
	`, userID).Scan(&s.Count, &s.LastDate, &hadDeep)
	if err == sql.ErrNoRows {
		return &domain.StreakState{}, nil
	}
	if err != nil {
		return nil, err
	}
	s.LastHadDeep = hadDeep == 1
	return &s, nil
}

// SaveStreak persists the streak state.
func (db *DB) SaveStreak(userID string, s domain.StreakState) error {
	hadDeep := 0
	if s.LastHadDeep {
		hadDeep = 1
	}
	_, err := db.db.Exec(`
		INSERT INTO streaks (user_id, count, last_date, last_had_deep)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			count         = excluded.count,
			last_date     = excluded.last_date,
			last_had_deep = excluded.last_had_deep
	`, userID, s.Count, s.LastDate, hadDeep)
	return err
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func parseTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	t, _ := time.Parse("2006-01-02 15:04:05", s)
	return t
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
