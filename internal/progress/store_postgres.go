package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/p-n-ai/pai-quest/internal/catalog"
	"github.com/p-n-ai/pai-quest/internal/platform/apperr"
)

const dbTimeout = 5 * time.Second

// Schema holds the idempotent DDL for the PostgreSQL store.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS quest_users (
		user_id    BIGINT PRIMARY KEY,
		username   TEXT NOT NULL,
		experience INTEGER NOT NULL DEFAULT 0 CHECK (experience >= 0),
		coins      INTEGER NOT NULL DEFAULT 0,
		level      INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS user_progress (
		user_id            BIGINT NOT NULL,
		lesson_id          BIGINT NOT NULL,
		completed          BOOLEAN NOT NULL DEFAULT FALSE,
		score              INTEGER CHECK (score BETWEEN 0 AND 100),
		attempts           INTEGER NOT NULL DEFAULT 0,
		first_completed_at TIMESTAMPTZ,
		updated_at         TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (user_id, lesson_id)
	)`,
	`CREATE TABLE IF NOT EXISTS completion_events (
		id            UUID PRIMARY KEY,
		seq           BIGSERIAL,
		user_id       BIGINT NOT NULL,
		lesson_id     BIGINT NOT NULL,
		level         TEXT NOT NULL,
		lesson_type   TEXT NOT NULL,
		experience    INTEGER NOT NULL CHECK (experience >= 0),
		coins         INTEGER NOT NULL CHECK (coins >= 0),
		score         INTEGER,
		study_minutes INTEGER NOT NULL DEFAULT 0,
		created_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS completion_events_user_created_idx
		ON completion_events (user_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS completion_events_created_idx
		ON completion_events (created_at)`,
	`CREATE TABLE IF NOT EXISTS achievements (
		id               UUID PRIMARY KEY,
		user_id          BIGINT NOT NULL,
		code             TEXT NOT NULL,
		achievement_type TEXT NOT NULL,
		title            TEXT NOT NULL,
		description      TEXT NOT NULL,
		badge_url        TEXT,
		earned_at        TIMESTAMPTZ NOT NULL,
		UNIQUE (user_id, code)
	)`,
}

// PostgresStore is a PostgreSQL-backed Store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store on an existing pool. The tables in
// Schema must already exist.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

// LockUser takes a session advisory lock keyed on userID, so replicas
// sharing the database serialize a user's read-modify-write. The lock
// holds a pooled connection until released.
func (s *PostgresStore) LockUser(ctx context.Context, userID int64) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1::bigint)`, userID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("advisory lock: %w", err)
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
		defer cancel()
		if _, err := conn.Exec(ctx, `SELECT pg_advisory_unlock($1::bigint)`, userID); err != nil {
			slog.Warn("advisory unlock failed, dropping connection", "user_id", userID, "error", err)
			// Closing the session releases its advisory locks.
			_ = conn.Conn().Close(ctx)
		}
		conn.Release()
	}, nil
}

func (s *PostgresStore) GetProgress(ctx context.Context, userID, lessonID int64) (Progress, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	p := Progress{UserID: userID, LessonID: lessonID}
	err := s.pool.QueryRow(ctx,
		`SELECT completed, score, attempts, first_completed_at, updated_at
		 FROM user_progress
		 WHERE user_id = $1 AND lesson_id = $2`,
		userID,
		lessonID,
	).Scan(&p.Completed, &p.Score, &p.Attempts, &p.FirstCompletedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Progress{}, false, nil
	}
	if err != nil {
		return Progress{}, false, fmt.Errorf("get progress: %w", err)
	}
	return p, true, nil
}

func (s *PostgresStore) ListProgress(ctx context.Context, userID int64) ([]Progress, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT lesson_id, completed, score, attempts, first_completed_at, updated_at
		 FROM user_progress
		 WHERE user_id = $1
		 ORDER BY lesson_id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	defer rows.Close()

	out := []Progress{}
	for rows.Next() {
		p := Progress{UserID: userID}
		if err := rows.Scan(&p.LessonID, &p.Completed, &p.Score, &p.Attempts, &p.FirstCompletedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate progress: %w", err)
	}
	return out, nil
}

const selectEvents = `SELECT id::text, user_id, lesson_id, level, lesson_type, experience, coins, score, study_minutes, created_at
	FROM completion_events`

func (s *PostgresStore) ListEvents(ctx context.Context, userID int64, since time.Time) ([]Event, error) {
	return s.queryEvents(ctx,
		selectEvents+` WHERE user_id = $1 AND created_at >= $2 ORDER BY created_at ASC, seq ASC`,
		userID, since,
	)
}

func (s *PostgresStore) ListAllEvents(ctx context.Context, since time.Time) ([]Event, error) {
	return s.queryEvents(ctx,
		selectEvents+` WHERE created_at >= $1 ORDER BY created_at ASC, seq ASC`,
		since,
	)
}

func (s *PostgresStore) queryEvents(ctx context.Context, query string, args ...any) ([]Event, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	out := []Event{}
	for rows.Next() {
		var e Event
		var id, level, lessonType string
		if err := rows.Scan(
			&id,
			&e.UserID,
			&e.LessonID,
			&level,
			&lessonType,
			&e.Experience,
			&e.Coins,
			&e.Score,
			&e.StudyMinutes,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse event id: %w", err)
		}
		e.Level = catalog.Level(level)
		e.LessonType = catalog.LessonType(lessonType)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, userID int64) (User, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	u := User{UserID: userID}
	err := s.pool.QueryRow(ctx,
		`SELECT username, experience, coins, level, created_at, updated_at
		 FROM quest_users
		 WHERE user_id = $1`,
		userID,
	).Scan(&u.Username, &u.Experience, &u.Coins, &u.Level, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, apperr.NotFound("progress.GetUser", "user %d not found", userID)
	}
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) SaveUser(ctx context.Context, u User) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	return saveUser(ctx, s.pool, u)
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]User, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT user_id, username, experience, coins, level, created_at, updated_at
		 FROM quest_users
		 ORDER BY user_id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	out := []User{}
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.UserID, &u.Username, &u.Experience, &u.Coins, &u.Level, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Apply(ctx context.Context, u Update) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		p := u.Progress
		if _, err := tx.Exec(ctx,
			`INSERT INTO user_progress (user_id, lesson_id, completed, score, attempts, first_completed_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (user_id, lesson_id) DO UPDATE SET
			   completed = EXCLUDED.completed,
			   score = EXCLUDED.score,
			   attempts = EXCLUDED.attempts,
			   first_completed_at = COALESCE(user_progress.first_completed_at, EXCLUDED.first_completed_at),
			   updated_at = EXCLUDED.updated_at`,
			p.UserID,
			p.LessonID,
			p.Completed,
			p.Score,
			p.Attempts,
			p.FirstCompletedAt,
			p.UpdatedAt,
		); err != nil {
			return fmt.Errorf("upsert progress: %w", err)
		}

		if e := u.Event; e != nil {
			if _, err := tx.Exec(ctx,
				`INSERT INTO completion_events
				   (id, user_id, lesson_id, level, lesson_type, experience, coins, score, study_minutes, created_at)
				 VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
				e.ID.String(),
				e.UserID,
				e.LessonID,
				string(e.Level),
				string(e.LessonType),
				e.Experience,
				e.Coins,
				e.Score,
				e.StudyMinutes,
				e.CreatedAt,
			); err != nil {
				return fmt.Errorf("insert event: %w", err)
			}
		}

		return saveUser(ctx, tx, u.User)
	})
	if err != nil {
		return fmt.Errorf("apply update: %w", err)
	}
	return nil
}

func (s *PostgresStore) AddAchievement(ctx context.Context, a Achievement) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := s.pool.Exec(ctx,
		`INSERT INTO achievements (id, user_id, code, achievement_type, title, description, badge_url, earned_at)
		 VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (user_id, code) DO NOTHING`,
		a.ID.String(),
		a.UserID,
		a.Code,
		string(a.Type),
		a.Title,
		a.Description,
		nullIfEmpty(a.BadgeURL),
		a.EarnedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert achievement: %w", err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (s *PostgresStore) ListAchievements(ctx context.Context, userID int64) ([]Achievement, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT id::text, user_id, code, achievement_type, title, description, badge_url, earned_at
		 FROM achievements
		 WHERE $1::bigint = 0 OR user_id = $1::bigint
		 ORDER BY earned_at ASC, id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query achievements: %w", err)
	}
	defer rows.Close()

	out := []Achievement{}
	for rows.Next() {
		var a Achievement
		var id, typ string
		var badge *string
		if err := rows.Scan(&id, &a.UserID, &a.Code, &typ, &a.Title, &a.Description, &badge, &a.EarnedAt); err != nil {
			return nil, fmt.Errorf("scan achievement: %w", err)
		}
		if a.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse achievement id: %w", err)
		}
		a.Type = AchievementType(typ)
		if badge != nil {
			a.BadgeURL = *badge
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate achievements: %w", err)
	}
	return out, nil
}

// execer is satisfied by both *pgxpool.Pool and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func saveUser(ctx context.Context, db execer, u User) error {
	_, err := db.Exec(ctx,
		`INSERT INTO quest_users (user_id, username, experience, coins, level, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (user_id) DO UPDATE SET
		   username = EXCLUDED.username,
		   experience = EXCLUDED.experience,
		   coins = EXCLUDED.coins,
		   level = EXCLUDED.level,
		   updated_at = EXCLUDED.updated_at`,
		u.UserID,
		u.Username,
		u.Experience,
		u.Coins,
		u.Level,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}
