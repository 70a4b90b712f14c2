package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteProfileRepo keeps profiles in a local file for single-player hosts.
type SQLiteProfileRepo struct {
	db *sql.DB
}

func NewSQLiteProfileRepo(ctx context.Context, path string) (*SQLiteProfileRepo, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open profile db %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // single writer
	if err := runSQLiteMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("profile db %s: %w", path, err)
	}
	return &SQLiteProfileRepo{db: db}, nil
}

func (r *SQLiteProfileRepo) Load(ctx context.Context, slot int) (*Profile, error) {
	p := &Profile{Slot: slot}
	var (
		session string
		savedAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT session, story_flags, skip_flags, saved_at FROM profiles WHERE slot = ?`, slot,
	).Scan(&session, &p.StoryFlags, &p.SkipFlags, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoProfile
	}
	if err != nil {
		return nil, fmt.Errorf("load profile %d: %w", slot, err)
	}
	if p.Session, err = uuid.Parse(session); err != nil {
		return nil, fmt.Errorf("load profile %d: session: %w", slot, err)
	}
	p.SavedAt = time.UnixMilli(savedAt).UTC()
	return p, nil
}

func (r *SQLiteProfileRepo) Save(ctx context.Context, p *Profile) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (slot, session, story_flags, skip_flags, saved_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (slot) DO UPDATE SET
		   session = excluded.session,
		   story_flags = excluded.story_flags,
		   skip_flags = excluded.skip_flags,
		   saved_at = excluded.saved_at`,
		p.Slot, p.Session.String(), nonNil(p.StoryFlags), nonNil(p.SkipFlags), p.SavedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save profile %d: %w", p.Slot, err)
	}
	return nil
}

func (r *SQLiteProfileRepo) Close() error {
	return r.db.Close()
}
