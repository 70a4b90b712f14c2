package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PGProfileRepo keeps profiles in Postgres.
type PGProfileRepo struct {
	db *DB
}

func NewPGProfileRepo(db *DB) *PGProfileRepo {
	return &PGProfileRepo{db: db}
}

func (r *PGProfileRepo) Load(ctx context.Context, slot int) (*Profile, error) {
	p := &Profile{Slot: slot}
	var session string
	err := r.db.Pool.QueryRow(ctx,
		`SELECT session::text, story_flags, skip_flags, saved_at
		 FROM profiles WHERE slot = $1`, slot,
	).Scan(&session, &p.StoryFlags, &p.SkipFlags, &p.SavedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoProfile
	}
	if err != nil {
		return nil, fmt.Errorf("load profile %d: %w", slot, err)
	}
	if p.Session, err = uuid.Parse(session); err != nil {
		return nil, fmt.Errorf("load profile %d: session: %w", slot, err)
	}
	return p, nil
}

func (r *PGProfileRepo) Save(ctx context.Context, p *Profile) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO profiles (slot, session, story_flags, skip_flags, saved_at)
		 VALUES ($1, $2::uuid, $3, $4, $5)
		 ON CONFLICT (slot) DO UPDATE SET
		   session = EXCLUDED.session,
		   story_flags = EXCLUDED.story_flags,
		   skip_flags = EXCLUDED.skip_flags,
		   saved_at = EXCLUDED.saved_at`,
		p.Slot, p.Session.String(), nonNil(p.StoryFlags), nonNil(p.SkipFlags), p.SavedAt,
	)
	if err != nil {
		return fmt.Errorf("save profile %d: %w", p.Slot, err)
	}
	return nil
}

// Close releases the pool.
func (r *PGProfileRepo) Close() error {
	r.db.Close()
	return nil
}
