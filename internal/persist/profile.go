package persist

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/l1jgo/stagescript/internal/flags"
)

// ErrNoProfile is returned when a save slot has never been written.
var ErrNoProfile = errors.New("no saved profile")

// Profile is the persisted form of a session's flag planes.
type Profile struct {
	Slot       int
	Session    uuid.UUID
	StoryFlags []byte
	SkipFlags  []byte
	SavedAt    time.Time
}

// ProfileRepo stores one profile per save slot.
type ProfileRepo interface {
	Load(ctx context.Context, slot int) (*Profile, error)
	Save(ctx context.Context, p *Profile) error
	Close() error
}

// Snapshot captures the current flag planes.
func Snapshot(slot int, session uuid.UUID, fl *flags.Store) *Profile {
	return &Profile{
		Slot:       slot,
		Session:    session,
		StoryFlags: nonNil(fl.Story.Bytes()),
		SkipFlags:  nonNil(fl.Skip.Bytes()),
		SavedAt:    time.Now().UTC(),
	}
}

// Apply replaces the flag planes with the saved ones.
func (p *Profile) Apply(fl *flags.Store) {
	fl.Story.Load(p.StoryFlags)
	fl.Skip.Load(p.SkipFlags)
}

// Equal reports whether two profiles hold the same flags.
func (p *Profile) Equal(o *Profile) bool {
	if p == nil || o == nil {
		return p == o
	}
	return string(p.StoryFlags) == string(o.StoryFlags) &&
		string(p.SkipFlags) == string(o.SkipFlags)
}

// bytea/blob columns are NOT NULL
func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
