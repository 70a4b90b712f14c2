package system

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	coresys "github.com/l1jgo/stagescript/internal/core/system"
	"github.com/l1jgo/stagescript/internal/flags"
	"github.com/l1jgo/stagescript/internal/persist"
)

// PersistenceSystem periodically saves the flag planes to the profile slot,
// skipping saves when nothing changed. Phase 4 (Persist).
type PersistenceSystem struct {
	repo      persist.ProfileRepo
	flags     *flags.Store
	slot      int
	session   uuid.UUID
	log       *zap.Logger
	tickCount int
	interval  int // auto-save every N ticks
	last      *persist.Profile
}

func NewPersistenceSystem(repo persist.ProfileRepo, fl *flags.Store, slot int, session uuid.UUID, log *zap.Logger, intervalTicks int) *PersistenceSystem {
	return &PersistenceSystem{
		repo:     repo,
		flags:    fl,
		slot:     slot,
		session:  session,
		log:      log,
		interval: intervalTicks,
	}
}

func (s *PersistenceSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *PersistenceSystem) Update(_ time.Duration) {
	if s.interval <= 0 {
		return
	}
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	s.save(true)
}

// Restore loads the saved flags for the slot, if any. A missing profile is
// not an error.
func (s *PersistenceSystem) Restore(ctx context.Context) (bool, error) {
	p, err := s.repo.Load(ctx, s.slot)
	if errors.Is(err, persist.ErrNoProfile) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	p.Apply(s.flags)
	s.last = p
	s.log.Info("profile restored",
		zap.Int("slot", s.slot),
		zap.Int("story_flags", s.flags.Story.Count()),
		zap.Int("skip_flags", s.flags.Skip.Count()),
		zap.Time("saved_at", p.SavedAt))
	return true, nil
}

// SaveNow persists the flags immediately, even when unchanged.
// Called for graceful shutdown.
func (s *PersistenceSystem) SaveNow() {
	s.save(false)
}

func (s *PersistenceSystem) save(changedOnly bool) {
	p := persist.Snapshot(s.slot, s.session, s.flags)
	if changedOnly && p.Equal(s.last) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.repo.Save(ctx, p); err != nil {
		s.log.Error("profile save failed", zap.Int("slot", s.slot), zap.Error(err))
		return
	}
	s.last = p
	s.log.Debug("profile saved", zap.Int("slot", s.slot))
}
