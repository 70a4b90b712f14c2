package system

import (
	"time"

	"go.uber.org/zap"

	coresys "github.com/l1jgo/stagescript/internal/core/system"
)

// Reloader rebuilds the script VM when its sources changed.
type Reloader interface {
	Reload() (bool, error)
}

// ReloadSystem drains file change notifications and reloads scripts on the
// game loop goroutine. Phase 0 (Input).
type ReloadSystem struct {
	scripts Reloader
	changes <-chan string
	errs    <-chan error
	log     *zap.Logger
}

func NewReloadSystem(scripts Reloader, changes <-chan string, errs <-chan error, log *zap.Logger) *ReloadSystem {
	return &ReloadSystem{scripts: scripts, changes: changes, errs: errs, log: log}
}

func (s *ReloadSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *ReloadSystem) Update(_ time.Duration) {
	var changed []string
drain:
	for {
		select {
		case name, ok := <-s.changes:
			if !ok {
				s.changes = nil
				break drain
			}
			changed = append(changed, name)
		case err, ok := <-s.errs:
			if !ok {
				s.errs = nil
				continue
			}
			s.log.Warn("script watcher error", zap.Error(err))
		default:
			break drain
		}
	}
	if len(changed) == 0 {
		return
	}

	reloaded, err := s.scripts.Reload()
	if err != nil {
		s.log.Error("script reload failed", zap.Strings("changed", changed), zap.Error(err))
		return
	}
	if reloaded {
		s.log.Info("scripts reloaded", zap.Strings("changed", changed))
	}
}
