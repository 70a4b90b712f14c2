package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/l1jgo/stagescript/internal/config"
	"github.com/l1jgo/stagescript/internal/core/event"
	coresys "github.com/l1jgo/stagescript/internal/core/system"
	"github.com/l1jgo/stagescript/internal/data"
	"github.com/l1jgo/stagescript/internal/flags"
	"github.com/l1jgo/stagescript/internal/persist"
	"github.com/l1jgo/stagescript/internal/scripting"
	"github.com/l1jgo/stagescript/internal/settings"
	"github.com/l1jgo/stagescript/internal/sim"
	"github.com/l1jgo/stagescript/internal/system"
)

const defaultConfigPath = "config/stagehost.toml"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(name string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Printf("\033[36;1m  │\033[0m  %-41s\033[36;1m│\033[0m\n", name+" stage host")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Host logic ─────────────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, level, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name)

	// 3. Profile storage
	printSection("profile")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	repo, err := persist.Open(ctx, cfg.Profile, log)
	if err != nil {
		return fmt.Errorf("open profile store: %w", err)
	}
	if repo != nil {
		defer repo.Close()
		printOK(fmt.Sprintf("%s backend, slot %d", cfg.Profile.Backend, cfg.Profile.Slot))
	} else {
		printOK("persistence disabled")
	}

	// 4. Stage data
	printSection("stage data")
	stages, err := data.LoadStageTable(cfg.Simulation.StageFile)
	if err != nil {
		return fmt.Errorf("load stages: %w", err)
	}
	printStat("stages", stages.Count())
	def := stages.First()
	if cfg.Simulation.StageID != 0 {
		def = stages.Get(cfg.Simulation.StageID)
	}
	if def == nil {
		return fmt.Errorf("stage %d not found in %s", cfg.Simulation.StageID, cfg.Simulation.StageFile)
	}

	// 5. Simulation and script host
	bus := event.NewBus()
	state := sim.NewState(cfg.Simulation.NpcSlots, cfg.Simulation.PlayerSlots, bus)
	state.Audio = newLogAudio(log)
	fl := flags.NewStore(cfg.Flags.StoryLimit, cfg.Flags.SkipLimit)
	settingsBridge := settings.NewBridge("setting", log)
	stageParams := settings.NewBridge("stage param", log)

	host := scripting.NewHost(scripting.Options{
		Dir:                 cfg.Scripting.Dir,
		Encoding:            cfg.Scripting.Encoding,
		CallTimeout:         cfg.Scripting.CallTimeout,
		CompatPlayerSetters: cfg.Scripting.CompatPlayerSetters,
	}, scripting.Deps{
		State:       state,
		Flags:       fl,
		Settings:    settingsBridge,
		StageParams: stageParams,
		Bus:         bus,
		Log:         log,
	})
	defer host.Close()
	event.Subscribe(bus, func(e event.ScriptsReloaded) {
		log.Info("script host reloaded", zap.Int("scripts", e.Scripts))
	})

	printSection("scripts")
	var persistSys *system.PersistenceSystem
	if repo != nil {
		persistSys = system.NewPersistenceSystem(repo, fl, cfg.Profile.Slot, host.SessionID(), log, cfg.Profile.AutosaveTicks)
		restored, err := persistSys.Restore(ctx)
		if err != nil {
			return fmt.Errorf("restore profile: %w", err)
		}
		if restored {
			printStat("story flags", fl.Story.Count())
			printStat("skip flags", fl.Skip.Count())
		}
	}
	if err := host.Load(); err != nil {
		return fmt.Errorf("load scripts: %w", err)
	}
	printStat("scripts", host.Scripts())
	printOK(fmt.Sprintf("%s of lua source, api v%d", humanize.Bytes(uint64(host.SourceSize())), scripting.APIVersion))
	printStat("npc overrides", host.Overrides().Len())

	if err := state.LoadStage(def); err != nil {
		return fmt.Errorf("load stage: %w", err)
	}
	printOK(fmt.Sprintf("stage %d %q: %d npcs", def.ID, def.Name, state.NpcCount()))

	// 6. Create systems and register with runner
	runner := coresys.NewRunner()
	if cfg.Scripting.HotReload {
		watcher, err := scripting.NewWatcher(cfg.Scripting.Dir)
		if err != nil {
			return fmt.Errorf("watch scripts: %w", err)
		}
		defer watcher.Close()
		runner.Register(system.NewReloadSystem(host, watcher.Events, watcher.Errors, log))
		printOK("hot reload enabled")
	}
	runner.Register(system.NewEventSystem(bus))
	runner.Register(system.NewNpcSystem(state, host))
	runner.Register(system.NewScriptTickSystem(host))
	if persistSys != nil {
		runner.Register(persistSys)
	}
	runner.Register(system.NewCleanupSystem(state, bus))

	// 7. Start game loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	tickRate := cfg.Simulation.TickRate
	ticker := time.NewTicker(tickRate)
	defer ticker.Stop()

	stageParams.Handle("lightingMode", func(v settings.Value) {
		if v.Kind != settings.KindString {
			log.Warn("lightingMode expects a string", zap.Stringer("value", v))
			return
		}
		state.Stage.Lighting = v.Str
	})
	settingsBridge.Handle("tickRate", func(v settings.Value) {
		d, ok := tickInterval(v)
		if !ok {
			log.Warn("tickRate expects ticks per second",
				zap.Stringer("value", v),
				zap.Duration("min_tick", minTickInterval),
				zap.Duration("max_tick", maxTickInterval))
			return
		}
		tickRate = d
		ticker.Reset(tickRate)
		log.Info("tick rate changed", zap.Duration("tick", tickRate))
	})
	settingsBridge.Handle("logLevel", func(v settings.Value) {
		lvl, ok := logLevel(v)
		if !ok {
			log.Warn("invalid logLevel", zap.Stringer("value", v))
			return
		}
		level.SetLevel(lvl)
	})

	started := time.Now()
	printSection("ready")
	printReady(fmt.Sprintf("game loop started (tick: %s)", tickRate))
	fmt.Println()

	for {
		select {
		case <-ticker.C:
			runner.Tick(tickRate)
			if cfg.Simulation.MaxTicks > 0 && runner.Ticks() >= cfg.Simulation.MaxTicks {
				log.Info("tick limit reached", zap.Uint64("ticks", runner.Ticks()))
				shutdown(persistSys, started, log)
				return nil
			}
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			shutdown(persistSys, started, log)
			return nil
		}
	}
}

func shutdown(persistSys *system.PersistenceSystem, started time.Time, log *zap.Logger) {
	if persistSys != nil {
		persistSys.SaveNow()
	}
	log.Info("stage host stopped",
		zap.String("uptime", durafmt.Parse(time.Since(started)).LimitFirstN(2).String()))
}

// loadConfig reads STAGESCRIPT_CONFIG, or the default path when present.
func loadConfig() (*config.Config, error) {
	if p := os.Getenv("STAGESCRIPT_CONFIG"); p != "" {
		return config.Load(p)
	}
	cfg, err := config.Load(defaultConfigPath)
	if errors.Is(err, os.ErrNotExist) {
		return config.Default(), nil
	}
	return cfg, err
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, zap.AtomicLevel, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	log, err := zapCfg.Build()
	return log, zapCfg.Level, err
}
