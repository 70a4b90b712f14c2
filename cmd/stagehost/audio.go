package main

import "go.uber.org/zap"

// logAudio stands in for a sound backend: the headless host only records
// what scripts asked to play.
type logAudio struct {
	log *zap.Logger
}

func newLogAudio(log *zap.Logger) *logAudio {
	return &logAudio{log: log.Named("audio")}
}

func (a *logAudio) PlaySfx(id int) {
	a.log.Debug("sfx", zap.Int("id", id))
}

func (a *logAudio) PlaySfxLoop(id int) {
	a.log.Debug("sfx loop", zap.Int("id", id))
}

func (a *logAudio) PlayMusic(id int, fadeout bool) {
	if id == 0 {
		a.log.Debug("music stop", zap.Bool("fadeout", fadeout))
		return
	}
	a.log.Debug("music", zap.Int("id", id))
}
