package main

import (
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/l1jgo/stagescript/internal/settings"
)

// Bounds for a script-requested tick rate.
const (
	minTickInterval = time.Millisecond
	maxTickInterval = time.Minute
)

// tickInterval converts a tickRate setting (ticks per second) into a ticker
// interval. Values that would give an interval outside the bounds are refused.
func tickInterval(v settings.Value) (time.Duration, bool) {
	if v.Kind != settings.KindNumber || !(v.Number > 0) {
		return 0, false
	}
	d := float64(time.Second) / v.Number
	if !(d >= float64(minTickInterval) && d <= float64(maxTickInterval)) {
		return 0, false
	}
	return time.Duration(d), true
}

// logLevel parses a logLevel setting. Only non-empty level names are accepted.
func logLevel(v settings.Value) (zapcore.Level, bool) {
	if v.Kind != settings.KindString || v.Str == "" {
		return 0, false
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(v.Str)); err != nil {
		return 0, false
	}
	return lvl, true
}
