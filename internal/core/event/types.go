package event

import "github.com/l1jgo/stagescript/internal/core/ecs"

// StageLoaded is emitted after a stage definition has been spawned.
type StageLoaded struct {
	StageID int
}

// NpcDied is emitted when an NPC is queued for destruction. The handle is
// still valid when the event is delivered if the destroy queue has not yet
// been flushed; consumers must re-resolve it.
type NpcDied struct {
	ID   ecs.EntityID
	Type uint16
}

// ScriptsReloaded is emitted after the script host swapped in a fresh VM.
type ScriptsReloaded struct {
	Scripts int
}
