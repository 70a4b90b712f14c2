package sim

import (
	"fmt"

	"github.com/l1jgo/stagescript/internal/core/event"
	"github.com/l1jgo/stagescript/internal/data"
)

// LoadStage replaces the current NPC population with the stage definition and
// places its players. Players already present keep their slots; spawns with
// StageID 0 land on the loaded stage.
func (s *State) LoadStage(def *data.StageDef) error {
	s.ClearNPCs()
	s.Stage = Stage{
		ID:       def.ID,
		Name:     def.Name,
		Width:    ToFixed(def.Width),
		Height:   ToFixed(def.Height),
		Seed:     def.Seed,
		Lighting: def.Lighting,
	}
	for i, sp := range def.Npcs {
		if _, err := s.SpawnNPC(NpcSpawn{
			Slot:      sp.Slot,
			Type:      sp.Type,
			X:         ToFixed(sp.X),
			Y:         ToFixed(sp.Y),
			Direction: sp.Direction,
			FlagNum:   sp.FlagNum,
			EventNum:  sp.EventNum,
			ParentID:  sp.ParentID,
			Life:      sp.Life,
		}); err != nil {
			return fmt.Errorf("stage %d npc #%d: %w", def.ID, i, err)
		}
	}
	for i, sp := range def.Players {
		stageID := sp.StageID
		if stageID == 0 {
			stageID = def.ID
		}
		if _, err := s.AddPlayer(PlayerSpawn{
			X:       ToFixed(sp.X),
			Y:       ToFixed(sp.Y),
			Life:    sp.Life,
			StageID: stageID,
			Local:   sp.Local,
		}); err != nil {
			return fmt.Errorf("stage %d player #%d: %w", def.ID, i, err)
		}
	}
	if s.bus != nil {
		event.Emit(s.bus, event.StageLoaded{StageID: def.ID})
	}
	return nil
}
