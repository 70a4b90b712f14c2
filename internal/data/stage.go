package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// NpcSpawn places one NPC when a stage is loaded. Coordinates are pixels.
type NpcSpawn struct {
	Slot      uint32  `yaml:"slot"` // 0 = first free slot
	Type      uint16  `yaml:"type"`
	X         float64 `yaml:"x"`
	Y         float64 `yaml:"y"`
	Direction int     `yaml:"direction"`
	FlagNum   uint16  `yaml:"flag_num"`
	EventNum  uint16  `yaml:"event_num"`
	ParentID  uint16  `yaml:"parent_id"`
	Life      uint16  `yaml:"life"`
}

// PlayerSpawn places a participant. Only one entry may be local.
type PlayerSpawn struct {
	X       float64 `yaml:"x"`
	Y       float64 `yaml:"y"`
	Life    int16   `yaml:"life"`
	StageID int     `yaml:"stage_id"` // 0 = the stage being loaded
	Local   bool    `yaml:"local"`
}

// StageDef holds static data for one stage loaded from YAML.
type StageDef struct {
	ID       int           `yaml:"id"`
	Name     string        `yaml:"name"`
	Width    float64       `yaml:"width"`  // pixels
	Height   float64       `yaml:"height"` // pixels
	Seed     uint64        `yaml:"seed"`
	Lighting string        `yaml:"lighting"` // none, backgroundOnly, ambient
	Npcs     []NpcSpawn    `yaml:"npcs"`
	Players  []PlayerSpawn `yaml:"players"`
}

type stageListFile struct {
	Stages []StageDef `yaml:"stages"`
}

// StageTable holds all stage definitions indexed by ID, in file order.
type StageTable struct {
	stages map[int]*StageDef
	order  []int
}

// LoadStageTable loads stage definitions from a YAML file.
func LoadStageTable(path string) (*StageTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stage_list: %w", err)
	}
	return ParseStageTable(raw)
}

// ParseStageTable decodes a stage list document.
func ParseStageTable(raw []byte) (*StageTable, error) {
	var f stageListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse stage_list: %w", err)
	}
	t := &StageTable{stages: make(map[int]*StageDef, len(f.Stages))}
	for i := range f.Stages {
		s := &f.Stages[i]
		if _, dup := t.stages[s.ID]; dup {
			return nil, fmt.Errorf("parse stage_list: duplicate stage id %d", s.ID)
		}
		locals := 0
		for _, p := range s.Players {
			if p.Local {
				locals++
			}
		}
		if locals > 1 {
			return nil, fmt.Errorf("parse stage_list: stage %d has %d local players", s.ID, locals)
		}
		t.stages[s.ID] = s
		t.order = append(t.order, s.ID)
	}
	return t, nil
}

// Get returns a stage by ID, or nil if not found.
func (t *StageTable) Get(id int) *StageDef {
	return t.stages[id]
}

// First returns the first stage in file order, or nil for an empty table.
func (t *StageTable) First() *StageDef {
	if len(t.order) == 0 {
		return nil
	}
	return t.stages[t.order[0]]
}

// Count returns the number of loaded stages.
func (t *StageTable) Count() int {
	return len(t.stages)
}
