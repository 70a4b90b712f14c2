package sim

// The player directory is derived from the slot table on every call so
// joins, leaves and stage travel are always reflected.

// OnlinePlayers returns every connected participant in slot order.
func (s *State) OnlinePlayers() []*Player {
	var out []*Player
	s.EachPlayer(func(p *Player) {
		if p.Online {
			out = append(out, p)
		}
	})
	return out
}

// MapPlayers returns online players on the current stage.
func (s *State) MapPlayers() []*Player {
	var out []*Player
	s.EachPlayer(func(p *Player) {
		if p.Online && p.StageID == s.Stage.ID {
			out = append(out, p)
		}
	})
	return out
}

// LocalPlayer returns the host-controlled player.
func (s *State) LocalPlayer() (*Player, bool) {
	if s.local.IsZero() {
		return nil, false
	}
	p, err := s.Player(s.local)
	return p, err == nil
}

// ClosestPlayer returns the map player nearest to n by Manhattan distance,
// ties going to the lower slot. Precondition: at least one map player.
func (s *State) ClosestPlayer(n *NPC) (*Player, error) {
	var (
		best     *Player
		bestDist int64
	)
	for _, p := range s.MapPlayers() {
		d := abs64(int64(p.X)-int64(n.X)) + abs64(int64(p.Y)-int64(n.Y))
		if best == nil || d < bestDist {
			best, bestDist = p, d
		}
	}
	if best == nil {
		return nil, ErrNoPlayers
	}
	return best, nil
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
