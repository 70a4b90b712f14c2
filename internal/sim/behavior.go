package sim

// Built-in NPC types. Any type without an entry here is inert unless a
// script installs an override for it.
const (
	TypeNull         uint16 = 0
	TypeFaller       uint16 = 1
	TypeTimedDespawn uint16 = 3
	TypeWalker       uint16 = 5
	TypeChild        uint16 = 6
)

const (
	gravity     = 0x40
	maxFallVel  = 0x5ff
	walkAccel   = 0x20
	maxWalkVel  = 0x200
	despawnTime = 100
)

// Behavior is a built-in per-type tick function.
type Behavior func(s *State, n *NPC)

var builtins = map[uint16]Behavior{
	TypeNull:         func(*State, *NPC) {},
	TypeFaller:       tickFaller,
	TypeTimedDespawn: tickTimedDespawn,
	TypeWalker:       tickWalker,
	TypeChild:        tickChild,
}

// HasBuiltin reports whether a type has built-in behavior.
func HasBuiltin(npcType uint16) bool {
	_, ok := builtins[npcType]
	return ok
}

// RunBuiltin runs the built-in behavior of n's type, if any.
func (s *State) RunBuiltin(n *NPC) {
	if b, ok := builtins[n.Type]; ok {
		b(s, n)
	}
}

func tickFaller(_ *State, n *NPC) {
	n.VelY += gravity
	if n.VelY > maxFallVel {
		n.VelY = maxFallVel
	}
}

func tickTimedDespawn(s *State, n *NPC) {
	n.ActionCounter++
	if n.ActionCounter >= despawnTime {
		_ = s.KillNPC(n.ID)
	}
}

func tickWalker(_ *State, n *NPC) {
	switch n.ActionNum {
	case 0:
		n.ActionNum = 1
		n.AnimRect = Rect{Left: 0, Top: 0, Right: 16, Bottom: 16}
		fallthrough
	case 1:
		if n.Hit&HitLeftWall != 0 {
			n.Direction = DirRight
		} else if n.Hit&HitRightWall != 0 {
			n.Direction = DirLeft
		}
		if n.Direction == DirLeft {
			n.VelX -= walkAccel
		} else {
			n.VelX += walkAccel
		}
		if n.VelX > maxWalkVel {
			n.VelX = maxWalkVel
		}
		if n.VelX < -maxWalkVel {
			n.VelX = -maxWalkVel
		}
		n.AnimCounter++
		if n.AnimCounter > 4 {
			n.AnimCounter = 0
			n.AnimNum = (n.AnimNum + 1) % 4
			n.AnimRect.Left = n.AnimNum * 16
			n.AnimRect.Right = n.AnimRect.Left + 16
		}
	}
}

func tickChild(s *State, n *NPC) {
	parent, ok := s.Parent(n)
	if !ok {
		_ = s.KillNPC(n.ID)
		return
	}
	n.X = parent.X
	n.Y = parent.Y - 16*Unit
}

// Integrate applies velocity and clamps to the stage bounds, recording which
// sides were hit. Velocities are left as they are.
func (s *State) Integrate(n *NPC) {
	n.Hit = 0
	n.X += n.VelX
	n.Y += n.VelY
	if s.Stage.Width > 0 {
		if n.X < 0 {
			n.X = 0
			n.Hit |= HitLeftWall
		} else if n.X > s.Stage.Width {
			n.X = s.Stage.Width
			n.Hit |= HitRightWall
		}
	}
	if s.Stage.Height > 0 {
		if n.Y < 0 {
			n.Y = 0
			n.Hit |= HitCeiling
		} else if n.Y > s.Stage.Height {
			n.Y = s.Stage.Height
			n.Hit |= HitFloor
		}
	}
}

// TickPlayers advances player timers and positions.
func (s *State) TickPlayers() {
	s.EachPlayer(func(p *Player) {
		if p.Shock > 0 {
			p.Shock--
		}
		if p.StageID != s.Stage.ID {
			return
		}
		p.X += p.VelX
		p.Y += p.VelY
	})
}
