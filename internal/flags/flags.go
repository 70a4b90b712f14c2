// Package flags holds the session boolean state scripts read and write:
// story flags and skip flags. The two planes never affect each other.
package flags

import (
	"errors"
	"fmt"
)

// ErrOutOfRange is returned for ids at or beyond a plane's limit.
var ErrOutOfRange = errors.New("flag id out of range")

// Plane is a bit array addressable in [0, limit). Storage grows on write;
// unset bits inside the limit read as false.
type Plane struct {
	name  string
	words []uint64
	limit uint32
}

func NewPlane(name string, limit uint32) *Plane {
	return &Plane{name: name, limit: limit}
}

func (p *Plane) Name() string  { return p.name }
func (p *Plane) Limit() uint32 { return p.limit }

func (p *Plane) check(id uint32) error {
	if id >= p.limit {
		return fmt.Errorf("%s flag %d (limit %d): %w", p.name, id, p.limit, ErrOutOfRange)
	}
	return nil
}

func (p *Plane) Get(id uint32) (bool, error) {
	if err := p.check(id); err != nil {
		return false, err
	}
	w := int(id / 64)
	if w >= len(p.words) {
		return false, nil
	}
	return p.words[w]&(1<<(id%64)) != 0, nil
}

func (p *Plane) Set(id uint32, v bool) error {
	if err := p.check(id); err != nil {
		return err
	}
	w := int(id / 64)
	if w >= len(p.words) {
		if !v {
			return nil
		}
		grown := make([]uint64, w+1)
		copy(grown, p.words)
		p.words = grown
	}
	if v {
		p.words[w] |= 1 << (id % 64)
	} else {
		p.words[w] &^= 1 << (id % 64)
	}
	return nil
}

// Reset clears every bit.
func (p *Plane) Reset() {
	p.words = nil
}

// Count returns the number of set bits.
func (p *Plane) Count() int {
	n := 0
	for _, w := range p.words {
		for ; w != 0; w &= w - 1 {
			n++
		}
	}
	return n
}

// Bytes encodes the plane little-endian, bit i of byte i/8 holding flag i.
func (p *Plane) Bytes() []byte {
	out := make([]byte, len(p.words)*8)
	for i, w := range p.words {
		for b := 0; b < 8; b++ {
			out[i*8+b] = byte(w >> (8 * b))
		}
	}
	// trim trailing zero bytes so saves stay small
	n := len(out)
	for n > 0 && out[n-1] == 0 {
		n--
	}
	return out[:n]
}

// Load replaces the plane contents with an encoding produced by Bytes.
// Bits at or beyond the limit are dropped.
func (p *Plane) Load(data []byte) {
	p.words = make([]uint64, (len(data)+7)/8)
	for i, b := range data {
		p.words[i/8] |= uint64(b) << (8 * (i % 8))
	}
	maxWords := int((p.limit + 63) / 64)
	if len(p.words) > maxWords {
		p.words = p.words[:maxWords]
	}
	if rem := p.limit % 64; rem != 0 && len(p.words) == maxWords {
		p.words[maxWords-1] &= (1 << rem) - 1
	}
}

// Store is the pair of planes owned by one script host session.
type Store struct {
	Story *Plane
	Skip  *Plane
}

func NewStore(storyLimit, skipLimit uint32) *Store {
	return &Store{
		Story: NewPlane("story", storyLimit),
		Skip:  NewPlane("skip", skipLimit),
	}
}

func (s *Store) GetFlag(id uint32) (bool, error)     { return s.Story.Get(id) }
func (s *Store) SetFlag(id uint32, v bool) error     { return s.Story.Set(id, v) }
func (s *Store) GetSkipFlag(id uint32) (bool, error) { return s.Skip.Get(id) }
func (s *Store) SetSkipFlag(id uint32, v bool) error { return s.Skip.Set(id, v) }
