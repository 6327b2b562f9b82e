package viewer

import (
	"fmt"

	"github.com/Faultbox/castleview/internal/config"
)

// Scheduler advances character animations once per frame.
type Scheduler interface {
	Step(dt float32)
}

// RoundRobin advances one character per frame, cycling through them in
// order. A character that is not ready loses its turn.
type RoundRobin struct {
	chars  []*Character
	cursor int
}

// NewRoundRobin creates a scheduler over chars with the cursor at 0.
func NewRoundRobin(chars []*Character) *RoundRobin {
	return &RoundRobin{chars: chars}
}

// Cursor returns the index of the character whose turn is next.
func (s *RoundRobin) Cursor() int {
	return s.cursor
}

// Step gives the current character its turn and moves the cursor on.
func (s *RoundRobin) Step(dt float32) {
	n := len(s.chars)
	if n == 0 {
		return
	}
	if c := s.chars[s.cursor]; c.Ready {
		c.Mixer.Update(dt)
	}
	s.cursor = (s.cursor + 1) % n
}

// EveryFrame advances every ready character each frame.
type EveryFrame struct {
	chars []*Character
}

// NewEveryFrame creates a scheduler over chars.
func NewEveryFrame(chars []*Character) *EveryFrame {
	return &EveryFrame{chars: chars}
}

// Step advances every ready character by dt.
func (s *EveryFrame) Step(dt float32) {
	for _, c := range s.chars {
		if c.Ready {
			c.Mixer.Update(dt)
		}
	}
}

// NewScheduler returns the scheduler for a config policy name.
func NewScheduler(policy string, chars []*Character) (Scheduler, error) {
	switch policy {
	case config.PolicyRoundRobin, "":
		return NewRoundRobin(chars), nil
	case config.PolicyEveryFrame:
		return NewEveryFrame(chars), nil
	default:
		return nil, fmt.Errorf("unknown animation policy %q", policy)
	}
}
