/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package exchange

import "fmt"

// Phase is the reveal sub-state presented to the device.
type Phase int

const (
	PhaseHidden Phase = iota
	PhaseRevealed
	PhaseDone
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseHidden:
		return "hidden"
	case PhaseRevealed:
		return "revealed"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	for candidate := PhaseHidden; candidate <= PhaseFailed; candidate++ {
		if candidate.String() == string(text) {
			*p = candidate
			return nil
		}
	}

	return fmt.Errorf("unknown phase %q", text)
}

// View is what the device may show right now. Recipient, Next and Last are
// only populated while revealed.
type View struct {
	Phase       Phase
	Step        int
	Total       int
	Participant string
	Recipient   string
	Next        string
	Last        bool
	Err         error
}

// Sequencer walks an Assignment one participant at a time, in roster
// order. Invalid transitions are no-ops.
type Sequencer struct {
	assignment *Assignment
	step       int
	revealed   bool
}

func NewSequencer(a *Assignment) *Sequencer {
	return &Sequencer{assignment: a}
}

func (s *Sequencer) Phase() Phase {
	switch {
	case s.step >= s.assignment.Len():
		return PhaseDone
	case s.revealed:
		return PhaseRevealed
	default:
		return PhaseHidden
	}
}

// Reveal shows the active participant's recipient. It reports whether the
// state changed.
func (s *Sequencer) Reveal() bool {
	if s.Phase() != PhaseHidden {
		return false
	}

	s.revealed = true

	return true
}

// Advance hides the current recipient and moves to the next participant,
// or to Done after the last one. It reports whether the state changed.
func (s *Sequencer) Advance() bool {
	if s.Phase() != PhaseRevealed {
		return false
	}

	s.revealed = false
	s.step++

	return true
}

func (s *Sequencer) View() View {
	n := s.assignment.Len()

	v := View{
		Phase: s.Phase(),
		Step:  s.step,
		Total: n,
	}

	if v.Phase == PhaseDone {
		return v
	}

	giver, receiver := s.assignment.at(s.step)
	v.Participant = giver

	if v.Phase == PhaseRevealed {
		v.Recipient = receiver
		if s.step+1 < n {
			v.Next, _ = s.assignment.at(s.step + 1)
		} else {
			v.Last = true
		}
	}

	return v
}

// Export returns the full pairing once everyone has seen theirs.
func (s *Sequencer) Export() ([]Pair, bool) {
	if s.Phase() != PhaseDone {
		return nil, false
	}

	return s.assignment.Pairs(), true
}
