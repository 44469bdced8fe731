/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package exchange

// Session owns one Assignment and the Sequencer revealing it. It is not
// safe for concurrent use; callers serialize access.
type Session struct {
	roster    Roster
	forbidden Forbidden
	matcher   *Matcher

	assignment *Assignment
	sequencer  *Sequencer
	err        error
	generation int
}

// NewSession draws the first pairing immediately. A failed draw leaves the
// session in the failed state; check Err.
func NewSession(roster Roster, forbidden Forbidden, matcher *Matcher) *Session {
	if matcher == nil {
		matcher = NewMatcher()
	}

	s := &Session{
		roster:    roster,
		forbidden: forbidden,
		matcher:   matcher,
	}

	_ = s.Reset()

	return s
}

// Reset throws away the current pairing and reveal progress and draws a new
// pairing. The assignment and sequencer are always replaced together.
func (s *Session) Reset() error {
	a, err := s.matcher.Generate(s.roster, s.forbidden)

	s.generation++

	if err != nil {
		s.assignment, s.sequencer, s.err = nil, nil, err

		return err
	}

	s.assignment, s.sequencer, s.err = a, NewSequencer(a), nil

	return nil
}

func (s *Session) Err() error {
	return s.err
}

// Generation counts draws, starting at 1 for the pairing made by NewSession.
func (s *Session) Generation() int {
	return s.generation
}

func (s *Session) Roster() Roster {
	return s.roster
}

// Assignment is nil while the session is failed.
func (s *Session) Assignment() *Assignment {
	return s.assignment
}

func (s *Session) Reveal() bool {
	if s.sequencer == nil {
		return false
	}

	return s.sequencer.Reveal()
}

func (s *Session) Advance() bool {
	if s.sequencer == nil {
		return false
	}

	return s.sequencer.Advance()
}

func (s *Session) View() View {
	if s.sequencer == nil {
		return View{
			Phase: PhaseFailed,
			Total: s.roster.Len(),
			Err:   s.err,
		}
	}

	return s.sequencer.View()
}

func (s *Session) Export() ([]Pair, bool) {
	if s.sequencer == nil {
		return nil, false
	}

	return s.sequencer.Export()
}
