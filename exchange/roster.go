/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package exchange

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyRoster        = errors.New("roster has no participants")
	ErrDuplicateName      = errors.New("duplicate participant name")
	ErrBlankName          = errors.New("participant name is blank")
	ErrUnknownParticipant = errors.New("unknown participant")
)

// Roster is the ordered, immutable list of participants for one exchange.
// Order determines the reveal sequence.
type Roster struct {
	names []string
	index map[string]int
}

// NewRoster trims each name and rejects blanks and duplicates.
func NewRoster(names ...string) (Roster, error) {
	if len(names) == 0 {
		return Roster{}, ErrEmptyRoster
	}

	r := Roster{
		names: make([]string, 0, len(names)),
		index: make(map[string]int, len(names)),
	}

	for i, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			return Roster{}, fmt.Errorf("%w (position %d)", ErrBlankName, i+1)
		}
		if _, exists := r.index[name]; exists {
			return Roster{}, fmt.Errorf("%w: %q", ErrDuplicateName, name)
		}

		r.index[name] = len(r.names)
		r.names = append(r.names, name)
	}

	return r, nil
}

func (r Roster) Len() int {
	return len(r.names)
}

func (r Roster) At(i int) string {
	return r.names[i]
}

func (r Roster) Contains(name string) bool {
	_, ok := r.index[name]
	return ok
}

// Names returns a copy of the participant names in roster order.
func (r Roster) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Pair is one directional giver→receiver relation.
type Pair struct {
	Giver    string `json:"giver" yaml:"giver"`
	Receiver string `json:"receiver" yaml:"receiver"`
}

func (p Pair) String() string {
	return p.Giver + " → " + p.Receiver
}

// Forbidden is an immutable set of directional exclusions. A giver may
// appear in any number of pairs. The zero value forbids nothing.
type Forbidden struct {
	set   map[Pair]struct{}
	order []Pair
}

func NewForbidden(pairs ...Pair) Forbidden {
	f := Forbidden{
		set: make(map[Pair]struct{}, len(pairs)),
	}

	for _, p := range pairs {
		p.Giver = strings.TrimSpace(p.Giver)
		p.Receiver = strings.TrimSpace(p.Receiver)

		if _, exists := f.set[p]; exists {
			continue
		}

		f.set[p] = struct{}{}
		f.order = append(f.order, p)
	}

	return f
}

func (f Forbidden) Contains(giver, receiver string) bool {
	_, ok := f.set[Pair{Giver: giver, Receiver: receiver}]
	return ok
}

func (f Forbidden) Len() int {
	return len(f.order)
}

// Pairs returns the exclusions in the order they were first supplied.
func (f Forbidden) Pairs() []Pair {
	out := make([]Pair, len(f.order))
	copy(out, f.order)
	return out
}

// Check reports exclusions that name someone outside the roster, which
// almost always means a typo in the configuration.
func (r Roster) Check(f Forbidden) error {
	var errs []error

	for _, p := range f.order {
		if !r.Contains(p.Giver) {
			errs = append(errs, fmt.Errorf("%w %q in exclusion %s", ErrUnknownParticipant, p.Giver, p))
		}
		if !r.Contains(p.Receiver) {
			errs = append(errs, fmt.Errorf("%w %q in exclusion %s", ErrUnknownParticipant, p.Receiver, p))
		}
	}

	return errors.Join(errs...)
}
