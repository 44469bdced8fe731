/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package exchange pairs gift exchange participants and sequences the
// one-at-a-time reveal of who each of them is giving to.
package exchange

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

const DefaultAttempts = 10000

var ErrMatchGenerationFailed = errors.New("could not generate a valid gift exchange pairing")

// Assignment maps every giver in a roster to exactly one receiver.
// It is never modified after the Matcher returns it.
type Assignment struct {
	givers    []string
	receivers []string
	index     map[string]int
	attempts  int
}

func (a *Assignment) Len() int {
	return len(a.givers)
}

// Recipient returns who giver is buying for.
func (a *Assignment) Recipient(giver string) (string, bool) {
	i, ok := a.index[giver]
	if !ok {
		return "", false
	}

	return a.receivers[i], true
}

// Pairs returns every giver→receiver pair in roster order.
func (a *Assignment) Pairs() []Pair {
	pairs := make([]Pair, len(a.givers))
	for i := range a.givers {
		pairs[i] = Pair{Giver: a.givers[i], Receiver: a.receivers[i]}
	}

	return pairs
}

// Attempts is the number of candidates drawn before this one was accepted.
func (a *Assignment) Attempts() int {
	return a.attempts
}

func (a *Assignment) at(i int) (string, string) {
	return a.givers[i], a.receivers[i]
}

type MatcherOption func(*Matcher)

// WithAttempts sets the retry budget. Values below one are ignored.
func WithAttempts(n int) MatcherOption {
	return func(m *Matcher) {
		if n > 0 {
			m.attempts = n
		}
	}
}

// WithRand replaces the per-call generator, for reproducible tests.
func WithRand(source func() *rand.Rand) MatcherOption {
	return func(m *Matcher) {
		if source != nil {
			m.source = source
		}
	}
}

// Matcher draws random derangements of a roster until one avoids every
// forbidden pair. It holds no state between calls.
type Matcher struct {
	attempts int
	source   func() *rand.Rand
}

func NewMatcher(opts ...MatcherOption) *Matcher {
	m := &Matcher{
		attempts: DefaultAttempts,
		source:   newSeededRand,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *Matcher) MaxAttempts() int {
	return m.attempts
}

// Generate returns the first random pairing in which nobody draws
// themself and no forbidden pair appears, or ErrMatchGenerationFailed once
// the retry budget is spent.
func (m *Matcher) Generate(roster Roster, forbidden Forbidden) (*Assignment, error) {
	n := roster.Len()
	if n < 2 {
		return nil, fmt.Errorf("%w: %d participant(s) cannot be paired", ErrMatchGenerationFailed, n)
	}

	r := m.source()
	givers := roster.names

	for attempt := 1; attempt <= m.attempts; attempt++ {
		perm := r.Perm(n)

		if !valid(givers, perm, forbidden) {
			continue
		}

		a := &Assignment{
			givers:    make([]string, n),
			receivers: make([]string, n),
			index:     make(map[string]int, n),
			attempts:  attempt,
		}
		for i, j := range perm {
			a.givers[i] = givers[i]
			a.receivers[i] = givers[j]
			a.index[givers[i]] = i
		}

		return a, nil
	}

	return nil, fmt.Errorf("%w after %d attempts", ErrMatchGenerationFailed, m.attempts)
}

func valid(givers []string, perm []int, forbidden Forbidden) bool {
	for i, j := range perm {
		if i == j || givers[i] == givers[j] {
			return false
		}
		if forbidden.Contains(givers[i], givers[j]) {
			return false
		}
	}

	return true
}

// newSeededRand seeds ChaCha8 from crypto/rand, folding in the clock so two
// processes started together never share a sequence.
func newSeededRand() *rand.Rand {
	var seed [32]byte
	if _, err := cryptorand.Read(seed[:]); err != nil {
		panic("crypto/rand failure: " + err.Error())
	}

	now := uint64(time.Now().UnixNano())
	binary.LittleEndian.PutUint64(seed[:8], binary.LittleEndian.Uint64(seed[:8])^now)

	return rand.New(rand.NewChaCha8(seed))
}
