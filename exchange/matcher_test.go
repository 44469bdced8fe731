/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package exchange

import (
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lastYear() Forbidden {
	return NewForbidden(
		Pair{Giver: "Kurt", Receiver: "Ariel"},
		Pair{Giver: "Ariel", Receiver: "Kurt"},
		Pair{Giver: "Scott", Receiver: "Ariel"},
		Pair{Giver: "Linda", Receiver: "Scott"},
		Pair{Giver: "Daniel", Receiver: "Linda"},
		Pair{Giver: "Ariel", Receiver: "Daniel"},
	)
}

func familyRoster(t *testing.T) Roster {
	t.Helper()

	r, err := NewRoster("Ariel", "Kurt", "Scott", "Linda", "Daniel")
	require.NoError(t, err)

	return r
}

func requireValid(t *testing.T, roster Roster, forbidden Forbidden, a *Assignment) {
	t.Helper()

	require.Equal(t, roster.Len(), a.Len())

	receivers := make(map[string]int, a.Len())
	for i, p := range a.Pairs() {
		require.Equal(t, roster.At(i), p.Giver, "pairs must follow roster order")
		require.NotEqual(t, p.Giver, p.Receiver, "self pairing %s", p)
		require.False(t, forbidden.Contains(p.Giver, p.Receiver), "forbidden pairing %s", p)
		require.True(t, roster.Contains(p.Receiver), "receiver %q not on roster", p.Receiver)
		receivers[p.Receiver]++

		got, ok := a.Recipient(p.Giver)
		require.True(t, ok)
		require.Equal(t, p.Receiver, got)
	}

	for _, name := range roster.Names() {
		require.Equal(t, 1, receivers[name], "%q must receive exactly once", name)
	}
}

func TestGenerateScenarioAlwaysValid(t *testing.T) {
	roster := familyRoster(t)
	forbidden := lastYear()
	m := NewMatcher()

	seen := make(map[string]bool)
	for range 1000 {
		a, err := m.Generate(roster, forbidden)
		require.NoError(t, err)
		requireValid(t, roster, forbidden, a)

		var key string
		for _, p := range a.Pairs() {
			key += p.Receiver + ","
		}
		seen[key] = true
	}

	assert.Greater(t, len(seen), 1, "1000 draws should not all produce the same pairing")
}

func TestGenerateSingleParticipantFails(t *testing.T) {
	roster, err := NewRoster("Ariel")
	require.NoError(t, err)

	for _, forbidden := range []Forbidden{{}, NewForbidden(Pair{Giver: "Ariel", Receiver: "Ariel"})} {
		a, err := NewMatcher().Generate(roster, forbidden)
		assert.Nil(t, a)
		assert.ErrorIs(t, err, ErrMatchGenerationFailed)
	}
}

func TestGenerateEmptyRosterFails(t *testing.T) {
	_, err := NewMatcher().Generate(Roster{}, Forbidden{})
	assert.ErrorIs(t, err, ErrMatchGenerationFailed)
}

func TestGenerateTwoParticipantsSwap(t *testing.T) {
	roster, err := NewRoster("A", "B")
	require.NoError(t, err)

	for range 100 {
		a, err := NewMatcher().Generate(roster, Forbidden{})
		if err != nil {
			require.ErrorIs(t, err, ErrMatchGenerationFailed)
			continue
		}

		want := []Pair{{Giver: "A", Receiver: "B"}, {Giver: "B", Receiver: "A"}}
		if diff := cmp.Diff(want, a.Pairs()); diff != "" {
			t.Fatalf("unexpected pairing (-want +got):\n%s", diff)
		}
	}
}

func TestGenerateUnsatisfiable(t *testing.T) {
	roster, err := NewRoster("A", "B", "C")
	require.NoError(t, err)

	forbidden := NewForbidden(
		Pair{Giver: "A", Receiver: "B"},
		Pair{Giver: "A", Receiver: "C"},
	)

	m := NewMatcher(WithAttempts(50))
	a, err := m.Generate(roster, forbidden)
	assert.Nil(t, a)
	require.ErrorIs(t, err, ErrMatchGenerationFailed)
	assert.Contains(t, err.Error(), "50 attempts")
}

func TestGenerateDoesNotMutateInputs(t *testing.T) {
	roster := familyRoster(t)
	forbidden := lastYear()

	names := roster.Names()
	pairs := forbidden.Pairs()

	_, err := NewMatcher().Generate(roster, forbidden)
	require.NoError(t, err)

	assert.Equal(t, names, roster.Names())
	assert.Equal(t, pairs, forbidden.Pairs())
}

func TestGenerateWithRandIsReproducible(t *testing.T) {
	roster := familyRoster(t)
	source := func() *rand.Rand {
		return rand.New(rand.NewPCG(7, 11))
	}

	first, err := NewMatcher(WithRand(source)).Generate(roster, lastYear())
	require.NoError(t, err)
	second, err := NewMatcher(WithRand(source)).Generate(roster, lastYear())
	require.NoError(t, err)

	if diff := cmp.Diff(first.Pairs(), second.Pairs()); diff != "" {
		t.Errorf("same seed produced different pairings (-first +second):\n%s", diff)
	}
	assert.Equal(t, first.Attempts(), second.Attempts())
	assert.GreaterOrEqual(t, first.Attempts(), 1)
}

func TestMatcherOptions(t *testing.T) {
	assert.Equal(t, DefaultAttempts, NewMatcher().MaxAttempts())
	assert.Equal(t, 25, NewMatcher(WithAttempts(25)).MaxAttempts())
	assert.Equal(t, DefaultAttempts, NewMatcher(WithAttempts(0)).MaxAttempts())
	assert.Equal(t, DefaultAttempts, NewMatcher(WithAttempts(-3)).MaxAttempts())
}

func TestRecipientUnknownGiver(t *testing.T) {
	a, err := NewMatcher().Generate(familyRoster(t), Forbidden{})
	require.NoError(t, err)

	_, ok := a.Recipient("Santa")
	assert.False(t, ok)
}
