/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package exchange

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func walkToDone(t *testing.T, s *Session) {
	t.Helper()

	for s.View().Phase != PhaseDone {
		require.True(t, s.Reveal())
		require.True(t, s.Advance())
	}
}

func TestSessionResetFromDone(t *testing.T) {
	s := NewSession(familyRoster(t), lastYear(), nil)
	require.NoError(t, s.Err())
	assert.Equal(t, 1, s.Generation())

	walkToDone(t, s)
	first, ok := s.Export()
	require.True(t, ok)

	changed := false
	for range 50 {
		require.NoError(t, s.Reset())

		v := s.View()
		require.Equal(t, PhaseHidden, v.Phase)
		require.Equal(t, 0, v.Step)

		_, ok := s.Export()
		require.False(t, ok)

		if cmp.Diff(first, s.Assignment().Pairs()) != "" {
			changed = true
			break
		}
	}

	assert.True(t, changed, "fifty resets never produced a different pairing")
	assert.Greater(t, s.Generation(), 1)
}

func TestSessionFailedIsTerminalUntilReset(t *testing.T) {
	roster, err := NewRoster("Ariel")
	require.NoError(t, err)

	s := NewSession(roster, Forbidden{}, NewMatcher())
	require.ErrorIs(t, s.Err(), ErrMatchGenerationFailed)
	assert.Nil(t, s.Assignment())

	v := s.View()
	assert.Equal(t, PhaseFailed, v.Phase)
	assert.ErrorIs(t, v.Err, ErrMatchGenerationFailed)
	assert.Equal(t, 1, v.Total)

	assert.False(t, s.Reveal())
	assert.False(t, s.Advance())
	_, ok := s.Export()
	assert.False(t, ok)

	assert.ErrorIs(t, s.Reset(), ErrMatchGenerationFailed)
	assert.Equal(t, 2, s.Generation())
}

func TestSessionResetFailureClearsState(t *testing.T) {
	roster, err := NewRoster("A", "B", "C")
	require.NoError(t, err)

	s := NewSession(roster, Forbidden{}, nil)
	require.NoError(t, s.Err())
	s.Reveal()

	// Swap in an impossible exclusion set to force the next draw to fail.
	s.forbidden = NewForbidden(Pair{Giver: "A", Receiver: "B"}, Pair{Giver: "A", Receiver: "C"})
	s.matcher = NewMatcher(WithAttempts(10))

	require.ErrorIs(t, s.Reset(), ErrMatchGenerationFailed)
	assert.Nil(t, s.Assignment())
	assert.Equal(t, PhaseFailed, s.View().Phase)
}

func TestSessionResetMidReveal(t *testing.T) {
	s := NewSession(familyRoster(t), lastYear(), nil)

	s.Reveal()
	s.Advance()
	s.Reveal()
	require.Equal(t, PhaseRevealed, s.View().Phase)
	require.Equal(t, 1, s.View().Step)

	require.NoError(t, s.Reset())

	v := s.View()
	assert.Equal(t, PhaseHidden, v.Phase)
	assert.Equal(t, 0, v.Step)
	assert.Equal(t, "Ariel", v.Participant)
}
