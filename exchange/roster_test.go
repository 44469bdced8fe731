/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package exchange

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRoster(t *testing.T) {
	tests := []struct {
		name    string
		names   []string
		want    []string
		wantErr error
	}{
		{name: "ordered", names: []string{"Kurt", "Ariel"}, want: []string{"Kurt", "Ariel"}},
		{name: "trims whitespace", names: []string{" Kurt ", "Ariel\t"}, want: []string{"Kurt", "Ariel"}},
		{name: "empty", names: nil, wantErr: ErrEmptyRoster},
		{name: "blank", names: []string{"Kurt", "  "}, wantErr: ErrBlankName},
		{name: "duplicate", names: []string{"Kurt", "Ariel", "Kurt"}, wantErr: ErrDuplicateName},
		{name: "duplicate after trim", names: []string{"Kurt", "Kurt "}, wantErr: ErrDuplicateName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRoster(tt.names...)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, r.Names())
			assert.Equal(t, len(tt.want), r.Len())
		})
	}
}

func TestRosterNamesIsACopy(t *testing.T) {
	r, err := NewRoster("Kurt", "Ariel")
	require.NoError(t, err)

	names := r.Names()
	names[0] = "Mallory"

	assert.Equal(t, "Kurt", r.At(0))
	assert.False(t, r.Contains("Mallory"))
}

func TestForbiddenIsDirectional(t *testing.T) {
	f := NewForbidden(Pair{Giver: "Linda", Receiver: "Scott"})

	assert.True(t, f.Contains("Linda", "Scott"))
	assert.False(t, f.Contains("Scott", "Linda"))
}

func TestForbiddenKeepsEveryExclusionPerGiver(t *testing.T) {
	f := NewForbidden(
		Pair{Giver: "Ariel", Receiver: "Kurt"},
		Pair{Giver: "Ariel", Receiver: "Daniel"},
		Pair{Giver: "Ariel", Receiver: "Kurt"},
	)

	assert.Equal(t, 2, f.Len())
	assert.True(t, f.Contains("Ariel", "Kurt"))
	assert.True(t, f.Contains("Ariel", "Daniel"))
	assert.Equal(t, []Pair{
		{Giver: "Ariel", Receiver: "Kurt"},
		{Giver: "Ariel", Receiver: "Daniel"},
	}, f.Pairs())
}

func TestForbiddenZeroValue(t *testing.T) {
	var f Forbidden

	assert.False(t, f.Contains("a", "b"))
	assert.Zero(t, f.Len())
	assert.Empty(t, f.Pairs())
}

func TestRosterCheck(t *testing.T) {
	r, err := NewRoster("Ariel", "Kurt")
	require.NoError(t, err)

	require.NoError(t, r.Check(NewForbidden(Pair{Giver: "Ariel", Receiver: "Kurt"})))

	err = r.Check(NewForbidden(
		Pair{Giver: "Ariel", Receiver: "Kurtt"},
		Pair{Giver: "Bob", Receiver: "Ariel"},
	))
	require.ErrorIs(t, err, ErrUnknownParticipant)
	assert.Contains(t, err.Error(), `"Kurtt"`)
	assert.Contains(t, err.Error(), `"Bob"`)
}

func TestPairString(t *testing.T) {
	assert.Equal(t, "Ariel → Kurt", Pair{Giver: "Ariel", Receiver: "Kurt"}.String())
}
