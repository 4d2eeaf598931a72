package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhaseTransitions(t *testing.T) {
	tests := []struct {
		from    Phase
		to      Phase
		allowed bool
	}{
		{PhaseLobby, PhaseRoundSetup, true},
		{PhaseLobby, PhaseLobby, true},
		{PhaseLobby, PhaseDiscussion, false},
		{PhaseRoundSetup, PhaseDiscussion, true},
		{PhaseRoundSetup, PhaseVoting, false},
		{PhaseDiscussion, PhaseVoting, true},
		{PhaseDiscussion, PhaseReveal, false},
		{PhaseVoting, PhaseReveal, true},
		{PhaseVoting, PhaseScores, false},
		{PhaseReveal, PhaseImposterGuess, true},
		{PhaseImposterGuess, PhaseScores, true},
		{PhaseImposterGuess, PhaseReveal, false},
		{PhaseScores, PhaseRoundSetup, true},
		{PhaseScores, PhaseLobby, true},
		{PhaseScores, PhaseDiscussion, false},
		{PhaseVoting, PhaseRoundSetup, true},
		{PhaseDiscussion, PhaseLobby, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestPhaseValid(t *testing.T) {
	for _, p := range []Phase{
		PhaseLobby, PhaseRoundSetup, PhaseDiscussion, PhaseVoting,
		PhaseReveal, PhaseImposterGuess, PhaseScores,
	} {
		assert.True(t, p.Valid(), p.String())
	}
	assert.False(t, Phase("waiting").Valid())
	assert.False(t, Phase("").Valid())
}

func TestPhaseInRound(t *testing.T) {
	assert.False(t, PhaseLobby.InRound())
	assert.False(t, PhaseRoundSetup.InRound())
	assert.True(t, PhaseDiscussion.InRound())
	assert.True(t, PhaseScores.InRound())
}
