package game

// Phase is the current stage of a room's round cycle
type Phase string

const (
	PhaseLobby         Phase = "lobby"          // Waiting for players to join
	PhaseRoundSetup    Phase = "round_setup"    // Host picks a domain
	PhaseDiscussion    Phase = "discussion"     // Players talk, countdown runs
	PhaseVoting        Phase = "voting"         // Everyone names a suspect
	PhaseReveal        Phase = "reveal"         // Imposter and individual results shown
	PhaseImposterGuess Phase = "imposter_guess" // Imposter picks the item
	PhaseScores        Phase = "scores"         // Round complete
)

// validTransitions lists every phase change a Room may make. Every phase may
// fall back to lobby (ResetGame) and every phase past the lobby to
// round_setup (ResetRound).
var validTransitions = map[Phase][]Phase{
	PhaseLobby:         {PhaseRoundSetup, PhaseLobby},
	PhaseRoundSetup:    {PhaseDiscussion, PhaseRoundSetup, PhaseLobby},
	PhaseDiscussion:    {PhaseVoting, PhaseRoundSetup, PhaseLobby},
	PhaseVoting:        {PhaseReveal, PhaseRoundSetup, PhaseLobby},
	PhaseReveal:        {PhaseImposterGuess, PhaseRoundSetup, PhaseLobby},
	PhaseImposterGuess: {PhaseScores, PhaseRoundSetup, PhaseLobby},
	PhaseScores:        {PhaseRoundSetup, PhaseLobby},
}

// String returns the wire name of the phase
func (p Phase) String() string {
	return string(p)
}

// Valid reports whether p is a known phase
func (p Phase) Valid() bool {
	_, ok := validTransitions[p]
	return ok
}

// CanTransitionTo checks if a transition from p to target is allowed
func (p Phase) CanTransitionTo(target Phase) bool {
	for _, phase := range validTransitions[p] {
		if phase == target {
			return true
		}
	}
	return false
}

// InRound reports whether a round is underway (an item has been handed out)
func (p Phase) InRound() bool {
	switch p {
	case PhaseDiscussion, PhaseVoting, PhaseReveal, PhaseImposterGuess, PhaseScores:
		return true
	}
	return false
}
