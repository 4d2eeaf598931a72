package rooms

import (
	"fmt"
	"slices"

	"imposter/internal/game"
)

// ActionType names a player action
type ActionType string

const (
	ActionSetMinPlayers ActionType = "set_min_players"
	ActionStartRound    ActionType = "start_round"
	ActionChooseDomain  ActionType = "choose_domain"
	ActionStartVoting   ActionType = "start_voting"
	ActionVote          ActionType = "vote"
	ActionReveal        ActionType = "reveal"
	ActionStartGuess    ActionType = "start_guess"
	ActionGuess         ActionType = "guess"
	ActionNextRound     ActionType = "next_round"
	ActionEndGame       ActionType = "end_game"
)

// actionTypes is the full action vocabulary
var actionTypes = []ActionType{
	ActionSetMinPlayers, ActionStartRound, ActionChooseDomain, ActionStartVoting, ActionVote,
	ActionReveal, ActionStartGuess, ActionGuess, ActionNextRound, ActionEndGame,
}

// unknownActionLabel stands in for every type outside the vocabulary, so
// clients cannot mint metric series
const unknownActionLabel = "unknown"

func (t ActionType) label() string {
	if slices.Contains(actionTypes, t) {
		return string(t)
	}
	return unknownActionLabel
}

// hostOnly actions move the whole room forward
var hostOnly = map[ActionType]bool{
	ActionSetMinPlayers: true,
	ActionStartRound:    true,
	ActionChooseDomain:  true,
	ActionStartVoting:   true,
	ActionReveal:        true,
	ActionStartGuess:    true,
	ActionNextRound:     true,
	ActionEndGame:       true,
}

// Action is one request to change a room. Only the fields its type uses
// are read.
type Action struct {
	Type       ActionType `json:"type"`
	MinPlayers int        `json:"min_players,omitempty"`
	Domain     string     `json:"domain,omitempty"`
	Target     string     `json:"target,omitempty"`
	Guess      string     `json:"guess,omitempty"`
	KeepDomain bool       `json:"keep_domain,omitempty"`
}

func apply(room *game.Room, actor string, a Action) error {
	if _, ok := room.Player(actor); !ok {
		return fmt.Errorf("%w: %s", game.ErrPlayerNotFound, actor)
	}
	if hostOnly[a.Type] && !room.IsHost(actor) {
		return ErrNotHost
	}

	switch a.Type {
	case ActionSetMinPlayers:
		return room.SetMinPlayers(a.MinPlayers)

	case ActionStartRound:
		return room.StartRound()

	case ActionChooseDomain:
		// Picking a domain deals the round and opens discussion in one step
		if err := room.SetDomain(a.Domain); err != nil {
			return err
		}
		if err := room.SelectItem(); err != nil {
			return err
		}
		return room.StartDiscussion()

	case ActionStartVoting:
		return room.StartVoting()

	case ActionVote:
		if err := room.SubmitVote(actor, a.Target); err != nil {
			return err
		}
		if room.AllVotesSubmitted() {
			return room.RevealImposter()
		}
		return nil

	case ActionReveal:
		return room.RevealImposter()

	case ActionStartGuess:
		return room.StartImposterGuess()

	case ActionGuess:
		if !room.IsImposter(actor) {
			return ErrNotImposter
		}
		if room.Phase() == game.PhaseImposterGuess && !slices.Contains(room.StoredGuessOptions(), a.Guess) {
			return fmt.Errorf("%w: %q", ErrInvalidGuess, a.Guess)
		}
		return room.SubmitImposterGuess(a.Guess)

	case ActionNextRound:
		if err := room.ResetRound(a.KeepDomain); err != nil {
			return err
		}
		if a.KeepDomain && room.CurrentDomain() != "" {
			if err := room.SelectItem(); err != nil {
				return err
			}
			return room.StartDiscussion()
		}
		return nil

	case ActionEndGame:
		return room.ResetGame()

	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, a.Type)
	}
}
