package rooms

import (
	"imposter/internal/game"
)

// PlayerView is one player as shown to a viewer
type PlayerView struct {
	Name     string `json:"name"`
	IsHost   bool   `json:"is_host"`
	Score    int    `json:"score"`
	HasVoted bool   `json:"has_voted"`

	// Set from reveal onwards
	VotedFor       string `json:"voted_for,omitempty"`
	VotedCorrectly bool   `json:"voted_correctly,omitempty"`
	IsImposter     bool   `json:"is_imposter,omitempty"`
}

// View is a room projected for one viewer. Secrets are only present when
// the viewer is allowed to know them in the current phase.
type View struct {
	RoomCode   string     `json:"room_code"`
	Revision   uint64     `json:"revision"`
	Phase      game.Phase `json:"phase"`
	Viewer     string     `json:"viewer,omitempty"`
	IsHost     bool       `json:"is_host"`
	IsImposter bool       `json:"is_imposter"`
	Rejoined   bool       `json:"rejoined,omitempty"`

	Players    []PlayerView `json:"players"`
	MinPlayers int          `json:"min_players"`
	CanStart   bool         `json:"can_start"`

	Domain string `json:"domain,omitempty"`
	Item   string `json:"item,omitempty"`

	DiscussionEndTime     int64 `json:"discussion_end_time,omitempty"` // unix seconds
	DiscussionRemainingMs int64 `json:"discussion_remaining_ms,omitempty"`

	MyVote    string `json:"my_vote,omitempty"`
	VotesCast int    `json:"votes_cast"`

	Imposter      string   `json:"imposter,omitempty"`
	GuessOptions  []string `json:"guess_options,omitempty"`
	ImposterGuess string   `json:"imposter_guess,omitempty"`
	ImposterWon   *bool    `json:"imposter_won,omitempty"`

	PollIntervalMs int64 `json:"poll_interval_ms"`
}

func revealed(p game.Phase) bool {
	switch p {
	case game.PhaseReveal, game.PhaseImposterGuess, game.PhaseScores:
		return true
	}
	return false
}

func (s *Service) view(room *game.Room, revision uint64, viewer string) View {
	phase := room.Phase()
	_, isPlayer := room.Player(viewer)
	viewerIsImposter := phase.InRound() && room.IsImposter(viewer)

	v := View{
		RoomCode:       room.Code(),
		Revision:       revision,
		Phase:          phase,
		Viewer:         viewer,
		IsHost:         room.IsHost(viewer),
		IsImposter:     viewerIsImposter,
		MinPlayers:     room.MinPlayers(),
		CanStart:       room.CanStart(),
		Domain:         room.CurrentDomain(),
		VotesCast:      len(room.Votes()),
		PollIntervalMs: s.settings.PollInterval.Milliseconds(),
	}

	// Everyone but the imposter knows the item during the round; at the end
	// it is shown to all
	if phase == game.PhaseScores || (phase.InRound() && isPlayer && !viewerIsImposter) {
		v.Item = room.CurrentItem()
	}

	if phase == game.PhaseDiscussion {
		v.DiscussionEndTime = room.DiscussionEnd().Unix()
		v.DiscussionRemainingMs = room.DiscussionRemaining().Milliseconds()
	}

	votes := room.Votes()
	if phase == game.PhaseVoting {
		v.MyVote = votes[viewer]
	}

	show := revealed(phase)
	if show {
		if imp, ok := room.Imposter(); ok {
			v.Imposter = imp.Name
		}
	}

	for _, p := range room.Players() {
		pv := PlayerView{
			Name:     p.Name,
			IsHost:   p.IsHost,
			Score:    p.Score,
			HasVoted: room.HasVoted(p.Name),
		}
		if show {
			pv.VotedFor = votes[p.Name]
			pv.VotedCorrectly = room.DidVoteCorrectly(p.Name)
			pv.IsImposter = room.IsImposter(p.Name)
		}
		v.Players = append(v.Players, pv)
	}

	if phase == game.PhaseImposterGuess && viewerIsImposter {
		v.GuessOptions = room.StoredGuessOptions()
	}

	if phase == game.PhaseScores {
		v.ImposterGuess = room.ImposterGuess()
		won := room.ImposterWon()
		v.ImposterWon = &won
	}
	return v
}
