package game

import (
	"fmt"
	"slices"
	"time"
)

// PlayerState is the serialized form of a Player
type PlayerState struct {
	Name   string `json:"name"`
	IsHost bool   `json:"is_host"`
	Score  int    `json:"score"`
}

// State is the full serialized form of a Room, as written to a store.
// Optional values are pointers so that absent fields encode as null.
type State struct {
	RoomCode             string            `json:"room_code"`
	Phase                Phase             `json:"phase"`
	Players              []PlayerState     `json:"players"`
	MinPlayers           int               `json:"min_players"`
	CurrentDomain        *string           `json:"current_domain"`
	CurrentItem          *string           `json:"current_item"`
	ImposterName         *string           `json:"imposter_name"`
	DiscussionEndTime    *int64            `json:"discussion_end_time"` // unix seconds
	DiscussionDurationMs int64             `json:"discussion_duration_ms,omitempty"`
	Votes                map[string]string `json:"votes"`
	MostVotedPlayer      *string           `json:"most_voted_player"`
	ImposterGuess        *string           `json:"imposter_guess"`
	GuessOptions         []string          `json:"guess_options,omitempty"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Snapshot serializes the room
func (r *Room) Snapshot() State {
	s := State{
		RoomCode:             r.code,
		Phase:                r.phase,
		Players:              make([]PlayerState, len(r.players)),
		MinPlayers:           r.minPlayers,
		CurrentDomain:        optional(r.currentDomain),
		CurrentItem:          optional(r.currentItem),
		ImposterName:         optional(r.imposter),
		DiscussionDurationMs: r.discussionDuration.Milliseconds(),
		Votes:                r.Votes(),
		MostVotedPlayer:      optional(r.mostVotedPlayer),
		ImposterGuess:        optional(r.imposterGuess),
		GuessOptions:         r.StoredGuessOptions(),
	}
	for i, p := range r.players {
		s.Players[i] = PlayerState{Name: p.Name, IsHost: p.IsHost, Score: p.Score}
	}
	if !r.discussionEnd.IsZero() {
		end := r.discussionEnd.Unix()
		s.DiscussionEndTime = &end
	}
	return s
}

// Validate checks the invariants a stored state must hold
func (s State) Validate() error {
	if s.RoomCode == "" {
		return fmt.Errorf("%w: empty room code", ErrCorruptState)
	}
	if !s.Phase.Valid() {
		return fmt.Errorf("%w: unknown phase %q", ErrCorruptState, s.Phase)
	}
	if s.MinPlayers < 2 {
		return fmt.Errorf("%w: min_players %d", ErrCorruptState, s.MinPlayers)
	}
	if s.DiscussionDurationMs < 0 {
		return fmt.Errorf("%w: discussion_duration_ms %d", ErrCorruptState, s.DiscussionDurationMs)
	}
	if len(s.Players) == 0 {
		return fmt.Errorf("%w: no players", ErrCorruptState)
	}

	names := make(map[string]bool, len(s.Players))
	hosts := 0
	for _, p := range s.Players {
		if p.Name == "" {
			return fmt.Errorf("%w: player with empty name", ErrCorruptState)
		}
		if names[p.Name] {
			return fmt.Errorf("%w: duplicate player %q", ErrCorruptState, p.Name)
		}
		if p.Score < 0 {
			return fmt.Errorf("%w: negative score for %q", ErrCorruptState, p.Name)
		}
		names[p.Name] = true
		if p.IsHost {
			hosts++
		}
	}
	if hosts != 1 {
		return fmt.Errorf("%w: %d hosts", ErrCorruptState, hosts)
	}

	if s.ImposterName != nil && !names[*s.ImposterName] {
		return fmt.Errorf("%w: imposter %q is not a player", ErrCorruptState, *s.ImposterName)
	}
	for voter, votee := range s.Votes {
		if !names[voter] {
			return fmt.Errorf("%w: vote from unknown player %q", ErrCorruptState, voter)
		}
		if !names[votee] {
			return fmt.Errorf("%w: vote for unknown player %q", ErrCorruptState, votee)
		}
		if voter == votee {
			return fmt.Errorf("%w: %q voted for themselves", ErrCorruptState, voter)
		}
	}

	if len(s.GuessOptions) > 0 {
		if s.CurrentItem == nil {
			return fmt.Errorf("%w: guess options without an item", ErrCorruptState)
		}
		if !slices.Contains(s.GuessOptions, *s.CurrentItem) {
			return fmt.Errorf("%w: guess options do not include the item", ErrCorruptState)
		}
		if len(s.GuessOptions) != GuessOptionCount {
			return fmt.Errorf("%w: %d guess options", ErrCorruptState, len(s.GuessOptions))
		}
	}
	return nil
}

// FromState rebuilds a room from its serialized form. The imposter is
// re-resolved by name against the restored players.
func FromState(s State, items ItemSource, opts ...Option) (*Room, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	r := newRoom(s.RoomCode, items, opts)
	r.phase = s.Phase
	r.minPlayers = s.MinPlayers
	if s.DiscussionDurationMs > 0 {
		r.discussionDuration = time.Duration(s.DiscussionDurationMs) * time.Millisecond
	}
	for _, p := range s.Players {
		r.players = append(r.players, &Player{Name: p.Name, IsHost: p.IsHost, Score: p.Score})
	}

	r.currentDomain = deref(s.CurrentDomain)
	r.currentItem = deref(s.CurrentItem)
	r.imposter = deref(s.ImposterName)
	if s.DiscussionEndTime != nil {
		r.discussionEnd = time.Unix(*s.DiscussionEndTime, 0)
	}
	for voter, votee := range s.Votes {
		r.votes[voter] = votee
	}
	r.mostVotedPlayer = deref(s.MostVotedPlayer)
	r.imposterGuess = deref(s.ImposterGuess)
	if len(s.GuessOptions) > 0 {
		r.guessOptions = append([]string(nil), s.GuessOptions...)
	}
	return r, nil
}
