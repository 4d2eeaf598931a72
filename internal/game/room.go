package game

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"time"
)

const (
	DefaultMinPlayers         = 3
	DefaultDiscussionDuration = 120 * time.Second

	// PointsPerCorrect is awarded to each correct voter and to an imposter
	// who names the item.
	PointsPerCorrect = 100

	// GuessOptionCount is the number of items offered to the imposter,
	// including the real one.
	GuessOptionCount = 4
)

// ItemSource supplies the items of a domain. *catalog.Catalog satisfies it.
type ItemSource interface {
	ItemsFor(domain string) []string
	Has(domain string) bool
}

// Room is one isolated game: its players, phase and round data. A Room is
// not safe for concurrent use; callers serialize access (see the rooms
// service, which persists with optimistic revisions).
type Room struct {
	code    string
	phase   Phase
	players []*Player

	minPlayers         int
	discussionDuration time.Duration

	// Round state
	currentDomain   string
	currentItem     string
	imposter        string
	discussionEnd   time.Time
	votes           map[string]string
	mostVotedPlayer string
	imposterGuess   string
	guessOptions    []string

	items ItemSource
	rng   *rand.Rand
	now   func() time.Time
}

// Option configures a Room
type Option func(*Room)

// WithRand sets the random source used for item, imposter and option draws
func WithRand(rng *rand.Rand) Option {
	return func(r *Room) {
		r.rng = rng
	}
}

// WithClock sets the time source for the discussion deadline
func WithClock(now func() time.Time) Option {
	return func(r *Room) {
		r.now = now
	}
}

// WithMinPlayers sets the initial minimum player count
func WithMinPlayers(n int) Option {
	return func(r *Room) {
		r.minPlayers = n
	}
}

// WithDiscussionDuration sets how long the discussion countdown runs. It is
// kept at millisecond precision.
func WithDiscussionDuration(d time.Duration) Option {
	return func(r *Room) {
		r.discussionDuration = d
	}
}

func newRoom(code string, items ItemSource, opts []Option) *Room {
	r := &Room{
		code:               code,
		phase:              PhaseLobby,
		players:            make([]*Player, 0, 8),
		minPlayers:         DefaultMinPlayers,
		discussionDuration: DefaultDiscussionDuration,
		votes:              make(map[string]string),
		items:              items,
		now:                time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.rng == nil {
		r.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	r.discussionDuration = r.discussionDuration.Truncate(time.Millisecond)
	return r
}

// NewRoom creates a room in the lobby with hostName as its only player. The
// host is fixed for the room's lifetime.
func NewRoom(code, hostName string, items ItemSource, opts ...Option) (*Room, error) {
	if code == "" {
		return nil, ErrEmptyRoomCode
	}
	hostName = strings.TrimSpace(hostName)
	if hostName == "" {
		return nil, ErrEmptyName
	}

	r := newRoom(code, items, opts)
	if r.minPlayers < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidMinPlayers, r.minPlayers)
	}
	if r.discussionDuration < time.Millisecond {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidDuration, r.discussionDuration)
	}
	r.players = append(r.players, newPlayer(hostName, true))
	return r, nil
}

func (r *Room) invalid(action string) error {
	return fmt.Errorf("%w: cannot %s during %s", ErrInvalidTransition, action, r.phase)
}

// enter moves the room to next. Every phase change goes through here, so the
// room never takes an edge missing from validTransitions.
func (r *Room) enter(next Phase, action string) error {
	if !r.phase.CanTransitionTo(next) {
		return r.invalid(action)
	}
	r.phase = next
	return nil
}

func (r *Room) findPlayer(name string) *Player {
	for _, p := range r.players {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// AddPlayer appends a new player. Joining is allowed in any phase; the
// player takes part from the next vote onwards.
func (r *Room) AddPlayer(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if r.findPlayer(name) != nil {
		return fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}
	r.players = append(r.players, newPlayer(name, false))
	return nil
}

// SetMinPlayers changes the player count required to start. Lobby only.
func (r *Room) SetMinPlayers(n int) error {
	if r.phase != PhaseLobby {
		return r.invalid("change minimum players")
	}
	if n < 2 {
		return fmt.Errorf("%w: got %d", ErrInvalidMinPlayers, n)
	}
	r.minPlayers = n
	return nil
}

// CanStart checks if StartRound would succeed
func (r *Room) CanStart() bool {
	return r.phase == PhaseLobby && len(r.players) >= r.minPlayers
}

// StartRound leaves the lobby once enough players have joined
func (r *Room) StartRound() error {
	if r.phase != PhaseLobby {
		return r.invalid("start a round")
	}
	if len(r.players) < r.minPlayers {
		return fmt.Errorf("%w: need %d, have %d", ErrNotEnoughPlayers, r.minPlayers, len(r.players))
	}
	return r.enter(PhaseRoundSetup, "start a round")
}

// SetDomain picks the category for the coming round
func (r *Room) SetDomain(domain string) error {
	if r.phase != PhaseRoundSetup {
		return r.invalid("choose a domain")
	}
	if !r.items.Has(domain) {
		return fmt.Errorf("%w: %q", ErrUnknownDomain, domain)
	}
	r.currentDomain = domain
	return nil
}

// SelectItem draws the secret item from the current domain and the imposter
// from the players, both uniformly at random.
func (r *Room) SelectItem() error {
	if r.phase != PhaseRoundSetup {
		return r.invalid("select an item")
	}
	if r.currentDomain == "" {
		return ErrNoDomain
	}
	items := r.items.ItemsFor(r.currentDomain)
	if len(items) == 0 {
		return fmt.Errorf("%w: %q is empty", ErrCatalogTooSmall, r.currentDomain)
	}

	r.currentItem = items[r.rng.IntN(len(items))]
	r.imposter = r.players[r.rng.IntN(len(r.players))].Name
	return nil
}

// StartDiscussion opens the discussion and sets its advisory deadline. The
// deadline only drives a countdown; the host ends discussion manually.
func (r *Room) StartDiscussion() error {
	if r.phase != PhaseRoundSetup {
		return r.invalid("start discussion")
	}
	if r.currentItem == "" || r.imposter == "" {
		return ErrNoItem
	}
	if err := r.enter(PhaseDiscussion, "start discussion"); err != nil {
		return err
	}
	r.discussionEnd = r.now().Add(r.discussionDuration).Truncate(time.Second)
	return nil
}

// StartVoting closes discussion and clears any previous votes
func (r *Room) StartVoting() error {
	if r.phase != PhaseDiscussion {
		return r.invalid("start voting")
	}
	if err := r.enter(PhaseVoting, "start voting"); err != nil {
		return err
	}
	r.discussionEnd = time.Time{}
	clear(r.votes)
	return nil
}

// SubmitVote records voter's suspect, replacing an earlier vote. Votes for
// oneself are rejected, the imposter included.
func (r *Room) SubmitVote(voter, votee string) error {
	if r.phase != PhaseVoting {
		return r.invalid("vote")
	}
	if r.findPlayer(voter) == nil {
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, voter)
	}
	if r.findPlayer(votee) == nil {
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, votee)
	}
	if voter == votee {
		return ErrSelfVote
	}
	r.votes[voter] = votee
	return nil
}

// AllVotesSubmitted is true once every player, the imposter included, has voted
func (r *Room) AllVotesSubmitted() bool {
	return len(r.votes) == len(r.players)
}

// RevealImposter ends voting. There is no plurality winner: each voter is
// judged individually, so most_voted_player stays empty.
func (r *Room) RevealImposter() error {
	if r.phase != PhaseVoting {
		return r.invalid("reveal the imposter")
	}
	if err := r.enter(PhaseReveal, "reveal the imposter"); err != nil {
		return err
	}
	r.mostVotedPlayer = ""
	return nil
}

// DidVoteCorrectly reports whether name voted for the imposter
func (r *Room) DidVoteCorrectly(name string) bool {
	if r.imposter == "" {
		return false
	}
	votee, ok := r.votes[name]
	return ok && votee == r.imposter
}

// StartImposterGuess moves to the guess phase and fixes the options shown to
// the imposter for the rest of the round.
func (r *Room) StartImposterGuess() error {
	if r.phase != PhaseReveal {
		return r.invalid("start the imposter guess")
	}
	options, err := r.GuessOptions()
	if err != nil {
		return err
	}
	if err := r.enter(PhaseImposterGuess, "start the imposter guess"); err != nil {
		return err
	}
	r.guessOptions = options
	return nil
}

// GuessOptions draws GuessOptionCount distinct items: the secret item plus
// decoys sampled without replacement from the rest of the domain, shuffled.
func (r *Room) GuessOptions() ([]string, error) {
	if r.currentDomain == "" {
		return nil, ErrNoDomain
	}
	if r.currentItem == "" {
		return nil, ErrNoItem
	}

	items := r.items.ItemsFor(r.currentDomain)
	decoys := make([]string, 0, len(items))
	for _, item := range items {
		if item != r.currentItem && !slices.Contains(decoys, item) {
			decoys = append(decoys, item)
		}
	}
	if len(decoys) < GuessOptionCount-1 {
		return nil, fmt.Errorf("%w: %q has %d decoys, need %d",
			ErrCatalogTooSmall, r.currentDomain, len(decoys), GuessOptionCount-1)
	}

	r.rng.Shuffle(len(decoys), func(i, j int) {
		decoys[i], decoys[j] = decoys[j], decoys[i]
	})
	options := append(decoys[:GuessOptionCount-1:GuessOptionCount-1], r.currentItem)
	r.rng.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
	return options, nil
}

// SubmitImposterGuess records the imposter's guess and scores the round.
// Both reward paths apply independently: the imposter earns points for the
// exact item, and every other player who voted for the imposter earns points
// too.
func (r *Room) SubmitImposterGuess(guess string) error {
	if r.phase != PhaseImposterGuess {
		return r.invalid("submit a guess")
	}
	if err := r.enter(PhaseScores, "submit a guess"); err != nil {
		return err
	}

	r.imposterGuess = guess
	if imp := r.findPlayer(r.imposter); imp != nil && guess == r.currentItem {
		imp.award(PointsPerCorrect)
	}
	for _, p := range r.players {
		if p.Name != r.imposter && r.DidVoteCorrectly(p.Name) {
			p.award(PointsPerCorrect)
		}
	}
	return nil
}

// ImposterWon reports whether the imposter guessed the item. Only
// meaningful in the scores phase.
func (r *Room) ImposterWon() bool {
	return r.phase == PhaseScores && r.imposterGuess != "" && r.imposterGuess == r.currentItem
}

func (r *Room) clearRound() {
	r.currentItem = ""
	r.imposter = ""
	r.discussionEnd = time.Time{}
	clear(r.votes)
	r.mostVotedPlayer = ""
	r.imposterGuess = ""
	r.guessOptions = nil
}

// ResetRound clears round data and returns to round_setup. The domain is
// kept when keepDomain is set. Calling it twice has the same effect as once.
func (r *Room) ResetRound(keepDomain bool) error {
	if r.phase == PhaseLobby {
		return r.invalid("reset the round")
	}
	if err := r.enter(PhaseRoundSetup, "reset the round"); err != nil {
		return err
	}
	r.clearRound()
	if !keepDomain {
		r.currentDomain = ""
	}
	return nil
}

// ResetGame returns the room to the lobby from any phase. Players and their
// scores are kept.
func (r *Room) ResetGame() error {
	if err := r.enter(PhaseLobby, "end the game"); err != nil {
		return err
	}
	r.clearRound()
	r.currentDomain = ""
	return nil
}

// Code returns the room code
func (r *Room) Code() string {
	return r.code
}

// Phase returns the current phase
func (r *Room) Phase() Phase {
	return r.phase
}

// Players returns copies of the players in join order
func (r *Room) Players() []Player {
	players := make([]Player, len(r.players))
	for i, p := range r.players {
		players[i] = *p
	}
	return players
}

// Player looks up a player by name
func (r *Room) Player(name string) (Player, bool) {
	p := r.findPlayer(name)
	if p == nil {
		return Player{}, false
	}
	return *p, true
}

// Host returns the player who created the room
func (r *Room) Host() Player {
	for _, p := range r.players {
		if p.IsHost {
			return *p
		}
	}
	return Player{}
}

// IsHost checks if name is the room's host
func (r *Room) IsHost(name string) bool {
	p := r.findPlayer(name)
	return p != nil && p.IsHost
}

// IsImposter checks if name is this round's imposter
func (r *Room) IsImposter(name string) bool {
	return r.imposter != "" && r.imposter == name
}

// MinPlayers returns the player count required to start
func (r *Room) MinPlayers() int {
	return r.minPlayers
}

// CurrentDomain returns the selected domain, or "" when none
func (r *Room) CurrentDomain() string {
	return r.currentDomain
}

// CurrentItem returns the secret item, or "" when none
func (r *Room) CurrentItem() string {
	return r.currentItem
}

// Imposter returns the imposter, if one has been assigned
func (r *Room) Imposter() (Player, bool) {
	if r.imposter == "" {
		return Player{}, false
	}
	return r.Player(r.imposter)
}

// DiscussionEnd returns the advisory discussion deadline; zero outside
// discussion.
func (r *Room) DiscussionEnd() time.Time {
	return r.discussionEnd
}

// DiscussionDuration returns the configured discussion length
func (r *Room) DiscussionDuration() time.Duration {
	return r.discussionDuration
}

// DiscussionRemaining returns the countdown left, never negative
func (r *Room) DiscussionRemaining() time.Duration {
	if r.discussionEnd.IsZero() {
		return 0
	}
	return max(0, r.discussionEnd.Sub(r.now()))
}

// Votes returns a copy of voter -> votee
func (r *Room) Votes() map[string]string {
	votes := make(map[string]string, len(r.votes))
	for voter, votee := range r.votes {
		votes[voter] = votee
	}
	return votes
}

// HasVoted checks if name has a recorded vote
func (r *Room) HasVoted(name string) bool {
	_, ok := r.votes[name]
	return ok
}

// MostVotedPlayer is kept for state compatibility and is always empty for
// rooms driven by this package.
func (r *Room) MostVotedPlayer() string {
	return r.mostVotedPlayer
}

// ImposterGuess returns the submitted guess, or "" when none
func (r *Room) ImposterGuess() string {
	return r.imposterGuess
}

// StoredGuessOptions returns the options fixed by StartImposterGuess
func (r *Room) StoredGuessOptions() []string {
	return slices.Clone(r.guessOptions)
}

// Scores returns name -> score for every player
func (r *Room) Scores() map[string]int {
	scores := make(map[string]int, len(r.players))
	for _, p := range r.players {
		scores[p.Name] = p.Score
	}
	return scores
}
