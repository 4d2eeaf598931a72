// Package rooms is the collaborator between transports and the game state
// machine. Every mutation loads the stored room, applies one state machine
// operation and writes it back under the revision it was loaded at, retrying
// when another client got there first.
package rooms

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"imposter/internal/catalog"
	"imposter/internal/config"
	"imposter/internal/game"
	"imposter/internal/metrics"
	"imposter/internal/store"

	"github.com/rs/zerolog"
)

var (
	ErrNotHost       = errors.New("only the host can do that")
	ErrNotImposter   = errors.New("only the imposter can guess")
	ErrUnknownAction = errors.New("unknown action")
	ErrInvalidGuess  = errors.New("guess is not one of the offered options")
	ErrBusy          = errors.New("room is busy, try again")
	ErrNoFreeCode    = errors.New("could not find a free room code")
)

// maxCodeAttempts bounds the search for an unused room code
const maxCodeAttempts = 10

// Backoff between save attempts that lost a revision race
const (
	retryBaseDelay = 2 * time.Millisecond
	retryMaxDelay  = 50 * time.Millisecond
)

// Service applies player actions to stored rooms
type Service struct {
	store    store.Store
	catalog  *catalog.Catalog
	settings config.GameSettings
	log      zerolog.Logger
	metrics  *metrics.Metrics
	roomOpts []game.Option
	newCode  func() string
}

// Option configures a Service
type Option func(*Service)

// WithLogger sets the service logger
func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) {
		s.log = log
	}
}

// WithMetrics sets the collectors the service reports to
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithRoomOptions adds options applied to every room the service builds or
// loads. They are shared between concurrent requests.
func WithRoomOptions(opts ...game.Option) Option {
	return func(s *Service) {
		s.roomOpts = append(s.roomOpts, opts...)
	}
}

// WithCodeGenerator replaces the room code generator
func WithCodeGenerator(gen func() string) Option {
	return func(s *Service) {
		s.newCode = gen
	}
}

// NewService creates a room service
func NewService(st store.Store, cat *catalog.Catalog, settings config.GameSettings, opts ...Option) *Service {
	s := &Service{
		store:    st,
		catalog:  cat,
		settings: settings,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.newCode == nil {
		length := settings.RoomCodeLength
		s.newCode = func() string {
			return store.NewRoomCode(nil, length)
		}
	}
	if s.settings.MaxSaveRetries < 1 {
		s.settings.MaxSaveRetries = 1
	}
	return s
}

// Domains lists the catalog's domains
func (s *Service) Domains() []string {
	return s.catalog.Domains()
}

// PollInterval is how often clients should refresh their view
func (s *Service) PollInterval() time.Duration {
	return s.settings.PollInterval
}

// Create opens a new room with hostName as host, retrying with a fresh code
// when the generated one is taken.
func (s *Service) Create(ctx context.Context, hostName string) (View, error) {
	opts := append([]game.Option{
		game.WithMinPlayers(s.settings.MinPlayers),
		game.WithDiscussionDuration(s.settings.DiscussionDuration),
	}, s.roomOpts...)

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := s.newCode()
		room, err := game.NewRoom(code, hostName, s.catalog, opts...)
		if err != nil {
			return View{}, err
		}

		rec, err := s.create(ctx, code, room.Snapshot())
		if errors.Is(err, store.ErrAlreadyExists) {
			s.log.Debug().Str("room", code).Msg("room code taken, retrying")
			continue
		}
		if err != nil {
			return View{}, err
		}

		host := room.Host().Name
		s.metrics.RoomCreated()
		s.log.Info().Str("room", code).Str("host", host).Msg("room created")
		return s.view(room, rec.Revision, host), nil
	}
	return View{}, ErrNoFreeCode
}

// Join adds name to the room. A name already in the room rejoins as that
// player instead, which is how a client recovers its seat after a reload.
func (s *Service) Join(ctx context.Context, code, name string) (View, bool, error) {
	code, err := normalizeCode(code)
	if err != nil {
		return View{}, false, err
	}
	name = strings.TrimSpace(name)

	var rejoined bool
	room, rec, err := s.mutate(ctx, code, func(room *game.Room) (bool, error) {
		rejoined = false
		err := room.AddPlayer(name)
		if errors.Is(err, game.ErrDuplicateName) {
			rejoined = true
			return false, nil
		}
		return err == nil, err
	})
	if err != nil {
		return View{}, false, err
	}

	if rejoined {
		s.log.Info().Str("room", code).Str("player", name).Msg("player rejoined")
	} else {
		s.metrics.PlayerJoined()
		s.log.Info().Str("room", code).Str("player", name).Msg("player joined")
	}
	v := s.view(room, rec.Revision, name)
	v.Rejoined = rejoined
	return v, rejoined, nil
}

// Get returns the room as seen by viewer. An empty viewer gets the view of
// someone outside the room.
func (s *Service) Get(ctx context.Context, code, viewer string) (View, error) {
	code, err := normalizeCode(code)
	if err != nil {
		return View{}, err
	}
	viewer = strings.TrimSpace(viewer)

	rec, err := s.load(ctx, code)
	if err != nil {
		return View{}, err
	}
	room, err := game.FromState(rec.State, s.catalog, s.roomOpts...)
	if err != nil {
		return View{}, err
	}
	if viewer != "" {
		if _, ok := room.Player(viewer); !ok {
			return View{}, fmt.Errorf("%w: %s", game.ErrPlayerNotFound, viewer)
		}
	}
	return s.view(room, rec.Revision, viewer), nil
}

// Apply performs action on behalf of actor
func (s *Service) Apply(ctx context.Context, code, actor string, action Action) (View, error) {
	code, err := normalizeCode(code)
	if err != nil {
		return View{}, err
	}
	actor = strings.TrimSpace(actor)

	room, rec, err := s.mutate(ctx, code, func(room *game.Room) (bool, error) {
		return true, apply(room, actor, action)
	})
	s.metrics.Action(action.Type.label(), outcome(err))
	if err != nil {
		s.log.Debug().Err(err).Str("room", code).Str("player", actor).Str("action", action.Type.label()).Msg("action rejected")
		return View{}, err
	}

	s.log.Debug().Str("room", code).Str("player", actor).Str("action", string(action.Type)).
		Str("phase", room.Phase().String()).Msg("action applied")
	return s.view(room, rec.Revision, actor), nil
}

// mutate runs fn against the latest stored room and saves the result. fn
// reports whether it changed the room; unchanged rooms are not written.
func (s *Service) mutate(ctx context.Context, code string, fn func(*game.Room) (bool, error)) (*game.Room, store.Record, error) {
	for attempt := 1; attempt <= s.settings.MaxSaveRetries; attempt++ {
		rec, err := s.load(ctx, code)
		if err != nil {
			return nil, store.Record{}, err
		}
		room, err := game.FromState(rec.State, s.catalog, s.roomOpts...)
		if err != nil {
			return nil, store.Record{}, err
		}

		changed, err := fn(room)
		if err != nil {
			return nil, store.Record{}, err
		}
		if !changed {
			return room, rec, nil
		}

		saved, err := s.save(ctx, code, room.Snapshot(), rec.Revision)
		if errors.Is(err, store.ErrConflict) {
			s.metrics.Conflict()
			s.log.Debug().Str("room", code).Int("attempt", attempt).Msg("save conflict, retrying")
			if attempt == s.settings.MaxSaveRetries {
				break
			}
			if err := wait(ctx, retryDelay(attempt)); err != nil {
				return nil, store.Record{}, err
			}
			continue
		}
		if err != nil {
			return nil, store.Record{}, err
		}
		return room, saved, nil
	}
	return nil, store.Record{}, fmt.Errorf("%w: %s still changing after %d attempts", ErrBusy, code, s.settings.MaxSaveRetries)
}

// retryDelay is a random delay below a ceiling that doubles per attempt
func retryDelay(attempt int) time.Duration {
	ceiling := retryMaxDelay
	if attempt < 16 {
		ceiling = min(retryBaseDelay<<(attempt-1), retryMaxDelay)
	}
	return rand.N(ceiling)
}

// wait sleeps for d or until ctx is done
func wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Service) load(ctx context.Context, code string) (store.Record, error) {
	defer s.metrics.ObserveStore("load", time.Now())
	return s.store.Load(ctx, code)
}

func (s *Service) create(ctx context.Context, code string, state game.State) (store.Record, error) {
	defer s.metrics.ObserveStore("create", time.Now())
	return s.store.Create(ctx, code, state)
}

func (s *Service) save(ctx context.Context, code string, state game.State, rev uint64) (store.Record, error) {
	defer s.metrics.ObserveStore("save", time.Now())
	return s.store.Save(ctx, code, state, rev)
}

func normalizeCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "", game.ErrEmptyRoomCode
	}
	return code, nil
}

// rejections are errors caused by the request rather than the server
var rejections = []error{
	ErrNotHost, ErrNotImposter, ErrUnknownAction, ErrInvalidGuess,
	game.ErrInvalidTransition, game.ErrNotEnoughPlayers, game.ErrEmptyName,
	game.ErrPlayerNotFound, game.ErrSelfVote, game.ErrUnknownDomain,
	game.ErrNoDomain, game.ErrNoItem, game.ErrCatalogTooSmall,
	game.ErrInvalidMinPlayers, game.ErrEmptyRoomCode, store.ErrNotFound,
}

func outcome(err error) string {
	if err == nil {
		return metrics.OutcomeOK
	}
	for _, r := range rejections {
		if errors.Is(err, r) {
			return metrics.OutcomeRejected
		}
	}
	return metrics.OutcomeError
}
