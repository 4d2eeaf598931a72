package game

import "errors"

var (
	ErrInvalidTransition = errors.New("invalid action for current phase")
	ErrNotEnoughPlayers  = errors.New("not enough players to start")
	ErrDuplicateName     = errors.New("a player with that name already exists in the room")
	ErrEmptyName         = errors.New("player name cannot be empty")
	ErrEmptyRoomCode     = errors.New("room code cannot be empty")
	ErrPlayerNotFound    = errors.New("player not found")
	ErrSelfVote          = errors.New("cannot vote for yourself")
	ErrUnknownDomain     = errors.New("unknown domain")
	ErrNoDomain          = errors.New("no domain selected")
	ErrNoItem            = errors.New("no item selected")
	ErrCatalogTooSmall   = errors.New("domain does not have enough items")
	ErrInvalidMinPlayers = errors.New("minimum players must be at least 2")
	ErrInvalidDuration   = errors.New("discussion duration must be at least 1ms")
	ErrCorruptState      = errors.New("corrupt room state")
)
