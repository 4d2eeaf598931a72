package game

// Player represents a participant in a room. Names are the identity key and
// are case-sensitive.
type Player struct {
	Name   string
	IsHost bool
	Score  int
}

func newPlayer(name string, isHost bool) *Player {
	return &Player{
		Name:   name,
		IsHost: isHost,
	}
}

// award adds points to the player's score. Scores only grow within a game.
func (p *Player) award(points int) {
	if points > 0 {
		p.Score += points
	}
}
