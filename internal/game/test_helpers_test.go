package game

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	testDomain = "Food"
	tinyDomain = "Tiny"
)

var testFoods = []string{"Kabsa", "Shawarma", "Hummus", "Falafel", "Dates", "Kunafa", "Coffee", "Tea"}

// fakeItems is an in-memory ItemSource
type fakeItems map[string][]string

func (f fakeItems) ItemsFor(domain string) []string {
	items, ok := f[domain]
	if !ok {
		return []string{}
	}
	return append([]string(nil), items...)
}

func (f fakeItems) Has(domain string) bool {
	_, ok := f[domain]
	return ok
}

func testItems() fakeItems {
	return fakeItems{
		testDomain: testFoods,
		tinyDomain: {"One", "Two", "Three"},
		"Empty":    {},
	}
}

var testEpoch = time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func seeded(seed uint64) Option {
	return WithRand(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

// newTestRoom creates room ABCD hosted by the first name with the rest joined
func newTestRoom(t *testing.T, seed uint64, names ...string) *Room {
	t.Helper()
	require.NotEmpty(t, names)

	room, err := NewRoom("ABCD", names[0], testItems(), seeded(seed), WithClock(fixedClock(testEpoch)))
	require.NoError(t, err)
	for _, name := range names[1:] {
		require.NoError(t, room.AddPlayer(name))
	}
	return room
}

// startDiscussion drives a fresh room through to the discussion phase
func startDiscussion(t *testing.T, room *Room, domain string) {
	t.Helper()
	require.NoError(t, room.StartRound())
	require.NoError(t, room.SetDomain(domain))
	require.NoError(t, room.SelectItem())
	require.NoError(t, room.StartDiscussion())
}

// roomWithImposter searches seeds until the wanted player is the imposter,
// then leaves the room in the voting phase.
func roomWithImposter(t *testing.T, imposter string, names ...string) *Room {
	t.Helper()
	for seed := uint64(1); seed < 500; seed++ {
		room := newTestRoom(t, seed, names...)
		startDiscussion(t, room, testDomain)
		if room.IsImposter(imposter) {
			require.NoError(t, room.StartVoting())
			return room
		}
	}
	t.Fatalf("no seed made %s the imposter", imposter)
	return nil
}
