package blast_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/momentics/hioload-arena/fake"
	"github.com/momentics/hioload-arena/internal/blast"
	"github.com/momentics/hioload-arena/internal/session"
	"github.com/momentics/hioload-arena/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// arena allocates one alive session per position.
func arena(t *testing.T, capacity int, positions ...protocol.Vec3) *session.Table {
	t.Helper()
	tbl := session.New(capacity, 0)
	for i, p := range positions {
		id, err := tbl.Allocate(fake.NewConn(uintptr(10 + i)))
		require.NoError(t, err)
		s, err := tbl.Get(id)
		require.NoError(t, err)
		s.Pos = p
		require.NoError(t, tbl.SetAlive(id, true))
	}
	return tbl
}

// detonate mirrors the dispatcher: the origin dies first, then the chain runs.
func detonate(tbl *session.Table, p *blast.Propagator, origin session.ID) []session.ID {
	tbl.Kill(origin)
	return p.Detonate(tbl, origin)
}

func TestChainReachesOutOfRangePlayer(t *testing.T) {
	tbl := arena(t, 20,
		protocol.Vec3{X: 0},
		protocol.Vec3{X: 0.2},
		protocol.Vec3{X: 0.4},
	)
	p := blast.New(0.25)

	killed := detonate(tbl, p, 0)
	assert.Equal(t, []session.ID{1, 2}, killed)
	assert.Zero(t, tbl.AliveCount())
}

func TestBoundaryIsInclusive(t *testing.T) {
	tbl := arena(t, 4,
		protocol.Vec3{},
		protocol.Vec3{X: 0.25},
		protocol.Vec3{Y: 0.2500001},
	)
	killed := detonate(tbl, blast.New(0.25), 0)
	assert.Equal(t, []session.ID{1}, killed)
	assert.Equal(t, 1, tbl.AliveCount())
}

func TestDeadAndDisconnectedAreIgnored(t *testing.T) {
	tbl := arena(t, 5,
		protocol.Vec3{},
		protocol.Vec3{X: 0.1},
		protocol.Vec3{X: 0.15},
		protocol.Vec3{X: 0.2},
	)
	require.NoError(t, tbl.SetAlive(1, false))
	require.NoError(t, tbl.Release(2))

	killed := detonate(tbl, blast.New(0.25), 0)
	assert.Equal(t, []session.ID{3}, killed)

	s1, _ := tbl.Get(1)
	assert.False(t, s1.Alive)
}

func TestNoDoubleCount(t *testing.T) {
	// Everyone is within range of everyone: a naive recursion would revisit.
	tbl := arena(t, 8,
		protocol.Vec3{},
		protocol.Vec3{X: 0.01},
		protocol.Vec3{Y: 0.01},
		protocol.Vec3{Z: 0.01},
		protocol.Vec3{X: 0.01, Y: 0.01},
	)
	before := tbl.AliveCount()
	killed := detonate(tbl, blast.New(0.25), 0)

	assert.ElementsMatch(t, []session.ID{1, 2, 3, 4}, killed)
	seen := map[session.ID]bool{}
	for _, id := range killed {
		assert.False(t, seen[id], "duplicate kill %d", id)
		seen[id] = true
	}
	assert.Equal(t, before-1-len(killed), tbl.AliveCount())
}

func TestNonFinitePositionsAreOutOfRange(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))

	tbl := arena(t, 4,
		protocol.Vec3{},
		protocol.Vec3{X: 1000},
		protocol.Vec3{X: nan},
	)
	assert.Empty(t, detonate(tbl, blast.New(0.25), 0), "far detonation")
	assert.Equal(t, 2, tbl.AliveCount())

	tbl = arena(t, 4,
		protocol.Vec3{X: nan},
		protocol.Vec3{},
		protocol.Vec3{X: 0.1},
	)
	assert.Empty(t, detonate(tbl, blast.New(0.25), 0), "NaN detonator")
	assert.Equal(t, 2, tbl.AliveCount())

	tbl = arena(t, 4,
		protocol.Vec3{X: inf},
		protocol.Vec3{X: inf, Y: 1e6},
	)
	assert.Empty(t, detonate(tbl, blast.New(0.25), 0), "Inf-Inf is NaN")
	assert.Equal(t, 1, tbl.AliveCount())
}

func TestLoneDetonation(t *testing.T) {
	tbl := arena(t, 3, protocol.Vec3{}, protocol.Vec3{X: 5})
	killed := detonate(tbl, blast.New(0.25), 0)
	assert.Empty(t, killed)
	assert.Equal(t, 1, tbl.AliveCount())
}

func TestUnknownOrigin(t *testing.T) {
	tbl := arena(t, 3, protocol.Vec3{})
	assert.Nil(t, blast.New(0.25).Detonate(tbl, 2))
	assert.Equal(t, 1, tbl.AliveCount())
}

func TestKilledListsOnlyNewVictimsInLongChain(t *testing.T) {
	// A line of 20 players 0.2 apart: the whole line goes, none twice, and
	// the output never exceeds capacity minus one.
	positions := make([]protocol.Vec3, 20)
	for i := range positions {
		positions[i] = protocol.Vec3{X: float32(i) * 0.2}
	}
	tbl := arena(t, 20, positions...)
	killed := detonate(tbl, blast.New(0.25), 0)

	require.Len(t, killed, 19)
	for i, id := range killed {
		assert.Equal(t, session.ID(i+1), id)
	}
	assert.Zero(t, tbl.AliveCount())
}

// closure computes the expected victims by repeated relaxation.
func closure(pos []protocol.Vec3, alive []bool, origin int, radius float32) map[int]bool {
	dead := map[int]bool{origin: true}
	for changed := true; changed; {
		changed = false
		for i := range pos {
			if !dead[i] {
				continue
			}
			for j := range pos {
				if dead[j] || !alive[j] {
					continue
				}
				if pos[i].Distance(pos[j]) <= radius {
					dead[j] = true
					changed = true
				}
			}
		}
	}
	delete(dead, origin)
	return dead
}

func TestMatchesTransitiveClosure(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 200; round++ {
		n := 2 + rng.Intn(19)
		pos := make([]protocol.Vec3, n)
		for i := range pos {
			pos[i] = protocol.Vec3{X: rng.Float32(), Y: rng.Float32(), Z: rng.Float32() * 0.2}
		}
		tbl := arena(t, 20, pos...)

		alive := make([]bool, n)
		for i := range alive {
			alive[i] = rng.Intn(5) != 0
			if !alive[i] {
				require.NoError(t, tbl.SetAlive(session.ID(i), false))
			}
		}
		origin := rng.Intn(n)
		want := closure(pos, alive, origin, 0.25)
		aliveBefore := tbl.AliveCount()

		killed := detonate(tbl, blast.New(0.25), session.ID(origin))

		got := map[int]bool{}
		for _, id := range killed {
			got[int(id)] = true
		}
		require.Equal(t, want, got, "round %d", round)
		require.Len(t, killed, len(got), "round %d: duplicates", round)

		wantAlive := aliveBefore - len(killed)
		if alive[origin] {
			wantAlive--
		}
		require.Equal(t, wantAlive, tbl.AliveCount(), "round %d", round)
	}
}
