package store

import (
	"context"
	"sync"

	"rankingsengine/internal/models"
)

// memoizing wraps a Store and caches LoadTeam/LoadPlayerName results for
// the lifetime of the wrapper, so a single rebuild never reads the same
// team or player document twice. Misses are cached alongside hits: a team
// id that resolved to nothing once resolves to nothing for the rest of
// the run without touching the backing store again. A fresh memoizing
// wrapper must be constructed per rebuild run — it is not safe to share
// across runs, since teams and player names can legitimately change
// between rebuilds.
type memoizing struct {
	Store
	mu    sync.Mutex
	teams map[string]teamLookup
	names map[string]nameLookup
}

type teamLookup struct {
	team models.Team
	err  error
}

type nameLookup struct {
	name string
	err  error
}

// NewMemoizingStore returns a Store that memoizes LoadTeam and
// LoadPlayerName against the given backing store. Every other method
// passes straight through.
func NewMemoizingStore(backing Store) Store {
	return &memoizing{
		Store: backing,
		teams: make(map[string]teamLookup),
		names: make(map[string]nameLookup),
	}
}

func (m *memoizing) LoadTeam(ctx context.Context, teamID string) (models.Team, error) {
	m.mu.Lock()
	if cached, ok := m.teams[teamID]; ok {
		m.mu.Unlock()
		return cached.team, cached.err
	}
	m.mu.Unlock()

	team, err := m.Store.LoadTeam(ctx, teamID)

	m.mu.Lock()
	m.teams[teamID] = teamLookup{team: team, err: err}
	m.mu.Unlock()
	return team, err
}

func (m *memoizing) LoadPlayerName(ctx context.Context, playerID string) (string, error) {
	m.mu.Lock()
	if cached, ok := m.names[playerID]; ok {
		m.mu.Unlock()
		return cached.name, cached.err
	}
	m.mu.Unlock()

	name, err := m.Store.LoadPlayerName(ctx, playerID)

	m.mu.Lock()
	m.names[playerID] = nameLookup{name: name, err: err}
	m.mu.Unlock()
	return name, err
}
