package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"rankingsengine/internal/models"
)

var errNotFound = errors.New("not found")

// MemoryStore is an in-memory Store used by property and controller tests
// that need real read/write/read-back semantics without a live Firestore
// emulator.
type MemoryStore struct {
	mu           sync.Mutex
	seasons      map[string]models.Season
	teams        map[string]models.Team
	players      map[string]models.Player
	games        map[string]models.Game
	ratings      map[string]models.PlayerRating
	snapshots    map[string]models.RankingSnapshot
	calculations map[string]models.CalculationState
}

// NewMemoryStore returns an empty MemoryStore ready for seeding via its
// Seed* helpers.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		seasons:      make(map[string]models.Season),
		teams:        make(map[string]models.Team),
		players:      make(map[string]models.Player),
		games:        make(map[string]models.Game),
		ratings:      make(map[string]models.PlayerRating),
		snapshots:    make(map[string]models.RankingSnapshot),
		calculations: make(map[string]models.CalculationState),
	}
}

func (m *MemoryStore) SeedSeason(s models.Season) { m.mu.Lock(); defer m.mu.Unlock(); m.seasons[s.ID] = s }
func (m *MemoryStore) SeedTeam(t models.Team)     { m.mu.Lock(); defer m.mu.Unlock(); m.teams[t.ID] = t }
func (m *MemoryStore) SeedPlayer(p models.Player) { m.mu.Lock(); defer m.mu.Unlock(); m.players[p.ID] = p }
func (m *MemoryStore) SeedGame(g models.Game)     { m.mu.Lock(); defer m.mu.Unlock(); m.games[g.ID] = g }

// Ratings returns a snapshot of the current player ratings, for test
// assertions.
func (m *MemoryStore) Ratings() map[string]models.PlayerRating {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]models.PlayerRating, len(m.ratings))
	for k, v := range m.ratings {
		out[k] = v
	}
	return out
}

// Snapshots returns every written snapshot ordered by id (lexical order
// equals chronological order per the documented id scheme).
func (m *MemoryStore) Snapshots() []models.RankingSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.RankingSnapshot, 0, len(m.snapshots))
	for _, v := range m.snapshots {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *MemoryStore) LoadSeasonsOrdered(ctx context.Context) ([]models.Season, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Season, 0, len(m.seasons))
	for _, s := range m.seasons {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateStart.Before(out[j].DateStart) })
	return out, nil
}

func (m *MemoryStore) LoadCompletedGamesOrdered(ctx context.Context) ([]models.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Game, 0, len(m.games))
	for _, g := range m.games {
		if g.Completed() {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *MemoryStore) LoadTeam(ctx context.Context, teamID string) (models.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.teams[teamID]
	if !ok {
		return models.Team{}, fmt.Errorf("team %s: %w", teamID, errNotFound)
	}
	return t, nil
}

func (m *MemoryStore) LoadPlayerName(ctx context.Context, playerID string) (string, error) {
	p, err := m.LoadPlayer(ctx, playerID)
	if err != nil {
		return "", err
	}
	return p.DisplayName(), nil
}

func (m *MemoryStore) LoadPlayer(ctx context.Context, playerID string) (models.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[playerID]
	if !ok {
		return models.Player{}, fmt.Errorf("player %s: %w", playerID, errNotFound)
	}
	return p, nil
}

func (m *MemoryStore) WriteRankingSnapshot(ctx context.Context, snapshot models.RankingSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[snapshot.ID] = snapshot
	return nil
}

func (m *MemoryStore) WritePlayerRatings(ctx context.Context, ratings []models.PlayerRating) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range ratings {
		m.ratings[r.PlayerID] = r
	}
	return nil
}

func (m *MemoryStore) CreateCalculationState(ctx context.Context, state models.CalculationState) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state.ID == "" {
		state.ID = uuid.NewString()
	}
	m.calculations[state.ID] = state
	return state.ID, nil
}

func (m *MemoryStore) UpdateCalculationState(ctx context.Context, id string, update CalculationStateUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.calculations[id]
	if !ok {
		return fmt.Errorf("calculation state %s: %w", id, errNotFound)
	}
	if update.Status != nil {
		state.Status = *update.Status
	}
	if update.Progress != nil {
		state.Progress = *update.Progress
	}
	if update.CompletedAt != nil {
		state.CompletedAt = update.CompletedAt
	}
	if update.Error != nil {
		state.Error = update.Error
	}
	if update.Warnings != nil {
		state.Warnings = update.Warnings
	}
	m.calculations[id] = state
	return nil
}

func (m *MemoryStore) GetCalculationState(ctx context.Context, id string) (models.CalculationState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.calculations[id]
	if !ok {
		return models.CalculationState{}, fmt.Errorf("calculation state %s: %w", id, errNotFound)
	}
	return state, nil
}

func (m *MemoryStore) LatestCalculationState(ctx context.Context) (*models.CalculationState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *models.CalculationState
	for _, s := range m.calculations {
		s := s
		if latest == nil || s.StartedAt.After(latest.StartedAt) {
			latest = &s
		}
	}
	return latest, nil
}
