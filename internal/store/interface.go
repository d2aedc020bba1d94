// Package store is the persistence layer (C7): it reads seasons, games,
// teams, and players, and writes ranking documents, history snapshots, and
// calculation state, against a document database whose transactions
// require all reads before any writes and whose batched writes are capped
// at a fixed operation count per chunk.
package store

import (
	"context"
	"time"

	"rankingsengine/internal/models"
)

// CalculationStateUpdate is a partial update to a CalculationState
// document: only non-nil fields are applied, so a progress tick doesn't
// have to carry the whole record.
type CalculationStateUpdate struct {
	Status      *models.CalculationStatus
	Progress    *models.Progress
	CompletedAt *time.Time
	Error       *models.CalculationError
	Warnings    []models.Warning
}

// Store is the persistence contract the engine depends on. Implementations
// must honor the paging and batching requirements documented on each
// method; callers (the engine) do not re-check them. Memoization of
// LoadTeam and LoadPlayerName is layered on by NewMemoizingStore.
type Store interface {
	// LoadSeasonsOrdered returns every season ordered by dateStart
	// ascending.
	LoadSeasonsOrdered(ctx context.Context) ([]models.Season, error)

	// LoadCompletedGamesOrdered returns every completed game across all
	// seasons ordered by date ascending. Implementations must page
	// through the backend rather than assuming a single round-trip.
	LoadCompletedGamesOrdered(ctx context.Context) ([]models.Game, error)

	// LoadTeam returns a team by id.
	LoadTeam(ctx context.Context, teamID string) (models.Team, error)

	// LoadPlayerName returns a player's display name.
	LoadPlayerName(ctx context.Context, playerID string) (string, error)

	// LoadPlayer returns a player's full record, used by the admin API to
	// check the administrator capability.
	LoadPlayer(ctx context.Context, playerID string) (models.Player, error)

	// WriteRankingSnapshot writes one snapshot, idempotent by its
	// document id.
	WriteRankingSnapshot(ctx context.Context, snapshot models.RankingSnapshot) error

	// WritePlayerRatings atomically writes a batch of ratings, chunked to
	// the backend's per-batch operation limit internally.
	WritePlayerRatings(ctx context.Context, ratings []models.PlayerRating) error

	// CreateCalculationState creates a new CalculationState document and
	// returns its id.
	CreateCalculationState(ctx context.Context, state models.CalculationState) (string, error)

	// UpdateCalculationState applies a partial update to an existing
	// CalculationState document.
	UpdateCalculationState(ctx context.Context, id string, update CalculationStateUpdate) error

	// GetCalculationState reads one CalculationState document by id.
	GetCalculationState(ctx context.Context, id string) (models.CalculationState, error)

	// LatestCalculationState returns the most recently started
	// CalculationState, or nil if none exists, used to enforce
	// single-rebuild-at-a-time and stale-run reclamation.
	LatestCalculationState(ctx context.Context) (*models.CalculationState, error)
}
