// Package teamstrength resolves a team's current per-player skill inputs
// for the rating kernel, seeding new players on first sight.
package teamstrength

import (
	"rankingsengine/internal/kernel"
	"rankingsengine/internal/models"
)

// Resolver reads a team's roster once (cached by the caller) and produces,
// for each roster entry in order, the participant's current rating state,
// seeding new players into the rating map as it goes. It holds no state of
// its own.
type Resolver struct {
	StartingMu    float64
	StartingSigma float64
}

// New builds a resolver using the given starting rating for unseen
// players.
func New(startingMu, startingSigma float64) *Resolver {
	return &Resolver{StartingMu: startingMu, StartingSigma: startingSigma}
}

// Resolve returns, in roster order, the player id and current kernel.Rating
// for every entry on the roster. ratings is mutated in place: any player not
// already present is seeded with the starting rating and inserted.
func (r *Resolver) Resolve(roster []models.RosterEntry, playerName func(playerID string) string, ratings map[string]*models.RatingState) ([]string, []kernel.Rating) {
	ids := make([]string, 0, len(roster))
	skills := make([]kernel.Rating, 0, len(roster))

	for _, entry := range roster {
		state, ok := ratings[entry.PlayerID]
		if !ok {
			state = &models.RatingState{
				PlayerID:   entry.PlayerID,
				PlayerName: playerName(entry.PlayerID),
				Mu:         r.StartingMu,
				Sigma:      r.StartingSigma,
				Seasons:    make(map[string]struct{}),
			}
			ratings[entry.PlayerID] = state
		}
		ids = append(ids, entry.PlayerID)
		skills = append(skills, kernel.Rating{Mu: state.Mu, Sigma: state.Sigma})
	}

	return ids, skills
}
