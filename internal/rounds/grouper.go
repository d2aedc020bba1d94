// Package rounds groups completed games into rounds — the maximal sets of
// games sharing the same start instant — and orders those rounds
// chronologically.
package rounds

import (
	"sort"
	"strconv"

	"rankingsengine/internal/models"
)

// Round is the maximal set of completed games sharing one start instant.
type Round struct {
	// ID is the shared instant rendered as milliseconds since epoch.
	ID    string
	Start int64 // unix millis
	Games []models.Game
}

// SeasonID returns the seasonId carried in a snapshot document id for this
// round: the first game's seasonId, by input order within the round.
func (r Round) SeasonID() string {
	if len(r.Games) == 0 {
		return ""
	}
	return r.Games[0].SeasonID
}

// Group partitions games by exact shared Date instant and returns rounds
// ordered by that instant ascending. games need not be pre-sorted. A round
// may span multiple seasons if games from different seasons share an
// instant; that is not an error.
func Group(games []models.Game) []Round {
	byInstant := make(map[int64][]models.Game)
	order := make([]int64, 0)
	for _, g := range games {
		millis := g.Date.UnixMilli()
		if _, seen := byInstant[millis]; !seen {
			order = append(order, millis)
		}
		byInstant[millis] = append(byInstant[millis], g)
	}

	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	result := make([]Round, 0, len(order))
	for _, millis := range order {
		result = append(result, Round{
			ID:    strconv.FormatInt(millis, 10),
			Start: millis,
			Games: byInstant[millis],
		})
	}
	return result
}
