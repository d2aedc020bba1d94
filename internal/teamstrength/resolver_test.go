package teamstrength

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rankingsengine/internal/models"
)

func names(ids ...string) map[string]string {
	m := make(map[string]string, len(ids))
	for _, id := range ids {
		m[id] = id + "-name"
	}
	return m
}

func TestResolve_SeedsUnseenPlayers(t *testing.T) {
	r := New(25.0, 25.0/3)
	ratings := make(map[string]*models.RatingState)
	lookup := names("p1", "p2")

	ids, skills := r.Resolve(
		[]models.RosterEntry{{PlayerID: "p1"}, {PlayerID: "p2"}},
		func(id string) string { return lookup[id] },
		ratings,
	)

	require.Len(t, ids, 2)
	require.Len(t, skills, 2)
	assert.Equal(t, []string{"p1", "p2"}, ids)
	for _, s := range skills {
		assert.Equal(t, 25.0, s.Mu)
		assert.InDelta(t, 25.0/3, s.Sigma, 1e-9)
	}
	assert.Contains(t, ratings, "p1")
	assert.Contains(t, ratings, "p2")
	assert.Equal(t, "p1-name", ratings["p1"].PlayerName)
}

func TestResolve_ReusesExistingRatingRatherThanReseeding(t *testing.T) {
	r := New(25.0, 25.0/3)
	ratings := map[string]*models.RatingState{
		"p1": {PlayerID: "p1", Mu: 30.0, Sigma: 5.0, Seasons: map[string]struct{}{"S1": {}}},
	}

	ids, skills := r.Resolve(
		[]models.RosterEntry{{PlayerID: "p1"}},
		func(id string) string { return "ignored" },
		ratings,
	)

	require.Len(t, ids, 1)
	assert.Equal(t, 30.0, skills[0].Mu)
	assert.Equal(t, 5.0, skills[0].Sigma)
	// The existing state must not be overwritten by reseeding.
	assert.Equal(t, "p1", ratings["p1"].PlayerID)
	assert.Len(t, ratings["p1"].Seasons, 1)
}

func TestResolve_PreservesRosterOrder(t *testing.T) {
	r := New(25.0, 25.0/3)
	ratings := make(map[string]*models.RatingState)
	roster := []models.RosterEntry{{PlayerID: "c"}, {PlayerID: "a"}, {PlayerID: "b"}}

	ids, _ := r.Resolve(roster, func(id string) string { return id }, ratings)

	assert.Equal(t, []string{"c", "a", "b"}, ids)
}
