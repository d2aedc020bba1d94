package rounds

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rankingsengine/internal/models"
)

func mkGame(id, seasonID string, date time.Time) models.Game {
	return models.Game{ID: id, SeasonID: seasonID, Date: date}
}

func TestGroup_OrdersByInstantAscending(t *testing.T) {
	t0 := time.Date(2024, 1, 14, 18, 0, 0, 0, time.UTC)
	t1 := t0.Add(24 * time.Hour)

	games := []models.Game{
		mkGame("g2", "S1", t1),
		mkGame("g1", "S1", t0),
	}

	result := Group(games)
	require.Len(t, result, 2)
	assert.Equal(t, t0.UnixMilli(), result[0].Start)
	assert.Equal(t, t1.UnixMilli(), result[1].Start)
}

func TestGroup_SameInstantIsOneRound(t *testing.T) {
	t0 := time.Date(2024, 1, 14, 18, 0, 0, 0, time.UTC)
	games := []models.Game{
		mkGame("g1", "S1", t0),
		mkGame("g2", "S1", t0),
	}

	result := Group(games)
	require.Len(t, result, 1)
	assert.Len(t, result[0].Games, 2)
}

func TestGroup_CrossSeasonSharedInstantIsOneRound(t *testing.T) {
	t0 := time.Date(2024, 1, 14, 18, 0, 0, 0, time.UTC)
	games := []models.Game{
		mkGame("g1", "S1", t0),
		mkGame("g2", "S2", t0),
	}

	result := Group(games)
	require.Len(t, result, 1)
	assert.Equal(t, "S1", result[0].SeasonID())
}

func TestGroup_RoundIDIsMillisString(t *testing.T) {
	t0 := time.Date(2024, 1, 7, 18, 0, 0, 0, time.UTC)
	games := []models.Game{mkGame("g1", "S1", t0)}

	result := Group(games)
	require.Len(t, result, 1)
	assert.Equal(t, "1704650400000", result[0].ID)
}

func TestGroup_EmptyInput(t *testing.T) {
	result := Group(nil)
	assert.Empty(t, result)
}
