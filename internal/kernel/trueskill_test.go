package kernel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultParams() Params {
	sigma0 := 25.0 / 3
	return Params{
		Beta:            sigma0 / 2,
		Tau:             sigma0 / 100,
		DrawProbability: 0.10,
	}
}

func startingPair(n int) []Rating {
	sigma0 := 25.0 / 3
	rs := make([]Rating, n)
	for i := range rs {
		rs[i] = Rating{Mu: 25.0, Sigma: sigma0}
	}
	return rs
}

func TestUpdate_Determinism(t *testing.T) {
	home := startingPair(2)
	away := startingPair(2)
	p := defaultParams()

	h1, a1 := Update(home, away, HomeWin, 1.0, p)
	h2, a2 := Update(home, away, HomeWin, 1.0, p)

	assert.Equal(t, h1, h2)
	assert.Equal(t, a1, a2)
}

func TestUpdate_HomeWinRaisesHomeLowersAway(t *testing.T) {
	home := startingPair(2)
	away := startingPair(2)
	p := defaultParams()

	newHome, newAway := Update(home, away, HomeWin, 1.0, p)

	for _, r := range newHome {
		assert.Greater(t, r.Mu, 25.0)
	}
	for _, r := range newAway {
		assert.Less(t, r.Mu, 25.0)
	}
}

func TestUpdate_IdenticalTeammatesStayEqual(t *testing.T) {
	home := startingPair(2)
	away := startingPair(2)
	p := defaultParams()

	newHome, _ := Update(home, away, HomeWin, 1.0, p)

	assert.InDelta(t, newHome[0].Mu, newHome[1].Mu, 1e-9)
	assert.InDelta(t, newHome[0].Sigma, newHome[1].Sigma, 1e-9)
}

func TestUpdate_PlayoffWeightExaggeratesChange(t *testing.T) {
	home := startingPair(2)
	away := startingPair(2)
	p := defaultParams()

	regularHome, _ := Update(home, away, HomeWin, 1.0, p)
	playoffHome, _ := Update(home, away, HomeWin, 2.0, p)

	regularDelta := math.Abs(regularHome[0].Mu - 25.0)
	playoffDelta := math.Abs(playoffHome[0].Mu - 25.0)
	assert.Greater(t, playoffDelta, regularDelta)
}

func TestUpdate_DrawIsSymmetricForEqualTeams(t *testing.T) {
	home := startingPair(2)
	away := startingPair(2)
	p := defaultParams()

	newHome, newAway := Update(home, away, Draw, 1.0, p)

	assert.InDelta(t, 25.0, newHome[0].Mu, 1e-9)
	assert.InDelta(t, 25.0, newAway[0].Mu, 1e-9)
	assert.InDelta(t, newHome[0].Sigma, newAway[0].Sigma, 1e-9)
	assert.Less(t, newHome[0].Sigma, home[0].Sigma)
}

func TestUpdate_AwayWinMirrorsHomeWin(t *testing.T) {
	home := startingPair(2)
	away := startingPair(2)
	p := defaultParams()

	homeWinHome, homeWinAway := Update(home, away, HomeWin, 1.0, p)
	awayWinHome, awayWinAway := Update(home, away, AwayWin, 1.0, p)

	// Swapping which side wins should mirror the mu deltas exactly
	// since both sides start identically rated.
	assert.InDelta(t, homeWinHome[0].Mu-25.0, -(awayWinHome[0].Mu - 25.0), 1e-9)
	assert.InDelta(t, homeWinAway[0].Mu-25.0, -(awayWinAway[0].Mu - 25.0), 1e-9)
}

func TestUpdate_SigmaNeverIncreasesFromAGame(t *testing.T) {
	home := startingPair(1)
	away := startingPair(1)
	p := defaultParams()

	newHome, newAway := Update(home, away, HomeWin, 1.0, p)

	// tau adds uncertainty before the match but the match update itself
	// shrinks variance, so the net sigma should stay below sigma0 + a
	// generous slack for the dynamics factor.
	require.Less(t, newHome[0].Sigma, home[0].Sigma+p.Tau)
	require.Less(t, newAway[0].Sigma, away[0].Sigma+p.Tau)
}

func TestUpdate_UnequalTeamSizes(t *testing.T) {
	home := startingPair(3)
	away := startingPair(1)
	p := defaultParams()

	newHome, newAway := Update(home, away, HomeWin, 1.0, p)

	require.Len(t, newHome, 3)
	require.Len(t, newAway, 1)
	for _, r := range newHome {
		assert.Greater(t, r.Mu, 25.0)
	}
	assert.Less(t, newAway[0].Mu, 25.0)
}
