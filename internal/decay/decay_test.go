package decay

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"rankingsengine/internal/models"
)

func defaultParams() Params {
	sigma0 := 25.0 / 3
	return Params{
		ThresholdRounds:        3,
		SigmaInflationPerRound: sigma0 / 100,
		SigmaCap:               sigma0,
	}
}

func TestApply_ParticipantResetsCounter(t *testing.T) {
	ratings := map[string]*models.RatingState{
		"p1": {PlayerID: "p1", InactivityCounter: 5, Sigma: 1.0},
	}
	Apply(ratings, map[string]struct{}{"p1": {}}, defaultParams())

	assert.Equal(t, 0, ratings["p1"].InactivityCounter)
}

func TestApply_NonParticipantIncrementsCounter(t *testing.T) {
	ratings := map[string]*models.RatingState{
		"p1": {PlayerID: "p1", InactivityCounter: 0, Sigma: 1.0},
	}
	Apply(ratings, map[string]struct{}{}, defaultParams())

	assert.Equal(t, 1, ratings["p1"].InactivityCounter)
}

// A player plays in round R0, sits out R1..R4, then plays in R5. By R5's
// snapshot sigma must have increased by exactly 2*tau relative to its
// value after R0: rounds R1-R3 bring the counter to the threshold of 3
// (inflating once, on R3), R4 inflates again (counter 4), and R5 the
// player plays so no further inflation applies that round.
func TestApply_ReturnAfterLongAbsence(t *testing.T) {
	p := defaultParams()
	startSigma := 1.0
	state := &models.RatingState{PlayerID: "p", Sigma: startSigma}
	ratings := map[string]*models.RatingState{"p": state}

	// R0: plays.
	Apply(ratings, map[string]struct{}{"p": {}}, p)
	afterR0 := state.Sigma

	// R1, R2: sits out, counter reaches 1 then 2, below threshold.
	Apply(ratings, map[string]struct{}{}, p)
	Apply(ratings, map[string]struct{}{}, p)
	assert.InDelta(t, afterR0, state.Sigma, 1e-12)

	// R3: sits out, counter reaches 3, meets threshold, inflates once.
	Apply(ratings, map[string]struct{}{}, p)
	assert.InDelta(t, afterR0+p.SigmaInflationPerRound, state.Sigma, 1e-12)

	// R4: sits out, counter reaches 4, inflates again.
	Apply(ratings, map[string]struct{}{}, p)
	assert.InDelta(t, afterR0+2*p.SigmaInflationPerRound, state.Sigma, 1e-12)

	// R5: plays, counter resets, no further inflation.
	Apply(ratings, map[string]struct{}{"p": {}}, p)
	assert.InDelta(t, afterR0+2*p.SigmaInflationPerRound, state.Sigma, 1e-12)
	assert.Equal(t, 0, state.InactivityCounter)
}

func TestApply_SigmaCapped(t *testing.T) {
	p := defaultParams()
	state := &models.RatingState{PlayerID: "p", Sigma: p.SigmaCap}
	ratings := map[string]*models.RatingState{"p": state}

	for i := 0; i < 10; i++ {
		Apply(ratings, map[string]struct{}{}, p)
	}

	assert.Equal(t, p.SigmaCap, state.Sigma)
}
