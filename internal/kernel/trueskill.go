// Package kernel implements the pure, deterministic rating update: given the
// skill state of every participant on both sides of a game and its outcome,
// it computes the new skill state for every participant. It has no
// knowledge of players, teams, rounds, or persistence — only Gaussians.
//
// The update follows the two-team TrueSkill factor graph (Herbrich et al.,
// "TrueSkill: A Bayesian Skill Rating System"), using the closed-form
// truncated-Gaussian moment matching that the published algorithm reduces
// to when there are exactly two teams, each an aggregate of its players'
// independent skill distributions.
package kernel

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Rating is a player's skill belief: mean and standard deviation of a
// Gaussian. It carries no identity — the caller is responsible for mapping
// ratings to players.
type Rating struct {
	Mu    float64
	Sigma float64
}

// Outcome is the result of a game from the home side's perspective.
type Outcome int

const (
	HomeWin Outcome = iota
	AwayWin
	Draw
)

var standardNormal = distuv.Normal{Mu: 0, Sigma: 1}

// Params bundles the constants the update needs. Beta is the performance
// variance, Tau the per-game dynamics factor added to every participant's
// variance before the update (models skill drift since their last game),
// DrawProbability the prior probability of a draw used to derive the draw
// margin.
type Params struct {
	Beta            float64
	Tau             float64
	DrawProbability float64
}

// Update computes new ratings for every participant on both sides of one
// game. home and away are ordered lists of pre-game ratings; the returned
// slices are the same length and order as the inputs. weight scales both
// the mean adjustment and the variance reduction (playoff games use a
// weight greater than 1).
//
// Update is pure: identical inputs always produce identical outputs, down
// to the bit pattern, because it performs no iteration with data-dependent
// termination and no access to any mutable or external state.
func Update(home, away []Rating, outcome Outcome, weight float64, p Params) (newHome, newAway []Rating) {
	homeDyn := applyDynamics(home, p.Tau)
	awayDyn := applyDynamics(away, p.Tau)

	homeMeanSum, homeVarSum := aggregate(homeDyn)
	awayMeanSum, awayVarSum := aggregate(awayDyn)

	totalPlayers := len(home) + len(away)
	c := math.Sqrt(homeVarSum + awayVarSum + float64(totalPlayers)*p.Beta*p.Beta)
	margin := drawMargin(p.DrawProbability, p.Beta, totalPlayers)

	// diff is always computed home-minus-away; sign flips what "winning"
	// means for the v/w functions below.
	diff := homeMeanSum - awayMeanSum

	var v, w float64
	switch outcome {
	case HomeWin:
		t := diff / c
		v = vExceeds(t, margin/c)
		w = wExceeds(t, margin/c)
	case AwayWin:
		t := -diff / c
		v = vExceeds(t, margin/c)
		w = wExceeds(t, margin/c)
	case Draw:
		t := diff / c
		v = vWithin(t, margin/c)
		w = wWithin(t, margin/c)
	}

	homeSign := 1.0
	awaySign := -1.0
	if outcome == AwayWin {
		homeSign, awaySign = -1.0, 1.0
	}

	newHome = updateSide(homeDyn, homeSign, v, w, c, weight)
	newAway = updateSide(awayDyn, awaySign, v, w, c, weight)
	return newHome, newAway
}

// applyDynamics adds the per-game dynamics factor to every rating's
// variance, modeling uncertainty growth since the participant's last game.
func applyDynamics(rs []Rating, tau float64) []Rating {
	out := make([]Rating, len(rs))
	for i, r := range rs {
		variance := r.Sigma*r.Sigma + tau*tau
		out[i] = Rating{Mu: r.Mu, Sigma: math.Sqrt(variance)}
	}
	return out
}

func aggregate(rs []Rating) (meanSum, varSum float64) {
	for _, r := range rs {
		meanSum += r.Mu
		varSum += r.Sigma * r.Sigma
	}
	return meanSum, varSum
}

func updateSide(side []Rating, sign, v, w, c, weight float64) []Rating {
	out := make([]Rating, len(side))
	for i, r := range side {
		variance := r.Sigma * r.Sigma
		meanMultiplier := variance / c
		newMu := r.Mu + weight*sign*meanMultiplier*v

		varMultiplier := variance / (c * c)
		shrinkFactor := w * varMultiplier
		newVariance := variance * (1 - weight*shrinkFactor)
		if newVariance < 1e-9 {
			newVariance = 1e-9
		}
		out[i] = Rating{Mu: newMu, Sigma: math.Sqrt(newVariance)}
	}
	return out
}

// drawMargin converts a prior draw probability into the performance-space
// margin within which a game is considered a draw, per the standard
// TrueSkill derivation: margin = Φ⁻¹((drawProbability+1)/2) · √n · beta.
func drawMargin(drawProbability, beta float64, totalPlayers int) float64 {
	if drawProbability <= 0 {
		return 0
	}
	return standardNormal.Quantile((drawProbability+1)/2) * math.Sqrt(float64(totalPlayers)) * beta
}

// vExceeds is the truncated-Gaussian additive correction for "team
// performance difference exceeds the draw margin" (a decisive win/loss).
func vExceeds(t, margin float64) float64 {
	denom := standardNormal.CDF(t - margin)
	if denom < 1e-12 {
		return -(t - margin)
	}
	return standardNormal.Prob(t-margin) / denom
}

// wExceeds is the corresponding multiplicative variance-shrink term.
func wExceeds(t, margin float64) float64 {
	v := vExceeds(t, margin)
	return v * (v + t - margin)
}

// vWithin is the truncated-Gaussian additive correction for "team
// performance difference falls within the draw margin" (a draw).
func vWithin(t, margin float64) float64 {
	num := standardNormal.Prob(-margin-t) - standardNormal.Prob(margin-t)
	denom := standardNormal.CDF(margin-t) - standardNormal.CDF(-margin-t)
	if denom < 1e-12 {
		return 0
	}
	return num / denom
}

// wWithin is the corresponding multiplicative variance-shrink term.
func wWithin(t, margin float64) float64 {
	denom := standardNormal.CDF(margin-t) - standardNormal.CDF(-margin-t)
	if denom < 1e-12 {
		return vWithin(t, margin) * vWithin(t, margin)
	}
	num := (margin-t)*standardNormal.Prob(margin-t) - (-margin-t)*standardNormal.Prob(-margin-t)
	v := vWithin(t, margin)
	return v*v + num/denom
}
