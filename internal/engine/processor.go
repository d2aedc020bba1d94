// Package engine drives the round-by-round rebuild: the processor (C5)
// applies decay, runs the rating kernel concurrently across one round's
// games, and emits a history snapshot; the controller (C6) sequences
// rounds across a full rebuild and owns the CalculationState lifecycle.
package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"rankingsengine/internal/decay"
	"rankingsengine/internal/kernel"
	"rankingsengine/internal/models"
	"rankingsengine/internal/rounds"
	"rankingsengine/internal/store"
	"rankingsengine/internal/teamstrength"
)

// Params bundles every tunable the round processor needs from
// configuration.
type Params struct {
	StartingMu                 float64
	StartingSigma              float64
	Kernel                     kernel.Params
	Decay                      decay.Params
	PlayoffWeight              float64
	MaxConcurrentGamesPerRound int
}

// RoundProcessor implements C5: one round, fully processed, end to end.
type RoundProcessor struct {
	store    store.Store
	resolver *teamstrength.Resolver
	params   Params
}

// NewRoundProcessor builds a round processor against the given
// (already memoizing) store.
func NewRoundProcessor(s store.Store, params Params) *RoundProcessor {
	return &RoundProcessor{
		store:    s,
		resolver: teamstrength.New(params.StartingMu, params.StartingSigma),
		params:   params,
	}
}

type gameDelta struct {
	playerID string
	deltaMu  float64
	deltaSig float64
}

// ProcessRound runs the full per-round contract described in C5 and
// returns the snapshot document for the round, plus any warnings raised
// while resolving rosters (a missing team is recorded, not fatal). ratings
// is mutated in-place: new players are seeded, decay is applied, and every
// participant's post-round rating is written back.
func (p *RoundProcessor) ProcessRound(ctx context.Context, r rounds.Round, ratings map[string]*models.RatingState, calculationID string) (models.RankingSnapshot, []models.Warning, error) {
	participants, gameRosters, warnings, err := p.resolveParticipants(ctx, r, ratings)
	if err != nil {
		return models.RankingSnapshot{}, nil, fmt.Errorf("resolve round %s participants: %w", r.ID, err)
	}

	decay.Apply(ratings, participants, p.params.Decay)

	preRound := snapshotRatings(ratings, participants)

	deltas, err := p.runGames(ctx, r, gameRosters, preRound)
	if err != nil {
		return models.RankingSnapshot{}, warnings, fmt.Errorf("run round %s games: %w", r.ID, err)
	}

	applyDeltas(ratings, deltas, p.params.StartingMu, p.params.StartingSigma)
	gamesPlayedPerPlayer, lastSeasonPerPlayer := countParticipation(gameRosters)

	for playerID, count := range gamesPlayedPerPlayer {
		state := ratings[playerID]
		state.TotalGames += count
		if state.Seasons == nil {
			state.Seasons = make(map[string]struct{})
		}
		state.Seasons[lastSeasonPerPlayer[playerID]] = struct{}{}
		state.LastSeasonID = lastSeasonPerPlayer[playerID]
	}

	return buildSnapshot(r, ratings, preRound, participants, calculationID, p.params.StartingMu), warnings, nil
}

// gameRoster pairs one game with its home and away player ids, resolved
// once up front so concurrent game processing never calls back into the
// store.
type gameRoster struct {
	game    models.Game
	homeIDs []string
	awayIDs []string
}

// resolveParticipants loads every game's home and away rosters for the
// round and seeds new players into ratings via the resolver (C3), so
// seeding always goes through one path regardless of which round first
// sees a player. A team that cannot be loaded resolves to an empty
// roster and a warning rather than a fatal error.
func (p *RoundProcessor) resolveParticipants(ctx context.Context, r rounds.Round, ratings map[string]*models.RatingState) (map[string]struct{}, []gameRoster, []models.Warning, error) {
	participants := make(map[string]struct{})
	rosters := make([]gameRoster, 0, len(r.Games))
	var warnings []models.Warning

	playerName := func(playerID string) string {
		name, err := p.store.LoadPlayerName(ctx, playerID)
		if err != nil {
			return ""
		}
		return name
	}

	for _, game := range r.Games {
		gr := gameRoster{game: game}

		if game.HomeTeamID != nil {
			ids, warn := p.resolveRoster(ctx, *game.HomeTeamID, ratings, playerName)
			gr.homeIDs = ids
			if warn != "" {
				warnings = append(warnings, models.Warning{Message: warn, Timestamp: time.Now().UTC()})
			}
		}
		if game.AwayTeamID != nil {
			ids, warn := p.resolveRoster(ctx, *game.AwayTeamID, ratings, playerName)
			gr.awayIDs = ids
			if warn != "" {
				warnings = append(warnings, models.Warning{Message: warn, Timestamp: time.Now().UTC()})
			}
		}

		for _, id := range gr.homeIDs {
			participants[id] = struct{}{}
		}
		for _, id := range gr.awayIDs {
			participants[id] = struct{}{}
		}
		rosters = append(rosters, gr)
	}

	return participants, rosters, warnings, nil
}

// resolveRoster loads a team and resolves its roster through the
// strength resolver, returning a warning message instead of an error if
// the team cannot be loaded.
func (p *RoundProcessor) resolveRoster(ctx context.Context, teamID string, ratings map[string]*models.RatingState, playerName func(string) string) ([]string, string) {
	team, err := p.store.LoadTeam(ctx, teamID)
	if err != nil {
		return nil, fmt.Sprintf("team %s could not be loaded and was treated as an empty roster: %v", teamID, err)
	}
	ids, _ := p.resolver.Resolve(team.Roster, playerName, ratings)
	return ids, ""
}

func snapshotRatings(ratings map[string]*models.RatingState, participants map[string]struct{}) map[string]kernel.Rating {
	out := make(map[string]kernel.Rating, len(participants))
	for playerID := range participants {
		if state, ok := ratings[playerID]; ok {
			out[playerID] = kernel.Rating{Mu: state.Mu, Sigma: state.Sigma}
		}
	}
	return out
}

// runGames processes every game in the round concurrently, bounded by
// MaxConcurrentGamesPerRound, reading only from preRound (never the live
// ratings map) so the result does not depend on scheduling order.
func (p *RoundProcessor) runGames(ctx context.Context, r rounds.Round, rosters []gameRoster, preRound map[string]kernel.Rating) ([]gameDelta, error) {
	deltasPerGame := make([][]gameDelta, len(rosters))

	g, ctx := errgroup.WithContext(ctx)
	maxConcurrency := p.params.MaxConcurrentGamesPerRound
	if maxConcurrency <= 0 {
		maxConcurrency = 8
	}
	sem := make(chan struct{}, maxConcurrency)

	for i, gr := range rosters {
		i, gr := i, gr
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return ctx.Err()
			}
			defer func() { <-sem }()

			deltasPerGame[i] = processOneGame(gr, preRound, p.params.StartingMu, p.params.StartingSigma, p.params.PlayoffWeight, p.params.Kernel)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []gameDelta
	for _, d := range deltasPerGame {
		all = append(all, d...)
	}
	return all, nil
}

func processOneGame(gr gameRoster, preRound map[string]kernel.Rating, startingMu, startingSigma, playoffWeight float64, kp kernel.Params) []gameDelta {
	homePre := lookupRatings(gr.homeIDs, preRound, startingMu, startingSigma)
	awayPre := lookupRatings(gr.awayIDs, preRound, startingMu, startingSigma)

	weight := 1.0
	if gr.game.Type == models.GameTypePlayoff {
		weight = playoffWeight
	}

	outcome := toKernelOutcome(gr.game.Result())
	newHome, newAway := kernel.Update(homePre, awayPre, outcome, weight, kp)

	var out []gameDelta
	for i, id := range gr.homeIDs {
		out = append(out, gameDelta{playerID: id, deltaMu: newHome[i].Mu - homePre[i].Mu, deltaSig: newHome[i].Sigma - homePre[i].Sigma})
	}
	for i, id := range gr.awayIDs {
		out = append(out, gameDelta{playerID: id, deltaMu: newAway[i].Mu - awayPre[i].Mu, deltaSig: newAway[i].Sigma - awayPre[i].Sigma})
	}
	return out
}

func toKernelOutcome(o models.Outcome) kernel.Outcome {
	switch o {
	case models.OutcomeHomeWin:
		return kernel.HomeWin
	case models.OutcomeAwayWin:
		return kernel.AwayWin
	default:
		return kernel.Draw
	}
}

func lookupRatings(ids []string, preRound map[string]kernel.Rating, startingMu, startingSigma float64) []kernel.Rating {
	out := make([]kernel.Rating, len(ids))
	for i, id := range ids {
		if r, ok := preRound[id]; ok {
			out[i] = r
		} else {
			out[i] = kernel.Rating{Mu: startingMu, Sigma: startingSigma}
		}
	}
	return out
}

// applyDeltas sums every game's contribution per player (the pathological
// shared-participant case collapses into a plain sum here, since each
// game's delta was computed against the same pre-round baseline) and
// writes the result back into the live rating map, seeding any player not
// already present.
func applyDeltas(ratings map[string]*models.RatingState, deltas []gameDelta, startingMu, startingSigma float64) {
	type accum struct {
		deltaMu  float64
		deltaSig float64
	}
	sums := make(map[string]accum)
	for _, d := range deltas {
		a := sums[d.playerID]
		a.deltaMu += d.deltaMu
		a.deltaSig += d.deltaSig
		sums[d.playerID] = a
	}

	for playerID, a := range sums {
		state, ok := ratings[playerID]
		if !ok {
			state = &models.RatingState{
				PlayerID: playerID,
				Mu:       startingMu,
				Sigma:    startingSigma,
				Seasons:  make(map[string]struct{}),
			}
			ratings[playerID] = state
		}
		state.Mu += a.deltaMu
		state.Sigma += a.deltaSig
		state.LastChange = a.deltaMu
		if state.Sigma < 1e-6 {
			state.Sigma = 1e-6
		}
	}
}

// countParticipation returns, per player, how many games in the round
// they played in and which season's id should be recorded as their most
// recent (the last game, in round order, that they appear in).
func countParticipation(rosters []gameRoster) (counts map[string]int, lastSeason map[string]string) {
	counts = make(map[string]int)
	lastSeason = make(map[string]string)
	for _, gr := range rosters {
		for _, id := range gr.homeIDs {
			counts[id]++
			lastSeason[id] = gr.game.SeasonID
		}
		for _, id := range gr.awayIDs {
			counts[id]++
			lastSeason[id] = gr.game.SeasonID
		}
	}
	return counts, lastSeason
}

func buildSnapshot(r rounds.Round, ratings map[string]*models.RatingState, preRound map[string]kernel.Rating, participants map[string]struct{}, calculationID string, startingMu float64) models.RankingSnapshot {
	entries := make([]models.SnapshotEntry, 0, len(participants))
	conservative := make(map[string]float64, len(participants))
	for playerID := range participants {
		state := ratings[playerID]
		prev := startingMu
		if pre, ok := preRound[playerID]; ok {
			prev = pre.Mu
		}
		change := state.Mu - prev
		conservative[playerID] = state.Mu - 3*state.Sigma

		entries = append(entries, models.SnapshotEntry{
			PlayerID:       playerID,
			PlayerName:     state.PlayerName,
			Rating:         state.Mu,
			TotalGames:     state.TotalGames,
			TotalSeasons:   state.TotalSeasons(),
			PreviousRating: &prev,
			Change:         &change,
		})
	}

	// Rank by the same ordering the final PlayerRating projection uses:
	// conservative rating descending, then mu descending, then playerId
	// ascending, so replaying snapshots reproduces the final rankings.
	sort.Slice(entries, func(i, j int) bool {
		ci, cj := conservative[entries[i].PlayerID], conservative[entries[j].PlayerID]
		if ci != cj {
			return ci > cj
		}
		if entries[i].Rating != entries[j].Rating {
			return entries[i].Rating > entries[j].Rating
		}
		return entries[i].PlayerID < entries[j].PlayerID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}

	gameIDs := make([]string, len(r.Games))
	for i, g := range r.Games {
		gameIDs[i] = g.ID
	}

	seasonID := r.SeasonID()
	return models.RankingSnapshot{
		ID:           r.ID + "_" + seasonID,
		SeasonID:     seasonID,
		SnapshotDate: time.UnixMilli(r.Start).UTC(),
		Entries:      entries,
		RoundMeta: models.RoundMeta{
			RoundID:        r.ID,
			RoundStartTime: time.UnixMilli(r.Start).UTC(),
			GameCount:      len(r.Games),
			GameIDs:        gameIDs,
			CalculationID:  calculationID,
		},
	}
}
