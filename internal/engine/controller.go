package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"rankingsengine/internal/cache"
	"rankingsengine/internal/config"
	"rankingsengine/internal/decay"
	"rankingsengine/internal/kernel"
	"rankingsengine/internal/models"
	"rankingsengine/internal/rounds"
	"rankingsengine/internal/store"
)

// ErrRebuildInProgress is returned by StartFullRebuild when another rebuild
// is already pending or running within the host-timeout window.
var ErrRebuildInProgress = errors.New("a rebuild is already in progress")

const deadlineGrace = 5 * time.Second

// Controller implements C6: it owns the CalculationState lifecycle and
// sequences rounds strictly, one at a time, across a full rebuild.
type Controller struct {
	store           store.Store
	processorParams Params
	lock            *cache.RebuildLock
	rankingsCfg     config.RankingsConfig
	hostDeadline    time.Duration
}

// NewController wires a job controller against the given backing store, the
// round processor's tunables, and a rebuild-exclusivity lock. The backing
// store must NOT already be a memoizing wrapper: the controller builds one
// fresh per rebuild run, since a long-lived wrapper would cache team
// rosters and player names across runs, and both can legitimately change
// between rebuilds.
func NewController(s store.Store, processorParams Params, lock *cache.RebuildLock, rankingsCfg config.RankingsConfig) *Controller {
	return &Controller{
		store:           s,
		processorParams: processorParams,
		lock:            lock,
		rankingsCfg:     rankingsCfg,
		hostDeadline:    time.Duration(rankingsCfg.HostDeadlineSeconds) * time.Second,
	}
}

// StartFullRebuild creates a new CalculationState and begins the rebuild in
// the background, returning its id immediately so the caller never blocks
// on the full run — the admin UI polls GetCalculationStatus instead. The
// caller must already be authenticated and carry the administrator
// capability; this is enforced one layer up, by the admin service.
func (c *Controller) StartFullRebuild(ctx context.Context, triggeredBy string) (string, error) {
	supersededID, err := c.reclaimStaleRun(ctx)
	if err != nil {
		return "", err
	}

	lockToken, err := c.lock.Acquire(ctx)
	if err != nil {
		if errors.Is(err, cache.ErrLockHeld) {
			return "", ErrRebuildInProgress
		}
		return "", fmt.Errorf("acquire rebuild lock: %w", err)
	}

	initial := models.CalculationState{
		CalcType:    "full rebuild",
		Status:      models.StatusPending,
		StartedAt:   time.Now().UTC(),
		TriggeredBy: triggeredBy,
		Progress: models.Progress{
			CurrentStep: "loading",
		},
		Parameters: parametersFromConfig(c.rankingsCfg, supersededID),
	}

	id, err := c.store.CreateCalculationState(ctx, initial)
	if err != nil {
		_ = c.lock.Release(ctx, lockToken)
		return "", fmt.Errorf("create calculation state: %w", err)
	}

	go c.run(id, lockToken)

	return id, nil
}

// GetCalculationStatus returns a CalculationState by id, read-only.
func (c *Controller) GetCalculationStatus(ctx context.Context, calculationID string) (models.CalculationState, error) {
	return c.store.GetCalculationState(ctx, calculationID)
}

// reclaimStaleRun enforces single-rebuild-at-a-time: a prior run still
// pending or running within the host-deadline window blocks a new one; a
// prior run beyond that window is stale and is marked failed so the new
// run can proceed, recording the reclaimed id on its own parameters.
func (c *Controller) reclaimStaleRun(ctx context.Context) (string, error) {
	latest, err := c.store.LatestCalculationState(ctx)
	if err != nil {
		return "", fmt.Errorf("check latest calculation state: %w", err)
	}
	if latest == nil {
		return "", nil
	}
	if latest.Status != models.StatusPending && latest.Status != models.StatusRunning {
		return "", nil
	}
	if time.Since(latest.StartedAt) < c.hostDeadline {
		return "", ErrRebuildInProgress
	}

	failed := models.StatusFailed
	staleErr := models.CalculationError{
		Message:   "superseded: run exceeded the host deadline without reaching a terminal state",
		Timestamp: time.Now().UTC(),
	}
	_ = c.store.UpdateCalculationState(ctx, latest.ID, store.CalculationStateUpdate{
		Status: &failed,
		Error:  &staleErr,
	})
	return latest.ID, nil
}

// run drives one rebuild end to end. It owns a background context bounded
// by the host deadline, independent of the request that triggered it.
func (c *Controller) run(calculationID, lockToken string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.hostDeadline)
	defer cancel()
	defer func() { _ = c.lock.Release(context.Background(), lockToken) }()

	log := logrus.WithField("calculationId", calculationID)
	log.Info("rebuild started")

	deadline := time.Now().Add(c.hostDeadline)

	// A fresh memoizing wrapper per run: team rosters and player names are
	// read at most once per rebuild, never cached across rebuilds.
	runStore := store.NewMemoizingStore(c.store)
	processor := NewRoundProcessor(runStore, c.processorParams)

	running := models.StatusRunning
	_ = c.store.UpdateCalculationState(ctx, calculationID, store.CalculationStateUpdate{
		Status:   &running,
		Progress: &models.Progress{CurrentStep: "loading"},
	})

	seasons, err := c.store.LoadSeasonsOrdered(ctx)
	if err != nil {
		c.fail(calculationID, fmt.Errorf("load seasons: %w", err))
		return
	}
	totalSeasons := len(seasons)
	if totalSeasons == 0 {
		c.fail(calculationID, errors.New("no seasons to process"))
		return
	}

	games, err := c.store.LoadCompletedGamesOrdered(ctx)
	if err != nil {
		c.fail(calculationID, fmt.Errorf("load completed games: %w", err))
		return
	}

	roundList := rounds.Group(games)
	progressEvery := maxInt(1, len(roundList)/100)

	ratings := make(map[string]*models.RatingState)
	var allWarnings []models.Warning
	seasonsProcessed := 0
	currentSeasonID := ""

	for i, round := range roundList {
		if time.Until(deadline) < deadlineGrace {
			c.fail(calculationID, errors.New("deadline exceeded"))
			return
		}

		seasonID := round.SeasonID()
		seasonChanged := seasonID != currentSeasonID
		if seasonChanged {
			seasonsProcessed++
			currentSeasonID = seasonID
			log.WithFields(logrus.Fields{
				"seasonId":         seasonID,
				"seasonsProcessed": seasonsProcessed,
				"totalSeasons":     totalSeasons,
			}).Info("entering season")
		}

		snapshot, warnings, err := processor.ProcessRound(ctx, round, ratings, calculationID)
		if err != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				c.fail(calculationID, errors.New("deadline exceeded"))
			} else {
				c.fail(calculationID, fmt.Errorf("process round %s: %w", round.ID, err))
			}
			return
		}
		if len(warnings) > 0 {
			log.WithField("roundId", round.ID).Warnf("%d warning(s) recorded while resolving round", len(warnings))
		}
		allWarnings = append(allWarnings, warnings...)

		if err := c.store.WriteRankingSnapshot(ctx, snapshot); err != nil {
			c.fail(calculationID, fmt.Errorf("write snapshot %s: %w", snapshot.ID, err))
			return
		}

		if i%progressEvery == 0 || seasonChanged {
			percent := minInt(95, int(math.Floor(95*float64(seasonsProcessed)/float64(totalSeasons))))
			current := currentSeasonID
			_ = c.store.UpdateCalculationState(ctx, calculationID, store.CalculationStateUpdate{
				Progress: &models.Progress{
					CurrentStep:      fmt.Sprintf("processing season %d/%d", seasonsProcessed, totalSeasons),
					PercentComplete:  percent,
					CurrentSeasonID:  &current,
					TotalSeasons:     totalSeasons,
					SeasonsProcessed: seasonsProcessed,
				},
				Warnings: allWarnings,
			})
		}
	}

	finalRatings := projectPlayerRatings(ratings)

	savingStep := models.Progress{
		CurrentStep:      "saving rankings",
		PercentComplete:  95,
		TotalSeasons:     totalSeasons,
		SeasonsProcessed: seasonsProcessed,
	}
	_ = c.store.UpdateCalculationState(ctx, calculationID, store.CalculationStateUpdate{Progress: &savingStep})

	if err := c.store.WritePlayerRatings(ctx, finalRatings); err != nil {
		c.fail(calculationID, fmt.Errorf("write player ratings: %w", err))
		return
	}

	completed := models.StatusCompleted
	now := time.Now().UTC()
	_ = c.store.UpdateCalculationState(ctx, calculationID, store.CalculationStateUpdate{
		Status:      &completed,
		CompletedAt: &now,
		Progress: &models.Progress{
			CurrentStep:      "complete",
			PercentComplete:  100,
			TotalSeasons:     totalSeasons,
			SeasonsProcessed: seasonsProcessed,
		},
		Warnings: allWarnings,
	})
	log.WithField("seasonsProcessed", seasonsProcessed).Info("rebuild completed")
}

func (c *Controller) fail(calculationID string, cause error) {
	failed := models.StatusFailed
	calcErr := models.CalculationError{
		Message:   cause.Error(),
		Timestamp: time.Now().UTC(),
	}
	logrus.WithField("calculationId", calculationID).WithError(cause).Error("rebuild failed")
	_ = c.store.UpdateCalculationState(context.Background(), calculationID, store.CalculationStateUpdate{
		Status: &failed,
		Error:  &calcErr,
	})
}

// projectPlayerRatings turns the final in-memory rating map into ordered
// PlayerRating documents: rank by conservative rating (mu - 3*sigma)
// descending, then mu descending, then playerId ascending for stability.
func projectPlayerRatings(ratings map[string]*models.RatingState) []models.PlayerRating {
	out := make([]models.PlayerRating, 0, len(ratings))
	for playerID, state := range ratings {
		var lastSeasonID *string
		if state.LastSeasonID != "" {
			id := state.LastSeasonID
			lastSeasonID = &id
		}
		out = append(out, models.PlayerRating{
			PlayerID:         playerID,
			PlayerName:       state.PlayerName,
			Mu:               state.Mu,
			Sigma:            state.Sigma,
			TotalGames:       state.TotalGames,
			TotalSeasons:     state.TotalSeasons(),
			LastUpdated:      time.Now().UTC(),
			LastSeasonID:     lastSeasonID,
			LastRatingChange: state.LastChange,
		})
	}

	conservative := func(r models.PlayerRating) float64 { return r.Mu - 3*r.Sigma }
	sort.Slice(out, func(i, j int) bool {
		ci, cj := conservative(out[i]), conservative(out[j])
		if ci != cj {
			return ci > cj
		}
		if out[i].Mu != out[j].Mu {
			return out[i].Mu > out[j].Mu
		}
		return out[i].PlayerID < out[j].PlayerID
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// ParamsFromConfig builds the round processor's tunables from the loaded
// rankings configuration, the single place that translates external
// configuration into the kernel and decay's internal parameter shapes.
func ParamsFromConfig(cfg config.RankingsConfig) Params {
	return Params{
		StartingMu:    cfg.StartingMu,
		StartingSigma: cfg.StartingSigma,
		Kernel: kernel.Params{
			Beta:            cfg.Beta,
			Tau:             cfg.Tau,
			DrawProbability: cfg.DrawProbability,
		},
		Decay: decay.Params{
			ThresholdRounds:        cfg.InactivityThresholdRounds,
			SigmaInflationPerRound: cfg.InactivitySigmaInflationPerRound,
			SigmaCap:               cfg.InactivitySigmaCap,
		},
		PlayoffWeight:              cfg.PlayoffWeight,
		MaxConcurrentGamesPerRound: cfg.MaxConcurrentGamesPerRound,
	}
}

func parametersFromConfig(cfg config.RankingsConfig, supersededID string) models.Parameters {
	return models.Parameters{
		StartingMu:                       cfg.StartingMu,
		StartingSigma:                    cfg.StartingSigma,
		Beta:                             cfg.Beta,
		Tau:                              cfg.Tau,
		DrawProbability:                  cfg.DrawProbability,
		PlayoffWeight:                    cfg.PlayoffWeight,
		InactivityThresholdRounds:        cfg.InactivityThresholdRounds,
		InactivitySigmaInflationPerRound: cfg.InactivitySigmaInflationPerRound,
		InactivitySigmaCap:               cfg.InactivitySigmaCap,
		MaxConcurrentGamesPerRound:       cfg.MaxConcurrentGamesPerRound,
		WriteBatchSize:                   cfg.WriteBatchSize,
		HostDeadlineSeconds:              cfg.HostDeadlineSeconds,
		SupersededCalculationID:          supersededID,
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
