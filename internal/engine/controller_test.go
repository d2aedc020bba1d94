package engine

import (
	"context"
	"testing"
	"time"

	"rankingsengine/internal/cache"
	"rankingsengine/internal/config"
	"rankingsengine/internal/models"
	"rankingsengine/internal/store"
)

func testRankingsConfig() config.RankingsConfig {
	sigma0 := 25.0 / 3
	return config.RankingsConfig{
		StartingMu:                       25.0,
		StartingSigma:                    sigma0,
		Beta:                             sigma0 / 2,
		Tau:                              sigma0 / 100,
		DrawProbability:                  0.10,
		PlayoffWeight:                    2.0,
		InactivityThresholdRounds:        3,
		InactivitySigmaInflationPerRound: sigma0 / 100,
		InactivitySigmaCap:               sigma0,
		MaxConcurrentGamesPerRound:       8,
		WriteBatchSize:                   500,
		HostDeadlineSeconds:              540,
	}
}

func noopLock() *cache.RebuildLock {
	return cache.NewRebuildLock(config.CacheConfig{Enabled: false})
}

func waitForTerminal(t *testing.T, ctrl *Controller, calculationID string) models.CalculationState {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		state, err := ctrl.GetCalculationStatus(context.Background(), calculationID)
		if err != nil {
			t.Fatalf("GetCalculationStatus: %v", err)
		}
		if state.Status == models.StatusCompleted || state.Status == models.StatusFailed {
			return state
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("calculation %s did not reach a terminal state in time", calculationID)
	return models.CalculationState{}
}

func TestController_FullRebuild_Completes(t *testing.T) {
	s := store.NewMemoryStore()
	seedSingleGameLeague(s)

	cfg := testRankingsConfig()
	ctrl := NewController(s, ParamsFromConfig(cfg), noopLock(), cfg)

	id, err := ctrl.StartFullRebuild(context.Background(), "admin-1")
	if err != nil {
		t.Fatalf("StartFullRebuild: %v", err)
	}

	state := waitForTerminal(t, ctrl, id)
	if state.Status != models.StatusCompleted {
		t.Fatalf("expected completed, got %s (error=%v)", state.Status, state.Error)
	}
	if state.Progress.PercentComplete != 100 {
		t.Errorf("percentComplete = %d, want 100", state.Progress.PercentComplete)
	}
	if state.CompletedAt == nil {
		t.Error("completedAt should be set on success")
	}

	ratings := s.Ratings()
	if len(ratings) != 4 {
		t.Fatalf("expected 4 player ratings, got %d", len(ratings))
	}
	if ratings["p1"].Rank == 0 {
		t.Error("ratings should carry an assigned rank")
	}

	snapshots := s.Snapshots()
	if len(snapshots) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(snapshots))
	}
}

func TestController_RejectsConcurrentRebuild(t *testing.T) {
	s := store.NewMemoryStore()
	seedSingleGameLeague(s)
	cfg := testRankingsConfig()

	now := time.Now().UTC()
	_, _ = s.CreateCalculationState(context.Background(), models.CalculationState{
		Status:    models.StatusRunning,
		StartedAt: now,
	})

	ctrl := NewController(s, ParamsFromConfig(cfg), noopLock(), cfg)
	_, err := ctrl.StartFullRebuild(context.Background(), "admin-1")
	if err != ErrRebuildInProgress {
		t.Fatalf("expected ErrRebuildInProgress, got %v", err)
	}
}

func TestController_ReclaimsStaleRun(t *testing.T) {
	s := store.NewMemoryStore()
	seedSingleGameLeague(s)
	cfg := testRankingsConfig()
	cfg.HostDeadlineSeconds = 1

	staleStart := time.Now().UTC().Add(-10 * time.Second)
	staleID, _ := s.CreateCalculationState(context.Background(), models.CalculationState{
		Status:    models.StatusRunning,
		StartedAt: staleStart,
	})

	ctrl := NewController(s, ParamsFromConfig(cfg), noopLock(), cfg)
	id, err := ctrl.StartFullRebuild(context.Background(), "admin-1")
	if err != nil {
		t.Fatalf("StartFullRebuild: %v", err)
	}

	state := waitForTerminal(t, ctrl, id)
	if state.Parameters.SupersededCalculationID != staleID {
		t.Errorf("supersededCalculationId = %q, want %q", state.Parameters.SupersededCalculationID, staleID)
	}

	stale, err := s.GetCalculationState(context.Background(), staleID)
	if err != nil {
		t.Fatalf("GetCalculationState(stale): %v", err)
	}
	if stale.Status != models.StatusFailed {
		t.Errorf("stale run should be marked failed, got %s", stale.Status)
	}
}

func TestController_FailureLeavesNoCompletedAt(t *testing.T) {
	s := store.NewMemoryStore()
	// No seasons seeded: the rebuild has nothing to process and must fail.
	cfg := testRankingsConfig()
	ctrl := NewController(s, ParamsFromConfig(cfg), noopLock(), cfg)

	id, err := ctrl.StartFullRebuild(context.Background(), "admin-1")
	if err != nil {
		t.Fatalf("StartFullRebuild: %v", err)
	}

	state := waitForTerminal(t, ctrl, id)
	if state.Status != models.StatusFailed {
		t.Fatalf("expected failed, got %s", state.Status)
	}
	if state.Error == nil || state.Error.Message == "" {
		t.Error("failed run should carry a non-empty error message")
	}
	if state.CompletedAt != nil {
		t.Error("completedAt should remain nil on failure")
	}
}
