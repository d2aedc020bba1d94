package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rankingsengine/internal/cache"
	"rankingsengine/internal/config"
	"rankingsengine/internal/engine"
	"rankingsengine/internal/models"
	"rankingsengine/internal/store"
	apierrors "rankingsengine/pkg/errors"
)

func testConfig() config.RankingsConfig {
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

func newHarness() (*store.MemoryStore, *RankingsAdminService) {
	s := store.NewMemoryStore()
	cfg := testConfig()
	lock := cache.NewRebuildLock(config.CacheConfig{Enabled: false})
	ctrl := engine.NewController(s, engine.ParamsFromConfig(cfg), lock, cfg)
	return s, NewRankingsAdminService(s, ctrl)
}

// A caller whose player document has admin=false must be rejected with
// permission-denied, and no CalculationState record may be created as a
// side effect of the attempt.
func TestRebuildPlayerRankings_NonAdminIsDeniedAndCreatesNoState(t *testing.T) {
	s, svc := newHarness()
	s.SeedPlayer(models.Player{ID: "u1", Admin: false})

	_, err := svc.RebuildPlayerRankings(context.Background(), CallerIdentity{UserID: "u1", EmailVerified: true})
	require.Error(t, err)

	var apiErr apierrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierrors.KindPermissionDenied, apiErr.Kind)

	latest, _ := s.LatestCalculationState(context.Background())
	assert.Nil(t, latest, "no calculation state should be created for a denied caller")
}

func TestRebuildPlayerRankings_UnverifiedEmailIsDenied(t *testing.T) {
	s, svc := newHarness()
	s.SeedPlayer(models.Player{ID: "u1", Admin: true})

	_, err := svc.RebuildPlayerRankings(context.Background(), CallerIdentity{UserID: "u1", EmailVerified: false})
	require.Error(t, err)

	var apiErr apierrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierrors.KindPermissionDenied, apiErr.Kind)
}

func TestRebuildPlayerRankings_MissingIdentityIsUnauthenticated(t *testing.T) {
	_, svc := newHarness()

	_, err := svc.RebuildPlayerRankings(context.Background(), CallerIdentity{})
	require.Error(t, err)

	var apiErr apierrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierrors.KindUnauthenticated, apiErr.Kind)
}

func TestRebuildPlayerRankings_AdminSucceeds(t *testing.T) {
	s, svc := newHarness()
	s.SeedPlayer(models.Player{ID: "admin-1", Admin: true})
	s.SeedSeason(models.Season{ID: "S1"})

	id, err := svc.RebuildPlayerRankings(context.Background(), CallerIdentity{UserID: "admin-1", EmailVerified: true})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	latest, err := s.LatestCalculationState(context.Background())
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, id, latest.ID)
}

func TestGetCalculationStatus_NonAdminIsDenied(t *testing.T) {
	s, svc := newHarness()
	s.SeedPlayer(models.Player{ID: "u1", Admin: false})

	_, err := svc.GetCalculationStatus(context.Background(), CallerIdentity{UserID: "u1", EmailVerified: true}, "calc-1")
	require.Error(t, err)

	var apiErr apierrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierrors.KindPermissionDenied, apiErr.Kind)
}
