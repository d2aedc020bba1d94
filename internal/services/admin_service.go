// Package services implements the admin-facing operations on top of the
// engine, gating every call on the caller's authenticated identity and
// administrator capability.
package services

import (
	"context"
	"errors"
	"fmt"

	"rankingsengine/internal/engine"
	"rankingsengine/internal/models"
	"rankingsengine/internal/store"
	apierrors "rankingsengine/pkg/errors"
)

// CallerIdentity is the authenticated caller passed down from the HTTP
// layer: a user id and whether their email is verified. The administrator
// capability is resolved from the store, never trusted from the token.
type CallerIdentity struct {
	UserID        string
	EmailVerified bool
}

// RankingsAdminService is the C8 administrative surface: trigger a full
// rebuild, or read back its status. Every entry point is gated on
// authentication and the administrator capability.
type RankingsAdminService struct {
	store      store.Store
	controller *engine.Controller
}

// NewRankingsAdminService builds the admin service against the given store
// (for the capability check) and job controller.
func NewRankingsAdminService(s store.Store, controller *engine.Controller) *RankingsAdminService {
	return &RankingsAdminService{store: s, controller: controller}
}

// RebuildPlayerRankings triggers a full rebuild on behalf of an
// administrator and returns the new calculation's id. It returns
// permission-denied (not an engine error) for anyone who is not a
// verified administrator, and never creates a CalculationState record in
// that case.
func (a *RankingsAdminService) RebuildPlayerRankings(ctx context.Context, caller CallerIdentity) (string, error) {
	if err := a.requireAdmin(ctx, caller); err != nil {
		return "", err
	}

	id, err := a.controller.StartFullRebuild(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, engine.ErrRebuildInProgress) {
			return "", apierrors.NewAPIError(apierrors.KindInvalidArgument, "a rebuild is already in progress")
		}
		return "", apierrors.NewInternalServerError(err.Error())
	}
	return id, nil
}

// GetCalculationStatus returns a CalculationState by id for an
// authenticated administrator.
func (a *RankingsAdminService) GetCalculationStatus(ctx context.Context, caller CallerIdentity, calculationID string) (models.CalculationState, error) {
	if err := a.requireAdmin(ctx, caller); err != nil {
		return models.CalculationState{}, err
	}

	state, err := a.controller.GetCalculationStatus(ctx, calculationID)
	if err != nil {
		return models.CalculationState{}, apierrors.NewNotFoundError(fmt.Sprintf("calculation %s", calculationID))
	}
	return state, nil
}

// requireAdmin enforces the caller contract: a verified email and an
// `admin` flag on the caller's own player document.
func (a *RankingsAdminService) requireAdmin(ctx context.Context, caller CallerIdentity) error {
	if caller.UserID == "" {
		return apierrors.NewUnauthenticatedError("missing caller identity")
	}
	if !caller.EmailVerified {
		return apierrors.NewPermissionDeniedError("caller email is not verified")
	}

	player, err := a.store.LoadPlayer(ctx, caller.UserID)
	if err != nil {
		return apierrors.NewPermissionDeniedError("caller is not a recognised league member")
	}
	if !player.Admin {
		return apierrors.NewPermissionDeniedError("caller does not have the administrator capability")
	}
	return nil
}
