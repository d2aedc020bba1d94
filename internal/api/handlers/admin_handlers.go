package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"rankingsengine/internal/api/middleware"
	"rankingsengine/internal/services"
	apierrors "rankingsengine/pkg/errors"
)

// AdminHandler exposes C8: the rebuild trigger and calculation status
// endpoints consumed by the admin dashboard.
type AdminHandler struct {
	admin *services.RankingsAdminService
}

// NewAdminHandler builds an admin handler against the given admin service.
func NewAdminHandler(admin *services.RankingsAdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

func callerFromContext(c *gin.Context) services.CallerIdentity {
	return services.CallerIdentity{
		UserID:        middleware.CallerUserID(c),
		EmailVerified: middleware.CallerEmailVerified(c),
	}
}

// RebuildPlayerRankings godoc
// @Summary Start a full player rankings rebuild
// @Description Triggers a full recomputation of every player rating from scratch. The client never blocks on this call's response; it polls GetCalculationStatus for completion.
// @Tags rankings
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string
// @Failure 401 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/rankings/rebuild [post]
func (h *AdminHandler) RebuildPlayerRankings(c *gin.Context) {
	calculationID, err := h.admin.RebuildPlayerRankings(c.Request.Context(), callerFromContext(c))
	if err != nil {
		writeAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"calculationId": calculationID,
		"status":        "pending",
	})
}

// GetCalculationStatus godoc
// @Summary Get a rebuild's calculation status
// @Description Returns the current CalculationState for a given calculation id, including progress and, on failure, the error record.
// @Tags rankings
// @Produce json
// @Security BearerAuth
// @Param calculationId path string true "Calculation id"
// @Success 200 {object} models.CalculationState
// @Failure 401 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/rankings/calculations/{calculationId} [get]
func (h *AdminHandler) GetCalculationStatus(c *gin.Context) {
	calculationID := c.Param("calculationId")
	if calculationID == "" {
		writeAPIError(c, apierrors.NewBadRequestError("calculationId is required"))
		return
	}

	state, err := h.admin.GetCalculationStatus(c.Request.Context(), callerFromContext(c), calculationID)
	if err != nil {
		writeAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// writeAPIError renders an APIError as the HTTP response body. Details is
// never sent to the caller: it may carry raw internal error text, so it is
// logged server-side and stripped from the response the client sees.
func writeAPIError(c *gin.Context, err error) {
	var apiErr apierrors.APIError
	if !errors.As(err, &apiErr) {
		apiErr = apierrors.NewInternalServerError(err.Error())
	}
	if apiErr.Details != "" {
		logrus.WithError(err).WithField("kind", apiErr.Kind).Error("admin API request failed")
		apiErr.Details = ""
	}
	c.JSON(apiErr.Code, gin.H{
		"success": false,
		"error":   apiErr,
	})
}
