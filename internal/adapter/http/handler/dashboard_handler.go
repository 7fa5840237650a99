package handler

import (
	"strconv"
	"time"

	"payauth-platform/internal/adapter/http/dto"
	"payauth-platform/internal/core/domain"
	"payauth-platform/internal/core/ports"
	"payauth-platform/pkg/apperror"
	"payauth-platform/pkg/response"

	"github.com/gin-gonic/gin"
)

// dashboardDefaultWindow bounds Summary when the caller supplies no
// since_hours query parameter.
const dashboardDefaultWindow = 24 * time.Hour

// DashboardHandler serves the tenant dashboard's aggregate routes.
type DashboardHandler struct {
	reporting ports.ReportingService
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(reporting ports.ReportingService) *DashboardHandler {
	return &DashboardHandler{reporting: reporting}
}

// Summary handles GET /v1/dashboard/summary.
func (h *DashboardHandler) Summary(c *gin.Context) {
	restaurantID, ok := restaurantIDFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidAccessKey())
		return
	}

	window := dashboardDefaultWindow
	if raw := c.Query("since_hours"); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil || hours <= 0 {
			response.Error(c, apperror.Validation("since_hours must be a positive integer"))
			return
		}
		window = time.Duration(hours) * time.Hour
	}

	since := time.Now().Add(-window)
	counts, err := h.reporting.Summary(c.Request.Context(), restaurantID, since)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make(map[string]int64, len(counts))
	for status, count := range counts {
		out[string(status)] = count
	}
	// Ensure every known status key is present, even at zero, so dashboard
	// clients don't have to special-case absence.
	for _, status := range []domain.AuthRequestStatus{
		domain.AuthRequestStatusAuthorized, domain.AuthRequestStatusDenied,
		domain.AuthRequestStatusFailed, domain.AuthRequestStatusExpired,
		domain.AuthRequestStatusVoided,
	} {
		if _, exists := out[string(status)]; !exists {
			out[string(status)] = 0
		}
	}

	response.OK(c, dto.DashboardSummaryResponse{
		Counts: out,
		Since:  since.Format(time.RFC3339),
	})
}
