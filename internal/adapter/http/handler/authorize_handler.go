package handler

import (
	"time"

	"payauth-platform/internal/adapter/http/dto"
	"payauth-platform/internal/adapter/http/middleware"
	"payauth-platform/internal/core/domain"
	"payauth-platform/internal/core/ports"
	"payauth-platform/pkg/apperror"
	"payauth-platform/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuthorizeHandler serves the tenant-facing authorize/void/status routes.
type AuthorizeHandler struct {
	ingress ports.AuthIngressService
}

// NewAuthorizeHandler creates a new authorize handler.
func NewAuthorizeHandler(ingress ports.AuthIngressService) *AuthorizeHandler {
	return &AuthorizeHandler{ingress: ingress}
}

func restaurantIDFromContext(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(middleware.CtxRestaurantID)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// Authorize handles POST /v1/authorize.
func (h *AuthorizeHandler) Authorize(c *gin.Context) {
	restaurantID, ok := restaurantIDFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidAccessKey())
		return
	}

	var req dto.AuthorizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.ingress.Authorize(c.Request.Context(), ports.AuthorizeRequest{
		RestaurantID:   restaurantID,
		PaymentToken:   req.PaymentToken,
		AmountMinor:    req.AmountMinor,
		Currency:       req.Currency,
		IdempotencyKey: req.IdempotencyKey,
		Metadata:       req.Metadata,
		CorrelationID:  req.CorrelationID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.AuthorizeResponse{
		AuthRequestID: result.AuthRequestID.String(),
		Status:        string(result.Status),
		Synchronous:   result.Synchronous,
	})
}

// Void handles POST /v1/authorize/:id/void.
func (h *AuthorizeHandler) Void(c *gin.Context) {
	restaurantID, ok := restaurantIDFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidAccessKey())
		return
	}

	authRequestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid auth_request_id"))
		return
	}

	var req dto.VoidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.ingress.Void(c.Request.Context(), ports.VoidRequest{
		RestaurantID:   restaurantID,
		AuthRequestID:  authRequestID,
		Reason:         req.Reason,
		IdempotencyKey: req.IdempotencyKey,
		CorrelationID:  req.CorrelationID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.AuthorizeResponse{
		AuthRequestID: result.AuthRequestID.String(),
		Status:        string(result.Status),
		Synchronous:   result.Synchronous,
	})
}

// GetStatus handles GET /v1/authorize/:id.
func (h *AuthorizeHandler) GetStatus(c *gin.Context) {
	restaurantID, ok := restaurantIDFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidAccessKey())
		return
	}

	authRequestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid auth_request_id"))
		return
	}

	state, err := h.ingress.GetStatus(c.Request.Context(), restaurantID, authRequestID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toStatusResponse(state))
}

func toStatusResponse(s *domain.AuthRequestState) dto.AuthRequestStatusResponse {
	return dto.AuthRequestStatusResponse{
		AuthRequestID:      s.AuthRequestID.String(),
		Status:             string(s.Status),
		AmountMinor:        s.AmountMinor,
		Currency:           s.Currency,
		ProcessorAuthID:    s.ProcessorAuthID,
		AuthorizationCode:  s.AuthorizationCode,
		AuthorizedAmount:   s.AuthorizedAmount,
		AuthorizedCurrency: s.AuthorizedCurrency,
		DenialCode:         s.DenialCode,
		DenialReason:       s.DenialReason,
		ErrorMessage:       s.ErrorMessage,
		RetryCount:         s.RetryCount,
		Metadata:           s.Metadata,
		CreatedAt:          s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          s.UpdatedAt.Format(time.RFC3339),
	}
}
