package handler

import (
	"time"

	"payauth-platform/internal/adapter/http/dto"
	"payauth-platform/internal/core/domain"
	"payauth-platform/internal/core/ports"
	"payauth-platform/pkg/apperror"
	"payauth-platform/pkg/response"

	"github.com/gin-gonic/gin"
)

// TokenHandler serves the tenant-facing payment token routes.
type TokenHandler struct {
	tokens ports.TokenStoreService
}

// NewTokenHandler creates a new token handler.
func NewTokenHandler(tokens ports.TokenStoreService) *TokenHandler {
	return &TokenHandler{tokens: tokens}
}

// CreateToken handles POST /v1/payment-tokens.
func (h *TokenHandler) CreateToken(c *gin.Context) {
	restaurantID, ok := restaurantIDFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidAccessKey())
		return
	}

	var req dto.CreatePaymentTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	token, err := h.tokens.CreatePaymentToken(c.Request.Context(), ports.CreatePaymentTokenRequest{
		RestaurantID: restaurantID,
		Card: domain.PaymentData{
			PAN:         req.PAN,
			CVV:         req.CVV,
			ExpiryMonth: req.ExpiryMonth,
			ExpiryYear:  req.ExpiryYear,
			CardBrand:   req.CardBrand,
		},
		DeviceID:       req.DeviceID,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toTokenResponse(token))
}

// GetToken handles GET /v1/payment-tokens/:id.
func (h *TokenHandler) GetToken(c *gin.Context) {
	restaurantID, ok := restaurantIDFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidAccessKey())
		return
	}

	token, err := h.tokens.GetTokenMetadata(c.Request.Context(), restaurantID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toTokenResponse(token))
}

// RevokeToken handles DELETE /v1/payment-tokens/:id.
func (h *TokenHandler) RevokeToken(c *gin.Context) {
	restaurantID, ok := restaurantIDFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidAccessKey())
		return
	}

	if err := h.tokens.RevokeToken(c.Request.Context(), restaurantID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"revoked": true})
}

func toTokenResponse(t *domain.PaymentToken) dto.PaymentTokenResponse {
	return dto.PaymentTokenResponse{
		TokenID:     t.TokenID,
		PANLastFour: t.PANLastFour,
		PANBIN:      t.PANBIN,
		ExpiryMonth: t.ExpiryMonth,
		ExpiryYear:  t.ExpiryYear,
		CardBrand:   t.CardBrand,
		Status:      string(t.Status),
		CreatedAt:   t.CreatedAt.Format(time.RFC3339),
	}
}
