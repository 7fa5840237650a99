package handler

import (
	"payauth-platform/internal/adapter/http/dto"
	"payauth-platform/internal/adapter/http/middleware"
	"payauth-platform/internal/core/ports"
	"payauth-platform/pkg/apperror"
	"payauth-platform/pkg/response"

	"github.com/gin-gonic/gin"
)

// InternalHandler serves the service-to-service decrypt and key-rotation
// routes, authenticated with X-Service-Auth.
type InternalHandler struct {
	tokens ports.TokenStoreService
}

// NewInternalHandler creates a new internal handler.
func NewInternalHandler(tokens ports.TokenStoreService) *InternalHandler {
	return &InternalHandler{tokens: tokens}
}

// Decrypt handles POST /internal/v1/decrypt.
func (h *InternalHandler) Decrypt(c *gin.Context) {
	serviceName, _ := c.Get(middleware.CtxServiceName)

	var req dto.DecryptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	requestedBy, _ := serviceName.(string)
	data, err := h.tokens.DecryptForProcessing(c.Request.Context(), req.TokenID, requestedBy, req.Reason, req.CorrelationID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.DecryptResponse{
		PAN:         data.PAN,
		CVV:         data.CVV,
		ExpiryMonth: data.ExpiryMonth,
		ExpiryYear:  data.ExpiryYear,
		CardBrand:   data.CardBrand,
	})
}

// RotateKeys handles POST /internal/v1/encryption-keys/rotate.
func (h *InternalHandler) RotateKeys(c *gin.Context) {
	const batchSize = 200

	rotated, err := h.tokens.RotateKeys(c.Request.Context(), batchSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.RotateKeysResponse{Rotated: rotated})
}
