package middleware

import (
	"encoding/json"

	"payauth-platform/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditLog creates an audit middleware that records successful write
// operations against the Audit Service.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Status() < 200 || c.Writer.Status() >= 300 {
			return
		}
		if c.Request.Method == "GET" || c.Request.Method == "HEAD" || c.Request.Method == "OPTIONS" {
			return
		}

		action, resource := mapPathToAction(c.Request.URL.Path, c.Request.Method)
		if action == "" {
			return
		}

		actorID := "anonymous"
		if rid, exists := c.Get(CtxRestaurantID); exists {
			if id, ok := rid.(uuid.UUID); ok {
				actorID = id.String()
			}
		} else if svc, exists := c.Get(CtxServiceName); exists {
			if name, ok := svc.(string); ok {
				actorID = name
			}
		}

		body, _ := json.Marshal(map[string]string{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		})

		_ = auditSvc.Record(c.Request.Context(), actorID, action, resource, map[string]string{
			"status": string(body),
			"ip":     c.ClientIP(),
		})
	}
}

func mapPathToAction(path, method string) (string, string) {
	switch {
	case path == "/api/v1/authorize" && method == "POST":
		return "AUTHORIZE", "auth_request"
	case path == "/api/v1/payment-tokens" && method == "POST":
		return "CREATE_TOKEN", "payment_token"
	case method == "POST" && len(path) > len("/api/v1/authorize/") && path[len(path)-5:] == "/void":
		return "VOID", "auth_request"
	case path == "/internal/v1/decrypt" && method == "POST":
		return "DECRYPT", "payment_token"
	case path == "/internal/v1/encryption-keys/rotate" && method == "POST":
		return "ROTATE_KEYS", "encryption_key"
	}
	return "", ""
}
