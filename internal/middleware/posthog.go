package middleware

import (
	"net/http"
	"strings"

	"github.com/SscSPs/finance_ledger/internal/utils"
	"github.com/gin-gonic/gin"
)

// untrackedPrefixes are paths that never produce product events.
var untrackedPrefixes = []string{"/health", "/swagger"}

// PosthogMiddleware creates a Gin middleware handler that records one product
// event per successful authenticated API call.
func PosthogMiddleware(tracker *utils.PosthogClientWrapper) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !tracker.IsInitialized() || isUntracked(c.Request.URL.Path) {
			c.Next()
			return
		}

		c.Next()

		if len(c.Errors) > 0 || c.Writer.Status() >= http.StatusBadRequest {
			return
		}
		userID, exists := GetUserIDFromContext(c)
		if !exists {
			return
		}

		// "/api/v1/accounts/:accountID/transactions" -> "api_v1_accounts_:accountID_transactions"
		eventName := strings.ReplaceAll(strings.TrimPrefix(c.FullPath(), "/"), "/", "_")
		if eventName == "" {
			return
		}

		props := map[string]any{
			"method":      c.Request.Method,
			"status_code": c.Writer.Status(),
		}
		if accountID := c.Param("accountID"); accountID != "" {
			props["account_id"] = accountID
		}
		tracker.Enqueue(userID, eventName, props)
	}
}

// PosthogEvent sends a named business event (for example "payment_initiated")
// on behalf of the authenticated user.
func PosthogEvent(c *gin.Context, tracker *utils.PosthogClientWrapper, eventName string, properties map[string]any) {
	if !tracker.IsInitialized() {
		return
	}
	userID, exists := GetUserIDFromContext(c)
	if !exists {
		return
	}
	if properties == nil {
		properties = make(map[string]any)
	}
	properties["path"] = c.Request.URL.Path
	tracker.Enqueue(userID, eventName, properties)
}

func isUntracked(path string) bool {
	for _, prefix := range untrackedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
