package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
)

// NewRelicAttributes tags the current New Relic transaction with the request
// and checkout IDs. It must run after nrgin.Middleware and the session middleware.
func NewRelicAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		txn := nrgin.Transaction(c)
		if txn == nil {
			c.Next()
			return
		}

		if rid := GetRequestID(c); rid != "" {
			txn.AddAttribute("request.id", rid)
		}
		if sid := SessionID(c); sid != "" {
			txn.AddAttribute("checkout.session", sid)
		}

		c.Next()

		for _, err := range c.Errors {
			txn.NoticeError(err.Err)
		}
	}
}
