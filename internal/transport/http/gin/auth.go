package httpgin

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hauslive/hausd/internal/domain"
	"github.com/hauslive/hausd/internal/service/accounts"
)

const callerKey = "caller_address"

// AuthRequired extracts the caller's address from the bearer token. All
// mutating routes sit behind it; the address is the only identity the
// services ever see.
func AuthRequired(svc *accounts.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "missing bearer token"})
			return
		}

		addr, err := svc.VerifyToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid token"})
			return
		}

		c.Set(callerKey, addr)
		c.Next()
	}
}

func callerAddr(c *gin.Context) domain.Address {
	v, _ := c.Get(callerKey)
	addr, _ := v.(domain.Address)
	return addr
}
