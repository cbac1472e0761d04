package api

import (
	"log"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/uma-arai/sbcntr-court/internal/apperror"
	"github.com/uma-arai/sbcntr-court/internal/auth"
)

const userIDKey = "uid"

// AuthMiddleware はベアラートークンを検証し、ユーザーIDをリクエストのコンテキストに載せます
func AuthMiddleware(verifier auth.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			abortWithError(c, apperror.Unauthenticated())
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))

		userID, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			log.Printf("token verification failed: %v", err)
			abortWithError(c, apperror.Unauthenticated())
			return
		}

		c.Set(userIDKey, userID)
		c.Request = c.Request.WithContext(auth.WithUserID(c.Request.Context(), userID))
		c.Next()
	}
}
