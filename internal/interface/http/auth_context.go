package http

import (
	"github.com/gin-gonic/gin"

	"github.com/yanqian/photo-caption/internal/domain/auth"
)

const reviewerKey = "reviewer"

func setReviewer(c *gin.Context, claims auth.Claims) {
	c.Set(reviewerKey, claims)
}

// reviewerFrom returns the claims stored by authMiddleware.
func reviewerFrom(c *gin.Context) (auth.Claims, bool) {
	value, ok := c.Get(reviewerKey)
	if !ok {
		return auth.Claims{}, false
	}
	claims, ok := value.(auth.Claims)
	return claims, ok
}
