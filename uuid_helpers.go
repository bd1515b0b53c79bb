package drive

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}
