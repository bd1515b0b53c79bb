package drive_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	drive "github.com/goliatone/go-drive"
	"github.com/stretchr/testify/assert"
)

func TestJWTClaims(t *testing.T) {
	now := time.Now()

	t.Run("UserID prefers the uid claim", func(t *testing.T) {
		claims := &drive.JWTClaims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "subject-id"},
			UID:              "uid-claim",
		}

		assert.Equal(t, "uid-claim", claims.UserID())
	})

	t.Run("UserID falls back to the subject", func(t *testing.T) {
		claims := &drive.JWTClaims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "subject-id"},
		}

		assert.Equal(t, "subject-id", claims.UserID())
	})

	t.Run("Timestamps unwrap the numeric dates", func(t *testing.T) {
		claims := &drive.JWTClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
		}

		assert.WithinDuration(t, now, claims.IssuedAt(), time.Second)
		assert.WithinDuration(t, now.Add(time.Hour), claims.Expires(), time.Second)
	})

	t.Run("Missing timestamps are zero values", func(t *testing.T) {
		claims := &drive.JWTClaims{}

		assert.True(t, claims.IssuedAt().IsZero())
		assert.True(t, claims.Expires().IsZero())
	})

	t.Run("UserName reads the name claim", func(t *testing.T) {
		claims := &drive.JWTClaims{Name: "Ada Lovelace"}

		assert.Equal(t, "Ada Lovelace", claims.UserName())
	})
}
