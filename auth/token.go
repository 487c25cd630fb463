package auth

import (
	"time"

	"merx/middleware"
	"merx/models"
	"merx/utils"

	"github.com/golang-jwt/jwt/v5"
)

// issueToken signs an HS256 access token carrying the user's identity and
// role. Role claims are only as fresh as the token; admin-gated operations
// re-check the database instead of trusting this claim.
func (s *Service) issueToken(user models.User) (string, error) {
	now := time.Now()
	claims := &middleware.Claims{
		Username: user.Username,
		UserID:   user.UserID,
		Role:     string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        utils.GetUUID(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.cfg.JWTSecret)
}
