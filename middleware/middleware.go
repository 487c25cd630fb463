package middleware

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"

	"merx/models"
	"merx/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// JWT claims
type Claims struct {
	Username string `json:"username"`
	UserID   string `json:"userId"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type ContextKey string

const (
	UserIDKey   ContextKey = "userId"
	RoleKey     ContextKey = "role"
	UsernameKey ContextKey = "username"
)

// TokenRevoker reports whether a token's JTI has been revoked (logout).
type TokenRevoker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// UserSource looks up the current user record for role checks.
type UserSource interface {
	FindByID(ctx context.Context, userID string) (models.User, error)
}

type mongoUsers struct {
	col *mongo.Collection
}

// MongoUsers adapts a users collection to the UserSource contract.
func MongoUsers(col *mongo.Collection) UserSource {
	return mongoUsers{col: col}
}

func (m mongoUsers) FindByID(ctx context.Context, userID string) (models.User, error) {
	var user models.User
	err := m.col.FindOne(ctx, bson.M{"userid": userID}).Decode(&user)
	return user, err
}

// Auth verifies bearer tokens and role claims. Identity comes from the
// token's signed claims; RequireAdmin additionally re-reads the user record
// so a demoted admin loses access without waiting for token expiry.
type Auth struct {
	secret  []byte
	users   UserSource
	revoker TokenRevoker // nil disables the revocation check
}

func NewAuth(secret []byte, users UserSource, revoker TokenRevoker) *Auth {
	return &Auth{secret: secret, users: users, revoker: revoker}
}

func (a *Auth) Authenticate(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		tokenString := bearerToken(r)
		if tokenString == "" {
			utils.RespondWithError(w, http.StatusUnauthorized, "No token provided")
			return
		}

		claims, err := a.ParseToken(tokenString)
		if err != nil {
			utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		if a.revoker != nil && claims.ID != "" {
			revoked, err := a.revoker.IsRevoked(r.Context(), claims.ID)
			if err != nil {
				log.Printf("auth: revocation check failed: %v", err)
			} else if revoked {
				utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
		}

		ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
		ctx = context.WithValue(ctx, RoleKey, claims.Role)
		ctx = context.WithValue(ctx, UsernameKey, claims.Username)
		next(w, r.WithContext(ctx), ps)
	}
}

// RequireAdmin must be chained after Authenticate. One database read per
// invocation: the current role is always checked, never the token's.
func (a *Auth) RequireAdmin(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		userID := UserIDFromContext(r.Context())
		if userID == "" {
			utils.RespondWithError(w, http.StatusUnauthorized, "No token provided")
			return
		}

		user, err := a.users.FindByID(r.Context(), userID)
		if err != nil || user.Role != models.RoleAdmin {
			utils.RespondWithError(w, http.StatusForbidden, "Admin privileges required")
			return
		}

		next(w, r, ps)
	}
}

// ParseToken verifies signature and expiry and returns the claims.
func (a *Auth) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return a.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("unauthorized: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("unauthorized: invalid token")
	}
	return claims, nil
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(UserIDKey).(string)
	return id
}

func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(RoleKey).(string)
	return role
}

func UsernameFromContext(ctx context.Context) string {
	name, _ := ctx.Value(UsernameKey).(string)
	return name
}
