package auth

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"merx/models"
	"merx/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// GoogleLogin verifies a Google ID token and signs the caller in,
// auto-provisioning a verified account on first login. Google accounts
// carry no local password.
func (s *Service) GoogleLogin(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input struct {
		Credential string `json:"credential"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.Credential == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Google credential is required")
		return
	}

	if s.cfg.GoogleClientID == "" {
		utils.RespondWithError(w, http.StatusInternalServerError, "Google login is not configured")
		return
	}

	payload, err := s.verifyGoogleToken(r.Context(), input.Credential, s.cfg.GoogleClientID)
	if err != nil {
		log.Printf("google-login: token rejected: %v", err)
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	email, _ := payload.Claims["email"].(string)
	name, _ := payload.Claims["name"].(string)
	picture, _ := payload.Claims["picture"].(string)
	if email == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var user models.User
	err = s.db.Users.FindOne(r.Context(), bson.M{"google_id": payload.Subject}).Decode(&user)
	switch {
	case err == mongo.ErrNoDocuments:
		// Link by email when the account exists, provision otherwise.
		err = s.db.Users.FindOne(r.Context(), bson.M{"email": email}).Decode(&user)
		if err == mongo.ErrNoDocuments {
			user = models.User{
				UserID:    utils.NewID("u"),
				Username:  name,
				Email:     email,
				Role:      models.RoleUser,
				GoogleID:  payload.Subject,
				Avatar:    picture,
				Verified:  true,
				Orders:    []string{},
				CreatedAt: time.Now(),
			}
			if _, err := s.db.Users.InsertOne(r.Context(), user); err != nil {
				log.Printf("google-login: insert error: %v", err)
				utils.RespondWithError(w, http.StatusInternalServerError, "Failed to register user")
				return
			}
		} else if err != nil {
			log.Printf("google-login: db error: %v", err)
			utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
			return
		} else {
			_, _ = s.db.Users.UpdateOne(r.Context(),
				bson.M{"userid": user.UserID},
				bson.M{"$set": bson.M{"google_id": payload.Subject, "verified": true}},
			)
		}
	case err != nil:
		log.Printf("google-login: db error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	tokenString, err := s.issueToken(user)
	if err != nil {
		log.Printf("google-login: token error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	_, _ = s.db.Users.UpdateOne(r.Context(),
		bson.M{"userid": user.UserID},
		bson.M{"$set": bson.M{"last_login": time.Now()}},
	)

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"token":   tokenString,
		"role":    user.Role,
		"userid":  user.UserID,
		"message": "Login successful!",
	})
}
