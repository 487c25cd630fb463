package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"merx/config"
	"merx/db"
	"merx/mailer"
	"merx/middleware"
	"merx/models"
	"merx/rdx"
	"merx/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/api/idtoken"
)

// Service issues identity tokens: registration with email verification,
// password login, Google sign-in, and logout via token revocation.
type Service struct {
	cfg     *config.Config
	db      *db.Mongo
	mail    *mailer.Mailer
	revoker *rdx.Revocations // nil when Redis is not configured

	// verifyGoogleToken is swappable for tests; defaults to idtoken.Validate.
	verifyGoogleToken func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

func NewService(cfg *config.Config, mongo *db.Mongo, mail *mailer.Mailer, revoker *rdx.Revocations) *Service {
	return &Service{
		cfg:               cfg,
		db:                mongo,
		mail:              mail,
		revoker:           revoker,
		verifyGoogleToken: idtoken.Validate,
	}
}

func (s *Service) Register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if input.Username == "" || input.Email == "" || input.Password == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Username, email and password are required")
		return
	}

	var existing models.User
	err := s.db.Users.FindOne(r.Context(), bson.M{"email": input.Email}).Decode(&existing)
	if err == nil {
		utils.RespondWithError(w, http.StatusConflict, "User already exists")
		return
	} else if err != mongo.ErrNoDocuments {
		log.Printf("register: db error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("register: bcrypt error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	user := models.User{
		UserID:            utils.NewID("u"),
		Username:          input.Username,
		Email:             input.Email,
		Password:          string(hashed),
		Role:              models.RoleUser,
		VerificationToken: generateVerificationToken(),
		Orders:            []string{},
		CreatedAt:         time.Now(),
	}

	if _, err := s.db.Users.InsertOne(r.Context(), user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			utils.RespondWithError(w, http.StatusConflict, "User already exists")
			return
		}
		log.Printf("register: insert error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to register user")
		return
	}

	// Best effort: registration succeeds even when the mail relay is down.
	go s.sendVerificationMail(user)

	utils.RespondWithJSON(w, http.StatusCreated, utils.M{
		"message": "User registered successfully. Verification email sent.",
		"userid":  user.UserID,
	})
}

func (s *Service) sendVerificationMail(user models.User) {
	link := fmt.Sprintf("http://localhost:%s/api/auth/verify-email?token=%s", s.cfg.Port, user.VerificationToken)
	body := fmt.Sprintf("Hello %s,\n\nPlease verify your email by opening the link below:\n%s\n", user.Username, link)
	if err := s.mail.Send(user.Email, "Please verify your email", body); err != nil {
		log.Printf("register: failed to send verification mail to %s: %v", user.Email, err)
	}
}

func (s *Service) VerifyEmail(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	token := r.URL.Query().Get("token")
	if token == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Verification token is required")
		return
	}

	result, err := s.db.Users.UpdateOne(r.Context(),
		bson.M{"verification_token": token},
		bson.M{"$set": bson.M{"verified": true}, "$unset": bson.M{"verification_token": ""}},
	)
	if err != nil {
		log.Printf("verify-email: db error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if result.MatchedCount == 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid or expired token")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Email verified successfully!"})
}

func (s *Service) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	var user models.User
	if err := s.db.Users.FindOne(r.Context(), bson.M{"email": input.Email}).Decode(&user); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid credentials")
		return
	}

	if user.Password == "" {
		// Google-provisioned account with no local password.
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid credentials")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid credentials")
		return
	}

	if !user.Verified {
		utils.RespondWithError(w, http.StatusForbidden, "Email not verified. Please check your inbox.")
		return
	}

	tokenString, err := s.issueToken(user)
	if err != nil {
		log.Printf("login: token error: %v", err)
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

// Logout puts the token's JTI on the revocation list until the token would
// have expired anyway. Without Redis it is a no-op beyond client-side
// token disposal.
func (s *Service) Logout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if s.revoker == nil {
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Logged out"})
		return
	}

	header := r.Header.Get("Authorization")
	if len(header) < 8 || header[:7] != "Bearer " {
		utils.RespondWithError(w, http.StatusUnauthorized, "No token provided")
		return
	}

	auth := middleware.NewAuth(s.cfg.JWTSecret, middleware.MongoUsers(s.db.Users), nil)
	claims, err := auth.ParseToken(header[7:])
	if err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if claims.ID != "" && claims.ExpiresAt != nil {
		if err := s.revoker.Revoke(r.Context(), claims.ID, time.Until(claims.ExpiresAt.Time)); err != nil {
			log.Printf("logout: revoke failed: %v", err)
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to log out")
			return
		}
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Logged out"})
}

// SendEmail is an admin-only relay for ad-hoc notification mail.
func (s *Service) SendEmail(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input struct {
		Email   string `json:"email"`
		Subject string `json:"subject"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.Email == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	if err := s.mail.Send(input.Email, input.Subject, input.Message); err != nil {
		log.Printf("send-email: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to send email")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Email sent successfully!"})
}

func generateVerificationToken() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return utils.GenerateRandomString(64)
	}
	return hex.EncodeToString(buf)
}
