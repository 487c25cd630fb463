package users

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"merx/db"
	"merx/models"
	"merx/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

func mongoAfter() *options.FindOneAndUpdateOptions {
	return options.FindOneAndUpdate().SetReturnDocument(options.After)
}

// Service exposes the admin-only user management endpoints. Deleting a user
// never touches the orders collection: order and user lifetimes are
// independent.
type Service struct {
	db *db.Mongo
}

func NewService(mongo *db.Mongo) *Service {
	return &Service{db: mongo}
}

func (s *Service) ListUsers(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	cursor, err := s.db.Users.Find(r.Context(), bson.M{})
	if err != nil {
		log.Printf("users: list error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	defer cursor.Close(r.Context())

	users := []models.User{}
	if err := cursor.All(r.Context(), &users); err != nil {
		log.Printf("users: decode error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, users)
}

func (s *Service) CreateUser(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input struct {
		Username string      `json:"username"`
		Email    string      `json:"email"`
		Password string      `json:"password"`
		Role     models.Role `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if input.Username == "" || input.Email == "" || input.Password == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Username, email and password are required")
		return
	}
	if input.Role == "" {
		input.Role = models.RoleUser
	}
	if !input.Role.Valid() {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid role value")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("users: bcrypt error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	user := models.User{
		UserID:    utils.NewID("u"),
		Username:  input.Username,
		Email:     input.Email,
		Password:  string(hashed),
		Role:      input.Role,
		Verified:  true, // admin-created accounts skip email verification
		Orders:    []string{},
		CreatedAt: time.Now(),
	}

	if _, err := s.db.Users.InsertOne(r.Context(), user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			utils.RespondWithError(w, http.StatusConflict, "User already exists")
			return
		}
		log.Printf("users: insert error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Error creating user")
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, user)
}

func (s *Service) UpdateUser(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := ps.ByName("userid")

	var input struct {
		Username *string      `json:"username"`
		Email    *string      `json:"email"`
		Password *string      `json:"password"`
		Role     *models.Role `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	set := bson.M{}
	if input.Username != nil {
		set["username"] = *input.Username
	}
	if input.Email != nil {
		set["email"] = *input.Email
	}
	if input.Role != nil {
		if !input.Role.Valid() {
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid role value")
			return
		}
		set["role"] = *input.Role
	}
	if input.Password != nil && *input.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("users: bcrypt error: %v", err)
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to hash password")
			return
		}
		set["password"] = string(hashed)
	}
	if len(set) == 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "Nothing to update")
		return
	}

	var updated models.User
	err := s.db.Users.FindOneAndUpdate(r.Context(),
		bson.M{"userid": userID},
		bson.M{"$set": set},
		mongoAfter(),
	).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		utils.RespondWithError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		log.Printf("users: update error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Error updating user")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, updated)
}

func (s *Service) DeleteUser(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := ps.ByName("userid")

	result, err := s.db.Users.DeleteOne(r.Context(), bson.M{"userid": userID})
	if err != nil {
		log.Printf("users: delete error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Error deleting user")
		return
	}
	if result.DeletedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "User not found")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "User deleted successfully"})
}
