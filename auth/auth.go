package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"verdant/db"
	"verdant/globals"
	"verdant/middleware"
	"verdant/models"
	"verdant/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

const tokenTTL = 24 * time.Hour

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
	FarmName string `json:"farmName"`
}

// Register creates a customer or farmer account and returns a signed token.
func Register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var input credentials
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if input.Username == "" || len(input.Password) < 6 {
		utils.RespondWithError(w, http.StatusBadRequest, "Username and a password of at least 6 characters are required")
		return
	}
	if input.Role != "customer" && input.Role != "farmer" {
		utils.RespondWithError(w, http.StatusBadRequest, "Role must be customer or farmer")
		return
	}
	if input.Role == "farmer" && input.FarmName == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Farm name is required for farmer accounts")
		return
	}

	count, err := db.UserCollection.CountDocuments(ctx, bson.M{"username": input.Username})
	if err != nil {
		log.Println("Register count error:", err)
		http.Error(w, "Failed to create account", http.StatusInternalServerError)
		return
	}
	if count > 0 {
		utils.RespondWithError(w, http.StatusConflict, "Username is taken")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Println("Register hash error:", err)
		http.Error(w, "Failed to create account", http.StatusInternalServerError)
		return
	}

	user := models.User{
		UserID:       utils.GetUUID(),
		Username:     input.Username,
		PasswordHash: string(hash),
		Role:         []string{input.Role},
		FarmName:     input.FarmName,
		CreatedAt:    time.Now(),
	}
	if _, err := db.UserCollection.InsertOne(ctx, user); err != nil {
		log.Println("Register InsertOne error:", err)
		http.Error(w, "Failed to create account", http.StatusInternalServerError)
		return
	}

	token, err := signToken(user)
	if err != nil {
		log.Println("Register token error:", err)
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, utils.M{
		"token":  token,
		"userid": user.UserID,
		"role":   user.Role,
	})
}

// Login verifies credentials and returns a signed token.
func Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var input credentials
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if input.Username == "" || input.Password == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	var user models.User
	err := db.UserCollection.FindOne(ctx, bson.M{"username": input.Username}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	if err != nil {
		log.Println("Login FindOne error:", err)
		http.Error(w, "Login failed", http.StatusInternalServerError)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	token, err := signToken(user)
	if err != nil {
		log.Println("Login token error:", err)
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	_, err = db.UserCollection.UpdateOne(ctx,
		bson.M{"userid": user.UserID},
		bson.M{"$set": bson.M{"last_login": time.Now()}},
	)
	if err != nil {
		log.Println("Login last_login update failed:", err)
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"token":  token,
		"userid": user.UserID,
		"role":   user.Role,
	})
}

// GetProfile returns the authenticated user's account, minus the hash.
func GetProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var user models.User
	err := db.UserCollection.FindOne(ctx, bson.M{"userid": userID}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		utils.RespondWithError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		log.Println("GetProfile FindOne error:", err)
		http.Error(w, "Failed to fetch profile", http.StatusInternalServerError)
		return
	}
	user.PasswordHash = ""

	utils.RespondWithJSON(w, http.StatusOK, user)
}

func signToken(user models.User) (string, error) {
	claims := middleware.Claims{
		Username: user.Username,
		UserID:   user.UserID,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(globals.JwtSecret)
}
