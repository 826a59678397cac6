package routes

import (
	"net/http"
	"time"

	"studysync-backend/internal/config"
	"studysync-backend/models"
	"studysync-backend/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// SetupAuthRoutes registers account registration and login. Tokens issued
// here are what the chat endpoints accept via query param or header.
func SetupAuthRoutes(router *gin.Engine, cfg *config.Config, mongoClient *mongo.Client) {
	auth := router.Group("/api/auth")

	db := mongoClient.Database(cfg.DBName)
	usersCollection := db.Collection("users")

	auth.POST("/register", func(c *gin.Context) {
		var req models.RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		var existingUser models.User
		if err := usersCollection.FindOne(c.Request.Context(), bson.M{"username": req.Username}).Decode(&existingUser); err == nil {
			utils.RespondWithError(c, http.StatusConflict, "username_exists", "Username already exists", nil)
			return
		}

		hashedPassword, err := utils.HashPassword(req.Password, cfg.BcryptCost)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to process password", nil)
			return
		}

		user := models.User{
			Username:  req.Username,
			Email:     req.Email,
			Password:  hashedPassword,
			CreatedAt: time.Now(),
		}

		result, err := usersCollection.InsertOne(c.Request.Context(), user)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to create user", nil)
			return
		}
		user.ID = result.InsertedID.(primitive.ObjectID)

		duration, err := time.ParseDuration(cfg.JWTExpiresIn)
		if err != nil {
			duration = 24 * time.Hour
		}
		token, err := utils.GenerateJWT(user.ID.Hex(), cfg.JWTSecret, duration)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to generate token", nil)
			return
		}

		c.JSON(http.StatusCreated, models.LoginResponse{
			Token:     token,
			ExpiresAt: time.Now().Add(duration),
			User:      user,
		})
	})

	auth.POST("/login", func(c *gin.Context) {
		var req models.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		var user models.User
		if err := usersCollection.FindOne(c.Request.Context(), bson.M{"username": req.Username}).Decode(&user); err != nil {
			utils.RespondWithError(c, http.StatusUnauthorized, "invalid_credentials", "Invalid username or password", nil)
			return
		}

		if !utils.CheckPassword(req.Password, user.Password) {
			utils.RespondWithError(c, http.StatusUnauthorized, "invalid_credentials", "Invalid username or password", nil)
			return
		}

		duration, err := time.ParseDuration(cfg.JWTExpiresIn)
		if err != nil {
			duration = 24 * time.Hour
		}
		token, err := utils.GenerateJWT(user.ID.Hex(), cfg.JWTSecret, duration)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to generate token", nil)
			return
		}

		c.JSON(http.StatusOK, models.LoginResponse{
			Token:     token,
			ExpiresAt: time.Now().Add(duration),
			User:      user,
		})
	})
}
