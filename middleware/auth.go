package middleware

import (
	"net/http"

	"studysync-backend/internal/config"
	"studysync-backend/models"
	"studysync-backend/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type AuthMiddleware struct {
	config *config.Config
	db     *mongo.Database
}

func NewAuthMiddleware(cfg *config.Config, db *mongo.Database) *AuthMiddleware {
	return &AuthMiddleware{
		config: cfg,
		db:     db,
	}
}

// TokenFromRequest pulls the JWT from the `token` query parameter, the
// Authorization header, or the x-access-token header, in that order. The
// query parameter exists because EventSource cannot set request headers.
func TokenFromRequest(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return utils.NormalizeToken(token)
	}
	if header := c.GetHeader("Authorization"); header != "" {
		return utils.NormalizeToken(header)
	}
	if token := c.GetHeader("x-access-token"); token != "" {
		return utils.NormalizeToken(token)
	}
	return ""
}

// RequireAuth validates the request's JWT and resolves the user document.
// Rejection happens before any response body is written, so SSE handlers
// behind this middleware can still return a plain 401.
func (a *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := TokenFromRequest(c)
		if tokenString == "" {
			utils.RespondWithUnauthorized(c, "Authentication token is required")
			c.Abort()
			return
		}

		claims, err := utils.ValidateJWT(tokenString, a.config.JWTSecret)
		if err != nil {
			utils.RespondWithError(c, http.StatusUnauthorized, "invalid_token", "Invalid JWT token", nil)
			c.Abort()
			return
		}

		userID, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			utils.RespondWithError(c, http.StatusUnauthorized, "invalid_token", "Invalid JWT token", nil)
			c.Abort()
			return
		}

		var user models.User
		err = a.db.Collection("users").FindOne(c.Request.Context(), bson.M{"_id": userID}).Decode(&user)
		if err != nil {
			utils.RespondWithError(c, http.StatusUnauthorized, "invalid_token", "Invalid JWT token", nil)
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("user", &user)

		c.Next()
	}
}

// GetUserID retrieves the authenticated user's id from the request context.
func GetUserID(c *gin.Context) string {
	if userID, exists := c.Get("user_id"); exists {
		if id, ok := userID.(string); ok {
			return id
		}
	}
	return ""
}

// GetUser retrieves the resolved user document from the request context.
func GetUser(c *gin.Context) *models.User {
	if user, exists := c.Get("user"); exists {
		if u, ok := user.(*models.User); ok {
			return u
		}
	}
	return nil
}
