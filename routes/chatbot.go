package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"studysync-backend/internal/ai"
	"studysync-backend/internal/config"
	"studysync-backend/internal/logger"
	"studysync-backend/internal/vector"
	"studysync-backend/middleware"
	"studysync-backend/models"
	"studysync-backend/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AnswerStreamer streams a generated answer chunk by chunk through emit and
// returns the accumulated text for persistence.
type AnswerStreamer interface {
	StreamAnswer(ctx context.Context, modelName, fullPrompt string, emit func(chunk string) error) (string, error)
}

// ConversationStore persists chat history keyed by user and lecture.
type ConversationStore interface {
	LoadOrCreate(ctx context.Context, userID primitive.ObjectID, lectureID string) (*models.Chat, error)
	Append(ctx context.Context, chatID primitive.ObjectID, msg models.ChatMessage) error
	History(ctx context.Context, userID primitive.ObjectID, lectureID string) ([]models.ChatMessage, error)
}

// SetupChatbotRoutes registers the streaming lecture chat endpoints behind
// requireAuth, which rejects with plain 401 JSON before any SSE bytes go out.
func SetupChatbotRoutes(router *gin.Engine, cfg *config.Config, store ConversationStore, requireAuth gin.HandlerFunc, retriever Retriever, streamer AnswerStreamer) {
	chatbot := router.Group("/api/chatbot")
	chatbot.Use(requireAuth)

	chatbot.GET("/ask", func(c *gin.Context) {
		ctx := c.Request.Context()

		prompt := c.Query("prompt")
		lectureID := c.Query("lectureId")
		if prompt == "" || lectureID == "" {
			utils.RespondWithBadRequest(c, "Prompt and lectureId are required", nil)
			return
		}

		modelName := c.Query("model")
		if !cfg.ModelAllowed(modelName) {
			utils.RespondWithBadRequest(c, "Requested model is not allowed", gin.H{"model": modelName})
			return
		}

		userObjID, err := primitive.ObjectIDFromHex(middleware.GetUserID(c))
		if err != nil {
			utils.RespondWithError(c, http.StatusUnauthorized, "invalid_token", "Invalid JWT token", nil)
			return
		}

		chat, err := store.LoadOrCreate(ctx, userObjID, lectureID)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to load conversation", gin.H{"error": err.Error()})
			return
		}

		// History before this turn feeds the prompt; the new user message is
		// persisted before generation so it survives a failed stream.
		history := chat.Messages
		if err := store.Append(ctx, chat.ID, models.ChatMessage{Type: "user", Message: prompt}); err != nil {
			utils.RespondWithInternalError(c, "Failed to save message", gin.H{"error": err.Error()})
			return
		}

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("Access-Control-Allow-Origin", "*")
		c.Writer.WriteHeader(http.StatusOK)
		c.Writer.Flush()

		matches := retriever.Search(ctx, prompt, 5, lectureID)
		retrievedContext := vector.BuildContext(matches, 2000, 20000)
		logger.Info("Lecture context retrieved", "lecture_id", lectureID, "matches", len(matches), "context_chars", len(retrievedContext))

		fullPrompt := ai.BuildChatPrompt(history, prompt, retrievedContext)

		emit := func(chunk string) error {
			payload, err := json.Marshal(gin.H{"chunk": chunk})
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", payload); err != nil {
				return err
			}
			c.Writer.Flush()
			return nil
		}

		complete, err := streamer.StreamAnswer(ctx, modelName, fullPrompt, emit)
		if err != nil {
			logger.Error("Streaming generation failed", "lecture_id", lectureID, "error", err)
			payload, _ := json.Marshal(gin.H{"error": err.Error()})
			fmt.Fprintf(c.Writer, "event: error\ndata: %s\n\n", payload)
			c.Writer.Flush()
			return
		}

		if err := store.Append(ctx, chat.ID, models.ChatMessage{Type: "ai", Message: complete}); err != nil {
			logger.Error("Failed to persist AI response", "chat_id", chat.ID.Hex(), "error", err)
		}

		fmt.Fprint(c.Writer, "event: done\ndata: {}\n\n")
		c.Writer.Flush()
	})

	chatbot.GET("/history", func(c *gin.Context) {
		ctx := c.Request.Context()

		lectureID := c.Query("lectureId")
		if lectureID == "" {
			utils.RespondWithBadRequest(c, "lectureId is required", nil)
			return
		}

		userObjID, err := primitive.ObjectIDFromHex(middleware.GetUserID(c))
		if err != nil {
			utils.RespondWithError(c, http.StatusUnauthorized, "invalid_token", "Invalid JWT token", nil)
			return
		}

		messages, err := store.History(ctx, userObjID, lectureID)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to load conversation", gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"lectureId": lectureID,
			"messages":  messages,
		})
	})
}
