package services

import (
	"context"
	"time"

	"studysync-backend/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ChatStore persists per-user, per-lecture conversations. One document in the
// chats collection holds the full message history of a pair; the unique index
// on (user_id, lecture_id) keeps it that way.
type ChatStore struct {
	chats *mongo.Collection
}

func NewChatStore(db *mongo.Database) *ChatStore {
	return &ChatStore{chats: db.Collection("chats")}
}

// LoadOrCreate returns the conversation for a user and lecture, inserting an
// empty one on first contact.
func (s *ChatStore) LoadOrCreate(ctx context.Context, userID primitive.ObjectID, lectureID string) (*models.Chat, error) {
	var chat models.Chat
	err := s.chats.FindOne(ctx, bson.M{"user_id": userID, "lecture_id": lectureID}).Decode(&chat)
	if err == nil {
		return &chat, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, err
	}

	now := time.Now()
	chat = models.Chat{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		LectureID: lectureID,
		Messages:  []models.ChatMessage{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.chats.InsertOne(ctx, chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

// Append pushes one message onto a conversation.
func (s *ChatStore) Append(ctx context.Context, chatID primitive.ObjectID, msg models.ChatMessage) error {
	_, err := s.chats.UpdateOne(ctx,
		bson.M{"_id": chatID},
		bson.M{
			"$push": bson.M{"messages": msg},
			"$set":  bson.M{"updated_at": time.Now()},
		})
	return err
}

// History returns the messages of a conversation. A lecture the user never
// chatted about yields an empty list, not an error.
func (s *ChatStore) History(ctx context.Context, userID primitive.ObjectID, lectureID string) ([]models.ChatMessage, error) {
	var chat models.Chat
	err := s.chats.FindOne(ctx, bson.M{"user_id": userID, "lecture_id": lectureID}).Decode(&chat)
	if err == mongo.ErrNoDocuments {
		return []models.ChatMessage{}, nil
	}
	if err != nil {
		return nil, err
	}
	if chat.Messages == nil {
		return []models.ChatMessage{}, nil
	}
	return chat.Messages, nil
}
