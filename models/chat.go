// models/chat.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChatMessage is a single turn in a lecture conversation.
// Type is "user" or "ai".
type ChatMessage struct {
	Type    string `bson:"type" json:"type"`
	Message string `bson:"message" json:"message"`
}

// Chat is the persisted conversation for one user and one lecture.
type Chat struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"userId"`
	LectureID string             `bson:"lecture_id" json:"lectureId"`
	Messages  []ChatMessage      `bson:"messages" json:"messages"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updatedAt"`
}
