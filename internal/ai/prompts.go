package ai

import (
	"fmt"
	"strings"

	"studysync-backend/models"
)

// BuildAnswerPrompt frames one extracted question for a single-shot answer,
// prepending retrieved lecture context when there is any.
func BuildAnswerPrompt(question, contextText string) string {
	if contextText != "" {
		return fmt.Sprintf("Context from lecture: %s\n\nQuestion: %s\n\nProvide a detailed answer based on the context above.", contextText, question)
	}
	return fmt.Sprintf("Question: %s\n\nProvide a detailed and comprehensive answer.", question)
}

// BuildChatPrompt assembles the conversation-aware prompt for the streaming
// chat path: prior turns rendered as User:/AI: lines, retrieved lecture
// context, then the new query.
func BuildChatPrompt(history []models.ChatMessage, prompt, retrievedContext string) string {
	var turns []string
	for _, msg := range history {
		role := "AI"
		if msg.Type == "user" {
			role = "User"
		}
		turns = append(turns, fmt.Sprintf("%s: %s", role, msg.Message))
	}
	recent := strings.Join(turns, "\n")

	var b strings.Builder
	b.WriteString("You are a helpful teaching assistant answering questions about a lecture.\n\n")
	if retrievedContext != "" {
		b.WriteString("Lecture context:\n")
		b.WriteString(retrievedContext)
		b.WriteString("\n\n")
	}
	if recent != "" {
		b.WriteString("Conversation so far:\n")
		b.WriteString(recent)
		b.WriteString("\n\n")
	}
	b.WriteString("User: ")
	b.WriteString(prompt)
	b.WriteString("\nAI:")
	return b.String()
}
