package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"studysync-backend/internal/vector"
	"studysync-backend/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type stubChatStore struct {
	chat       models.Chat
	loadErr    error
	appendErr  error
	history    []models.ChatMessage
	historyErr error
	appended   []models.ChatMessage
}

func (s *stubChatStore) LoadOrCreate(ctx context.Context, userID primitive.ObjectID, lectureID string) (*models.Chat, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	chat := s.chat
	if chat.ID.IsZero() {
		chat.ID = primitive.NewObjectID()
	}
	chat.UserID = userID
	chat.LectureID = lectureID
	return &chat, nil
}

func (s *stubChatStore) Append(ctx context.Context, chatID primitive.ObjectID, msg models.ChatMessage) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	s.appended = append(s.appended, msg)
	return nil
}

func (s *stubChatStore) History(ctx context.Context, userID primitive.ObjectID, lectureID string) ([]models.ChatMessage, error) {
	if s.historyErr != nil {
		return nil, s.historyErr
	}
	if s.history == nil {
		return []models.ChatMessage{}, nil
	}
	return s.history, nil
}

type scriptedStreamer struct {
	chunks    []string
	err       error
	gotModel  string
	gotPrompt string
	onStream  func()
}

func (s *scriptedStreamer) StreamAnswer(ctx context.Context, modelName, fullPrompt string, emit func(chunk string) error) (string, error) {
	s.gotModel = modelName
	s.gotPrompt = fullPrompt
	if s.onStream != nil {
		s.onStream()
	}

	var full strings.Builder
	for _, chunk := range s.chunks {
		if err := emit(chunk); err != nil {
			return "", err
		}
		full.WriteString(chunk)
	}
	if s.err != nil {
		return "", s.err
	}
	return full.String(), nil
}

func newChatbotTestRouter(store ConversationStore, retriever Retriever, streamer AnswerStreamer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	auth := func(c *gin.Context) {
		c.Set("user_id", "64f000000000000000000001")
		c.Next()
	}
	SetupChatbotRoutes(router, pdfTestConfig(), store, auth, retriever, streamer)
	return router
}

type sseEvent struct {
	name string
	data string
}

func parseSSE(body string) []sseEvent {
	var events []sseEvent
	for _, block := range strings.Split(strings.TrimSpace(body), "\n\n") {
		ev := sseEvent{name: "message"}
		for _, line := range strings.Split(block, "\n") {
			switch {
			case strings.HasPrefix(line, "event: "):
				ev.name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				ev.data = strings.TrimPrefix(line, "data: ")
			}
		}
		events = append(events, ev)
	}
	return events
}

func TestAskStreamsChunksInOrder(t *testing.T) {
	store := &stubChatStore{}
	retriever := stubRetriever{matches: []vector.Match{{
		ID:       "lec1_chunk_0",
		Score:    0.88,
		Metadata: map[string]interface{}{"text": "B+ trees keep keys sorted across pages"},
	}}}
	streamer := &scriptedStreamer{chunks: []string{"B+ trees ", "stay balanced ", "on insert."}}
	streamer.onStream = func() {
		// the user turn is already persisted when generation starts
		assert.Len(t, store.appended, 1)
	}

	router := newChatbotTestRouter(store, retriever, streamer)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/chatbot/ask?prompt=how+do+b%2B+trees+stay+balanced&lectureId=lec1", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	events := parseSSE(w.Body.String())
	require.NotEmpty(t, events)

	last := events[len(events)-1]
	assert.Equal(t, "done", last.name)
	assert.JSONEq(t, "{}", last.data)

	var answer strings.Builder
	for _, ev := range events[:len(events)-1] {
		require.Equal(t, "message", ev.name)
		var payload struct {
			Chunk string `json:"chunk"`
		}
		require.NoError(t, json.Unmarshal([]byte(ev.data), &payload))
		answer.WriteString(payload.Chunk)
	}
	assert.Equal(t, "B+ trees stay balanced on insert.", answer.String())

	assert.Contains(t, streamer.gotPrompt, "B+ trees keep keys sorted across pages")
	assert.Contains(t, streamer.gotPrompt, "how do b+ trees stay balanced")

	require.Len(t, store.appended, 2)
	assert.Equal(t, models.ChatMessage{Type: "user", Message: "how do b+ trees stay balanced"}, store.appended[0])
	assert.Equal(t, models.ChatMessage{Type: "ai", Message: "B+ trees stay balanced on insert."}, store.appended[1])
}

func TestAskStreamFailureEmitsErrorEvent(t *testing.T) {
	store := &stubChatStore{}
	streamer := &scriptedStreamer{chunks: []string{"partial "}, err: errors.New("generation quota exhausted")}

	router := newChatbotTestRouter(store, stubRetriever{}, streamer)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/chatbot/ask?prompt=hello&lectureId=lec1", nil))

	// headers were already sent when the stream broke
	require.Equal(t, http.StatusOK, w.Code)

	events := parseSSE(w.Body.String())
	require.NotEmpty(t, events)

	last := events[len(events)-1]
	assert.Equal(t, "error", last.name)
	var payload struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(last.data), &payload))
	assert.Equal(t, "generation quota exhausted", payload.Error)

	for _, ev := range events {
		assert.NotEqual(t, "done", ev.name)
	}

	// the failed AI turn is not persisted
	require.Len(t, store.appended, 1)
	assert.Equal(t, "user", store.appended[0].Type)
}

func TestAskRejectsMissingParams(t *testing.T) {
	router := newChatbotTestRouter(&stubChatStore{}, stubRetriever{}, &scriptedStreamer{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/chatbot/ask?prompt=hello", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "lectureId")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/chatbot/ask?lectureId=lec1", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAskRejectsDisallowedModel(t *testing.T) {
	router := newChatbotTestRouter(&stubChatStore{}, stubRetriever{}, &scriptedStreamer{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/chatbot/ask?prompt=hello&lectureId=lec1&model=gpt-4", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "not allowed")
}

func TestHistoryReturnsConversation(t *testing.T) {
	store := &stubChatStore{history: []models.ChatMessage{
		{Type: "user", Message: "what is paging"},
		{Type: "ai", Message: "paging divides memory into fixed-size frames"},
	}}
	router := newChatbotTestRouter(store, stubRetriever{}, &scriptedStreamer{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/chatbot/history?lectureId=lec1", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success   bool                 `json:"success"`
		LectureID string               `json:"lectureId"`
		Messages  []models.ChatMessage `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "lec1", resp.LectureID)
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "user", resp.Messages[0].Type)
	assert.Equal(t, "ai", resp.Messages[1].Type)
}

func TestHistoryEmptyConversation(t *testing.T) {
	router := newChatbotTestRouter(&stubChatStore{}, stubRetriever{}, &scriptedStreamer{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/chatbot/history?lectureId=never-asked", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"messages":[]`)
}

func TestHistoryRequiresLectureID(t *testing.T) {
	router := newChatbotTestRouter(&stubChatStore{}, stubRetriever{}, &scriptedStreamer{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/chatbot/history", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
