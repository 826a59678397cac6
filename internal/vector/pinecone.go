// Package vector implements the lecture retrieval client: query embedding
// plus nearest-neighbor search against a Pinecone index namespace.
package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"studysync-backend/internal/config"
	"studysync-backend/internal/logger"
)

// EmbedFunc produces a fixed-dimension embedding for a query string. The
// backend (remote model or locally-hosted one) is pluggable through this.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// Match is one retrieval hit: similarity score in [0,1] plus the metadata
// stored at ingestion time.
type Match struct {
	ID       string                 `json:"id"`
	Score    float64                `json:"score"`
	Metadata map[string]interface{} `json:"metadata"`
}

type queryRequest struct {
	Namespace       string                 `json:"namespace,omitempty"`
	Vector          []float32              `json:"vector"`
	TopK            int                    `json:"topK"`
	IncludeMetadata bool                   `json:"includeMetadata"`
	IncludeValues   bool                   `json:"includeValues"`
	Filter          map[string]interface{} `json:"filter,omitempty"`
}

type queryResponse struct {
	Matches []Match `json:"matches"`
}

// Client queries a Pinecone index over its REST interface.
type Client struct {
	httpClient *http.Client
	apiKey     string
	indexHost  string
	namespace  string
	embed      EmbedFunc
}

func NewClient(cfg *config.Config, embed EmbedFunc) *Client {
	host := cfg.PineconeIndexHost
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}

	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiKey:     cfg.PineconeAPIKey,
		indexHost:  strings.TrimSuffix(host, "/"),
		namespace:  cfg.PineconeNamespace,
		embed:      embed,
	}
}

// Search embeds the query and returns the topK nearest matches, optionally
// restricted to one lecture. A failed embedding or query degrades to an empty
// list; retrieval failures must never abort the calling pipeline.
//
// When the metadata-filtered query errors or comes back empty, a broader
// unfiltered query (topK=50) is filtered locally by metadata equality or by
// the `{lectureId}_chunk_*` id convention. Ingestion-time metadata is not
// always present, so this is a best-effort join.
func (c *Client) Search(ctx context.Context, query string, topK int, lectureID string) []Match {
	vector, err := c.embed(ctx, query)
	if err != nil || len(vector) == 0 {
		logger.Warn("Query embedding failed, proceeding without retrieval", "error", err)
		return []Match{}
	}

	if lectureID == "" {
		matches, err := c.query(ctx, vector, topK, nil)
		if err != nil {
			logger.Warn("Vector query failed", "error", err)
			return []Match{}
		}
		return matches
	}

	filter := map[string]interface{}{
		"lectureId": map[string]interface{}{"$eq": lectureID},
	}
	matches, err := c.query(ctx, vector, topK, filter)
	if err == nil && len(matches) > 0 {
		return matches
	}
	if err != nil {
		logger.Warn("Filtered vector query failed, trying unfiltered fallback", "lecture_id", lectureID, "error", err)
	}

	broad, err := c.query(ctx, vector, 50, nil)
	if err != nil {
		logger.Warn("Fallback vector query failed", "lecture_id", lectureID, "error", err)
		return []Match{}
	}

	filtered := FilterByLecture(broad, lectureID)
	if len(filtered) > topK {
		filtered = filtered[:topK]
	}
	return filtered
}

func (c *Client) query(ctx context.Context, vector []float32, topK int, filter map[string]interface{}) ([]Match, error) {
	body, err := json.Marshal(queryRequest{
		Namespace:       c.namespace,
		Vector:          vector,
		TopK:            topK,
		IncludeMetadata: true,
		Filter:          filter,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.indexHost+"/query", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create query request: %w", err)
	}
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vector query failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("vector query returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var qr queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&qr); err != nil {
		return nil, fmt.Errorf("failed to decode query response: %w", err)
	}

	if qr.Matches == nil {
		return []Match{}, nil
	}
	return qr.Matches, nil
}

// FilterByLecture keeps matches belonging to a lecture, by metadata equality
// or by the id prefix convention used by the chunk ingestion job.
func FilterByLecture(matches []Match, lectureID string) []Match {
	prefix := lectureID + "_chunk_"
	filtered := make([]Match, 0, len(matches))
	for _, m := range matches {
		if id, ok := m.Metadata["lectureId"]; ok && fmt.Sprintf("%v", id) == lectureID {
			filtered = append(filtered, m)
			continue
		}
		if strings.HasPrefix(m.ID, prefix) {
			filtered = append(filtered, m)
		}
	}
	return filtered
}

// snippetKeys are tried in order when pulling chunk text out of match
// metadata; ingestion jobs have not been consistent about the field name.
var snippetKeys = []string{"fullText", "text", "chunk", "content", "body", "pageText"}

// Snippet extracts the chunk text carried in a match's metadata, capped at
// maxLen. Falls back to any string field longer than 20 chars.
func (m Match) Snippet(maxLen int) string {
	for _, key := range snippetKeys {
		if v, ok := m.Metadata[key].(string); ok && v != "" {
			return truncate(v, maxLen)
		}
	}
	for _, v := range m.Metadata {
		if s, ok := v.(string); ok && len(s) > 20 {
			return truncate(s, maxLen)
		}
	}
	return ""
}

// LectureName returns the human-readable source label of a match.
func (m Match) LectureName() string {
	if v, ok := m.Metadata["lectureName"].(string); ok && v != "" {
		return v
	}
	return "Unknown Lecture"
}

// BuildContext joins the snippets of the given matches into one retrieval
// context block, capping each snippet and the total length.
func BuildContext(matches []Match, perSnippetCap, totalCap int) string {
	var snippets []string
	for _, m := range matches {
		if s := m.Snippet(perSnippetCap); s != "" {
			snippets = append(snippets, s)
		}
	}
	return truncate(strings.Join(snippets, "\n\n---\n\n"), totalCap)
}

// truncate caps s at max bytes, backing up so a multi-byte rune is never
// split. max <= 0 disables the cap.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
