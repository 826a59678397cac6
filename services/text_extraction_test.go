package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTextOCRsEveryPage(t *testing.T) {
	page := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"ParsedResults":[{"ParsedText":"page %d text"}],"IsErroredOnProcessing":false}`, page)
	}))
	defer server.Close()

	cfg := ocrTestConfig(server.URL)
	cfg.MaxPDFPages = 10
	svc := NewTextExtractionService(cfg)

	text, err := svc.ExtractText(context.Background(), buildPDF(t, 2))
	require.NoError(t, err)
	assert.Equal(t, "page 1 text\n\npage 2 text\n\n", text)
	assert.Equal(t, 2, page)
}

func TestExtractTextEnforcesPageLimit(t *testing.T) {
	cfg := ocrTestConfig("http://127.0.0.1:0")
	cfg.MaxPDFPages = 2
	svc := NewTextExtractionService(cfg)

	_, err := svc.ExtractText(context.Background(), buildPDF(t, 3))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "limit")
}

func TestExtractTextRejectsUnparseableDocument(t *testing.T) {
	cfg := ocrTestConfig("http://127.0.0.1:0")
	svc := NewTextExtractionService(cfg)

	_, err := svc.ExtractText(context.Background(), []byte("not a pdf"))
	assert.Error(t, err)
}
