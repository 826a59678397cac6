package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"studysync-backend/internal/config"
	"studysync-backend/internal/logger"

	"golang.org/x/time/rate"
)

// OCRSpaceClient sends single-page PDFs to the OCR.space parse endpoint.
// Requests are paced to one per second; the hosted API throttles callers
// that submit pages back to back.
type OCRSpaceClient struct {
	apiKey     string
	apiURL     string
	engine     string
	httpClient *http.Client
	pacer      *rate.Limiter
}

// ocrSpaceResponse mirrors the fields of the parse response we consume.
// ErrorMessage is a string on some failures and an array on others.
type ocrSpaceResponse struct {
	ParsedResults []struct {
		ParsedText string `json:"ParsedText"`
	} `json:"ParsedResults"`
	IsErroredOnProcessing bool        `json:"IsErroredOnProcessing"`
	ErrorMessage          interface{} `json:"ErrorMessage"`
}

func NewOCRSpaceClient(cfg *config.Config) *OCRSpaceClient {
	timeout := time.Duration(cfg.OCRTimeout) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &OCRSpaceClient{
		apiKey:     cfg.OCRAPIKey,
		apiURL:     cfg.OCRAPIURL,
		engine:     cfg.OCREngine,
		httpClient: &http.Client{Timeout: timeout},
		pacer:      rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// ExtractPageText OCRs one page. Any failure degrades to an empty string so
// that one bad page cannot sink the rest of the document.
func (c *OCRSpaceClient) ExtractPageText(ctx context.Context, page PageDocument) string {
	text, err := c.parsePage(ctx, page)
	if err != nil {
		logger.Error("OCR failed for page", "page", page.Number, "error", err)
		return ""
	}

	logger.Info("Page OCR complete", "page", page.Number, "chars", len(text))
	return text
}

// ExtractDocumentText OCRs every page in order, pacing requests, and joins
// the page texts with blank lines. Pages that fail contribute nothing.
func (c *OCRSpaceClient) ExtractDocumentText(ctx context.Context, pages []PageDocument) (string, error) {
	var fullText bytes.Buffer
	for _, page := range pages {
		if err := c.pacer.Wait(ctx); err != nil {
			return fullText.String(), err
		}

		fullText.WriteString(c.ExtractPageText(ctx, page))
		fullText.WriteString("\n\n")
	}

	logger.Info("Document OCR complete", "pages", len(pages), "chars", fullText.Len())
	return fullText.String(), nil
}

func (c *OCRSpaceClient) parsePage(ctx context.Context, page PageDocument) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fileWriter, err := writer.CreateFormFile("file", fmt.Sprintf("page%d.pdf", page.Number))
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := fileWriter.Write(page.Data); err != nil {
		return "", fmt.Errorf("failed to write page data: %w", err)
	}

	writer.WriteField("language", "eng")
	writer.WriteField("isOverlayRequired", "false")
	writer.WriteField("detectOrientation", "true")
	writer.WriteField("scale", "true")
	writer.WriteField("OCREngine", c.engine)

	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, &buf)
	if err != nil {
		return "", fmt.Errorf("failed to create OCR request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("OCR request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("OCR request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var ocrResp ocrSpaceResponse
	if err := json.NewDecoder(resp.Body).Decode(&ocrResp); err != nil {
		return "", fmt.Errorf("failed to decode OCR response: %w", err)
	}

	if ocrResp.IsErroredOnProcessing {
		return "", fmt.Errorf("OCR processing failed: %v", ocrResp.ErrorMessage)
	}

	if len(ocrResp.ParsedResults) == 0 {
		return "", nil
	}
	return ocrResp.ParsedResults[0].ParsedText, nil
}
