package routes

import (
	"context"
	"io"
	"net/http"
	"unicode/utf8"

	"studysync-backend/internal/config"
	"studysync-backend/internal/logger"
	"studysync-backend/internal/vector"
	"studysync-backend/models"
	"studysync-backend/services"

	"github.com/gin-gonic/gin"
)

// TextExtractor turns an uploaded PDF into raw text.
type TextExtractor interface {
	ExtractText(ctx context.Context, pdfContent []byte) (string, error)
}

// Retriever finds lecture chunks relevant to a query.
type Retriever interface {
	Search(ctx context.Context, query string, topK int, lectureID string) []vector.Match
}

// QuestionAnswerer produces an answer string for one question. The returned
// string carries a human-readable error message on failure.
type QuestionAnswerer interface {
	AnswerQuestion(ctx context.Context, modelName, question, contextText string) string
}

// SetupPDFRoutes registers the question-paper solver endpoint and the health
// probe. Dependencies come in as interfaces so handlers can be exercised
// against stubs.
func SetupPDFRoutes(router *gin.Engine, cfg *config.Config, extractor TextExtractor, retriever Retriever, answerer QuestionAnswerer) {
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST("/api/process-pdf", func(c *gin.Context) {
		ctx := c.Request.Context()

		fileHeader, err := c.FormFile("pdf")
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ProcessPDFError{Error: "No PDF file uploaded"})
			return
		}

		if fileHeader.Size > cfg.MaxFileSize {
			c.JSON(http.StatusBadRequest, models.ProcessPDFError{
				Error:   "File too large",
				Details: "The uploaded PDF exceeds the maximum allowed size",
			})
			return
		}

		modelName := c.Query("model")
		if modelName == "" {
			modelName = c.PostForm("model")
		}
		if !cfg.ModelAllowed(modelName) {
			c.JSON(http.StatusBadRequest, models.ProcessPDFError{
				Error:   "Requested model is not allowed",
				Details: modelName,
			})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusInternalServerError, models.ProcessPDFError{
				Error:   "Error processing PDF",
				Details: err.Error(),
			})
			return
		}
		defer file.Close()

		pdfContent, err := io.ReadAll(file)
		if err != nil {
			c.JSON(http.StatusInternalServerError, models.ProcessPDFError{
				Error:   "Error processing PDF",
				Details: err.Error(),
			})
			return
		}

		logger.Info("PDF upload started", "filename", fileHeader.Filename, "bytes", fileHeader.Size)

		text, err := extractor.ExtractText(ctx, pdfContent)
		if err != nil {
			logger.Error("PDF text extraction failed", "filename", fileHeader.Filename, "error", err)
			c.JSON(http.StatusInternalServerError, models.ProcessPDFError{
				Error:   "Error processing PDF",
				Details: err.Error(),
			})
			return
		}

		if len(text) < 50 {
			c.JSON(http.StatusBadRequest, models.ProcessPDFError{
				Error:         "Could not extract text from PDF",
				ExtractedText: text,
			})
			return
		}

		questions := services.ExtractQuestions(text)
		logger.Info("Questions extracted", "count", len(questions))

		if len(questions) == 0 {
			c.JSON(http.StatusBadRequest, models.ProcessPDFError{
				Error:         "No questions found",
				ExtractedText: previewText(text, 2000),
			})
			return
		}

		// Each question is answered independently so one retrieval or
		// generation failure cannot abort the batch.
		results := make([]models.AnswerResult, 0, len(questions))
		for i, question := range questions {
			logger.Info("Answering question", "index", i+1, "total", len(questions))

			result := models.AnswerResult{
				Question:    question,
				LectureName: "Unknown Lecture",
			}

			var contextText string
			matches := retriever.Search(ctx, question, 1, "")
			if len(matches) > 0 {
				best := matches[0]
				result.LectureName = best.LectureName()
				result.Score = best.Score
				result.Metadata = best.Metadata
				if t, ok := best.Metadata["text"].(string); ok {
					contextText = t
				}
			}

			result.Answer = answerer.AnswerQuestion(ctx, modelName, question, contextText)
			results = append(results, result)
		}

		matched := 0
		for _, r := range results {
			if r.Score > 0 {
				matched++
			}
		}
		logger.Info("PDF processing complete", "total", len(questions), "matched", matched)

		c.JSON(http.StatusOK, models.ProcessPDFResponse{
			Success:          true,
			TotalQuestions:   len(questions),
			MatchedQuestions: matched,
			Results:          results,
		})
	})
}

// previewText trims diagnostic text to at most max bytes without splitting a
// multi-byte rune.
func previewText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
