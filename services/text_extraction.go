package services

import (
	"context"
	"fmt"

	"studysync-backend/internal/config"
)

// TextExtractionService runs the page-by-page extraction pipeline: split the
// uploaded PDF into single-page documents, OCR each one, concatenate.
type TextExtractionService struct {
	splitter *PDFSplitter
	ocr      *OCRSpaceClient
	maxPages int
}

func NewTextExtractionService(cfg *config.Config) *TextExtractionService {
	return &TextExtractionService{
		splitter: NewPDFSplitter(),
		ocr:      NewOCRSpaceClient(cfg),
		maxPages: cfg.MaxPDFPages,
	}
}

// ExtractText returns the OCR text of the whole document. A PDF that cannot
// be parsed or that exceeds the page limit is an error; OCR failures on
// individual pages are not.
func (s *TextExtractionService) ExtractText(ctx context.Context, pdfContent []byte) (string, error) {
	pageCount, err := s.splitter.PageCount(pdfContent)
	if err != nil {
		return "", err
	}
	if s.maxPages > 0 && pageCount > s.maxPages {
		return "", fmt.Errorf("PDF has %d pages, the limit is %d", pageCount, s.maxPages)
	}

	pages, err := s.splitter.SplitIntoPages(ctx, pdfContent)
	if err != nil {
		return "", err
	}
	return s.ocr.ExtractDocumentText(ctx, pages)
}
