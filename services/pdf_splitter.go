package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"studysync-backend/internal/logger"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PageDocument is one page of an uploaded PDF, re-wrapped as a standalone
// single-page PDF so it can be sent to the OCR provider on its own.
type PageDocument struct {
	Number int
	Data   []byte
}

// PDFSplitter splits uploaded question papers into single-page documents
// using pdfcpu. Splitting happens through the filesystem because pdfcpu's
// split API is file based.
type PDFSplitter struct {
	tempDir string
	conf    *model.Configuration
}

func NewPDFSplitter() *PDFSplitter {
	tempDir := filepath.Join(os.TempDir(), "studysync-pdf")
	os.MkdirAll(tempDir, 0755)

	return &PDFSplitter{
		tempDir: tempDir,
		conf:    model.NewDefaultConfiguration(),
	}
}

// SplitIntoPages validates the PDF and returns its pages in document order,
// each as a complete single-page PDF. An unparseable document is an error;
// the caller reports it to the client rather than OCRing garbage.
func (s *PDFSplitter) SplitIntoPages(ctx context.Context, pdfContent []byte) ([]PageDocument, error) {
	workDir := filepath.Join(s.tempDir, uuid.New().String())
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	inFile := filepath.Join(workDir, "upload.pdf")
	if err := os.WriteFile(inFile, pdfContent, 0644); err != nil {
		return nil, fmt.Errorf("failed to write temp PDF file: %w", err)
	}

	pdfCtx, err := api.ReadContextFile(inFile)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PDF document: %w", err)
	}
	pageCount := pdfCtx.PageCount
	logger.Info("Splitting PDF into pages", "pages", pageCount)

	outDir := filepath.Join(workDir, "pages")
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	if err := api.SplitFile(inFile, outDir, 1, s.conf); err != nil {
		return nil, fmt.Errorf("failed to split PDF: %w", err)
	}

	// SplitFile writes <basename>_<page>.pdf per page.
	pages := make([]PageDocument, 0, pageCount)
	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pageFile := filepath.Join(outDir, fmt.Sprintf("upload_%d.pdf", pageNum))
		data, err := os.ReadFile(pageFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read split page %d: %w", pageNum, err)
		}

		pages = append(pages, PageDocument{Number: pageNum, Data: data})
		logger.Debug("Page extracted", "page", pageNum, "bytes", len(data))
	}

	return pages, nil
}

// PageCount reports the number of pages without splitting.
func (s *PDFSplitter) PageCount(pdfContent []byte) (int, error) {
	workDir := filepath.Join(s.tempDir, uuid.New().String())
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	inFile := filepath.Join(workDir, "count.pdf")
	if err := os.WriteFile(inFile, pdfContent, 0644); err != nil {
		return 0, fmt.Errorf("failed to write temp PDF file: %w", err)
	}

	pdfCtx, err := api.ReadContextFile(inFile)
	if err != nil {
		return 0, fmt.Errorf("failed to parse PDF document: %w", err)
	}
	return pdfCtx.PageCount, nil
}
