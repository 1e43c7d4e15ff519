package services

import (
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

type PDFParserService interface {
	ExtractText(filePath string) (string, error)
	ExtractTextWithMetaData(filePath string) (*PDFContent, error)
}

type PDFContent struct {
	Text      string
	PageCount int
	FilePath  string
}

type pdfParserService struct{}

func NewPDFParserService() PDFParserService {
	return &pdfParserService{}
}

// ExtractText returns the plain text of every readable page.
func (p *pdfParserService) ExtractText(filePath string) (string, error) {
	content, err := p.extract(filePath, false)
	if err != nil {
		return "", err
	}
	return content.Text, nil
}

// ExtractTextWithMetaData is ExtractText with page markers and a page count,
// which the ingestion script uses for chunking and progress logs.
func (p *pdfParserService) ExtractTextWithMetaData(filePath string) (*PDFContent, error) {
	return p.extract(filePath, true)
}

func (p *pdfParserService) extract(filePath string, pageMarkers bool) (*PDFContent, error) {
	if _, err := os.Stat(filePath); err != nil {
		return nil, fmt.Errorf("stat %s: %w", filePath, err)
	}

	f, r, err := pdf.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	var textBuilder strings.Builder
	totalPage := r.NumPage()

	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		// unreadable pages are skipped, the rest of the document still counts
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}

		if pageMarkers {
			fmt.Fprintf(&textBuilder, "--- Page %d ---\n", pageIndex)
		}
		textBuilder.WriteString(text)
		textBuilder.WriteString("\n\n")
	}

	text := textBuilder.String()
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("no text content found in PDF")
	}

	return &PDFContent{
		Text:      text,
		PageCount: totalPage,
		FilePath:  filePath,
	}, nil
}
