package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/async-cv-evaluator/internal/repositories"
)

// MaxDocumentChars bounds the text handed to the evaluation engine.
const MaxDocumentChars = 10000

// DocumentLoader turns an uploaded document reference into text. Load never
// fails: any problem yields an empty string.
type DocumentLoader interface {
	Load(ctx context.Context, ref string) string
}

type documentLoader struct {
	docRepo   repositories.DocumentRepository
	storage   StorageService
	pdfParser PDFParserService
	maxChars  int
	log       *zap.Logger
}

func NewDocumentLoader(
	docRepo repositories.DocumentRepository,
	storage StorageService,
	pdfParser PDFParserService,
	log *zap.Logger,
) DocumentLoader {
	return &documentLoader{
		docRepo:   docRepo,
		storage:   storage,
		pdfParser: pdfParser,
		maxChars:  MaxDocumentChars,
		log:       log,
	}
}

// Load implements DocumentLoader.
func (l *documentLoader) Load(ctx context.Context, ref string) string {
	text, err := l.load(ctx, ref)
	if err != nil {
		l.log.Warn("document unavailable, continuing with empty text",
			zap.String("document", ref),
			zap.Error(err),
		)
		return ""
	}
	return truncateRunes(text, l.maxChars)
}

func (l *documentLoader) load(ctx context.Context, ref string) (string, error) {
	path, err := l.resolve(ref)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return l.pdfParser.ExtractText(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	return strings.ToValidUTF8(string(data), ""), nil
}

// resolve prefers the document registry; references that are not registered
// ids are treated as file names inside the upload directory.
func (l *documentLoader) resolve(ref string) (string, error) {
	if id, err := uuid.Parse(ref); err == nil && l.docRepo != nil {
		doc, err := l.docRepo.FindByID(id)
		if err == nil {
			return doc.FilePath, nil
		}
		l.log.Debug("document not registered, trying upload directory", zap.String("document", ref), zap.Error(err))
	}
	return l.storage.ResolvePath(ref)
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	// byte length bounds rune count, so short strings skip the conversion
	if len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
