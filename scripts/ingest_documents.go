package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"alfredoptarigan/async-cv-evaluator/internal/config"
	applog "alfredoptarigan/async-cv-evaluator/internal/logger"
	"alfredoptarigan/async-cv-evaluator/internal/services"
)

type referenceDoc struct {
	Name    string
	DocType string
}

// Files are looked up in REFERENCE_PATH by base name with any of the
// supported extensions.
var referenceDocs = []referenceDoc{
	{Name: "job_description", DocType: "job_description"},
	{Name: "case_study_brief", DocType: "case_study"},
	{Name: "cv_rubric", DocType: "cv_rubric"},
	{Name: "project_rubric", DocType: "project_rubric"},
}

func main() {
	cfg, warnings := config.Load()

	zlog, err := applog.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		log.Fatalf("creating a logger: %v", err)
	}
	defer zlog.Sync()

	for _, w := range warnings {
		zlog.Warn(w)
	}

	ctx := context.Background()

	gemini, err := services.NewGeminiService(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.EmbedModel, cfg.Worker.RetryInitialDelay, zlog)
	if err != nil {
		zlog.Fatal("failed to initialize gemini", zap.Error(err))
	}

	qdrantService, err := services.NewQdrantService(cfg.Qdrant.URL, cfg.Qdrant.APIKey, cfg.Qdrant.Collection, cfg.Qdrant.VectorSize, zlog)
	if err != nil {
		zlog.Fatal("failed to initialize qdrant", zap.Error(err))
	}

	if err := qdrantService.InitCollection(ctx); err != nil {
		zlog.Fatal("failed to initialize collection", zap.Error(err))
	}

	pdfParser := services.NewPDFParserService()
	chunker := services.NewTextChunker()

	successCount, failCount := 0, 0

	for _, doc := range referenceDocs {
		dlog := zlog.With(zap.String("document", doc.Name), zap.String("doc_type", doc.DocType))

		path, ok := findReference(cfg.Storage.ReferencePath, doc.Name)
		if !ok {
			dlog.Warn("reference file not found, skipping", zap.String("dir", cfg.Storage.ReferencePath))
			failCount++
			continue
		}

		text, err := readReference(pdfParser, path)
		if err != nil {
			dlog.Error("failed to extract text", zap.String("path", path), zap.Error(err))
			failCount++
			continue
		}

		chunks := chunker.ChunkText(text, 1000, 200)
		dlog.Info("document chunked", zap.String("path", path), zap.Int("characters", len(text)), zap.Int("chunks", len(chunks)))

		if err := qdrantService.DeleteByDocType(ctx, doc.DocType); err != nil {
			dlog.Warn("failed to clear previous chunks", zap.Error(err))
		}

		stored := 0
		for i, chunk := range chunks {
			embedding, err := gemini.GenerateEmbedding(ctx, chunk)
			if err != nil {
				dlog.Error("failed to generate embedding", zap.Int("chunk", i+1), zap.Error(err))
				continue
			}

			docID := fmt.Sprintf("%s_chunk_%d", doc.Name, i)
			if err := qdrantService.UpsertDocument(ctx, docID, doc.DocType, chunk, embedding); err != nil {
				dlog.Error("failed to store chunk", zap.Int("chunk", i+1), zap.Error(err))
				continue
			}
			stored++
		}

		if stored == 0 {
			failCount++
			continue
		}

		dlog.Info("document ingested", zap.Int("stored", stored), zap.Int("chunks", len(chunks)))
		successCount++
	}

	zlog.Info("ingestion summary", zap.Int("successful", successCount), zap.Int("failed", failCount))

	if failCount > 0 {
		zlog.Warn("some documents failed to ingest")
		os.Exit(1)
	}
}

func findReference(dir, name string) (string, bool) {
	for _, ext := range []string{".txt", ".md", ".pdf"} {
		path := filepath.Join(dir, name+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

func readReference(pdfParser services.PDFParserService, path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		content, err := pdfParser.ExtractTextWithMetaData(path)
		if err != nil {
			return "", err
		}
		return content.Text, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
