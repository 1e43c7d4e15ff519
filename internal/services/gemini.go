package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const maxEmbeddingInput = 40000

type GeminiService interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	GenerateText(ctx context.Context, prompt string, temperature float32) (string, error)
	GenerateTextWithRetry(ctx context.Context, prompt string, temperature float32, maxRetries int) (string, error)
}

type geminiService struct {
	client       *genai.Client
	modelName    string
	embedModel   string
	initialDelay time.Duration
	log          *zap.Logger
}

func NewGeminiService(ctx context.Context, apiKey, model, embedModel string, initialDelay time.Duration, log *zap.Logger) (GeminiService, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	if initialDelay <= 0 {
		initialDelay = time.Second
	}

	return &geminiService{
		client:       client,
		modelName:    model,
		embedModel:   embedModel,
		initialDelay: initialDelay,
		log:          log,
	}, nil
}

// GenerateEmbedding implements GeminiService.
func (g *geminiService) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if len(text) > maxEmbeddingInput {
		text = strings.ToValidUTF8(text[:maxEmbeddingInput], "")
	}

	result, err := g.client.Models.EmbedContent(ctx, g.embedModel, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	if result == nil || len(result.Embeddings) == 0 || result.Embeddings[0] == nil {
		return nil, errors.New("empty embedding result")
	}

	return result.Embeddings[0].Values, nil
}

// GenerateText implements GeminiService.
func (g *geminiService) GenerateText(ctx context.Context, prompt string, temperature float32) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: 4096,
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if resp == nil {
		return "", errors.New("no response generated (nil response)")
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("no text content in response")
	}

	return text, nil
}

// GenerateTextWithRetry implements GeminiService.
func (g *geminiService) GenerateTextWithRetry(ctx context.Context, prompt string, temperature float32, maxRetries int) (string, error) {
	if maxRetries <= 0 {
		maxRetries = 1
	}

	var text string
	err := retry.Do(
		func() error {
			var err error
			text, err = g.GenerateText(ctx, prompt, temperature)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(uint(maxRetries)),
		retry.DelayType(retry.BackOffDelay),
		retry.Delay(g.initialDelay),
		retry.MaxDelay(30*time.Second),
		retry.OnRetry(func(n uint, err error) {
			g.log.Warn("gemini request failed, retrying",
				zap.Uint("attempt", n+1),
				zap.Int("max_attempts", maxRetries),
				zap.Error(err),
			)
		}),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return "", fmt.Errorf("failed after %d attempts: %w", maxRetries, err)
	}

	return text, nil
}
