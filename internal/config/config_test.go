package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"EVALUATION_ENGINE", "WORKER_CONCURRENCY", "WORKER_QUEUE_SIZE", "RETRIEVAL_TIMEOUT", "QDRANT_URL", "DB_ENABLED"} {
		t.Setenv(key, "")
	}

	cfg, _ := Load()

	if cfg.Evaluation.Engine != EngineSimulated {
		t.Fatalf("expected simulated engine, got %q", cfg.Evaluation.Engine)
	}
	if cfg.Worker.Concurrency != 3 || cfg.Worker.QueueSize != 100 {
		t.Fatalf("unexpected worker defaults %+v", cfg.Worker)
	}
	if cfg.Evaluation.RetrievalTimeout != 10*time.Second {
		t.Fatalf("unexpected retrieval timeout %s", cfg.Evaluation.RetrievalTimeout)
	}
	if cfg.Qdrant.URL != "http://localhost:6334" {
		t.Fatalf("unexpected qdrant url %q", cfg.Qdrant.URL)
	}
	if cfg.Database.Enabled {
		t.Fatal("database must be disabled by default")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("EVALUATION_ENGINE", "Gemini")
	t.Setenv("WORKER_CONCURRENCY", "8")
	t.Setenv("EVALUATION_TIMEOUT", "45s")
	t.Setenv("DB_ENABLED", "true")

	cfg, _ := Load()

	if cfg.Evaluation.Engine != EngineGemini {
		t.Fatalf("expected gemini engine, got %q", cfg.Evaluation.Engine)
	}
	if cfg.Worker.Concurrency != 8 {
		t.Fatalf("expected concurrency 8, got %d", cfg.Worker.Concurrency)
	}
	if cfg.Evaluation.EvaluationTimeout != 45*time.Second {
		t.Fatalf("expected 45s, got %s", cfg.Evaluation.EvaluationTimeout)
	}
	if !cfg.Database.Enabled {
		t.Fatal("expected database enabled")
	}
}

func TestLoad_UnknownEngineFallsBack(t *testing.T) {
	t.Setenv("EVALUATION_ENGINE", "openai")

	cfg, warnings := Load()

	if cfg.Evaluation.Engine != EngineSimulated {
		t.Fatalf("expected fallback to simulated, got %q", cfg.Evaluation.Engine)
	}
	found := false
	for _, w := range warnings {
		if strings.Contains(w, "openai") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a warning naming the engine, got %v", warnings)
	}
}

func TestGetEnvAsDuration_InvalidUsesDefault(t *testing.T) {
	t.Setenv("LOAD_TIMEOUT", "soon")

	if got := getEnvAsDuration("LOAD_TIMEOUT", "30s"); got != 30*time.Second {
		t.Fatalf("expected 30s, got %s", got)
	}
}
