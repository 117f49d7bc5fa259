package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/joescharf/codereview/internal/llm"
	"github.com/joescharf/codereview/internal/review"
	"github.com/joescharf/codereview/internal/store"
)

// newGenerator creates a model client from config/env, or returns nil if no API key is configured.
func newGenerator() llm.Generator {
	apiKey := viper.GetString("anthropic.api_key")
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil
	}
	return llm.NewClient(apiKey, viper.GetString("anthropic.model"))
}

// newService wires the review service. History is opened only when enabled;
// a store that fails to open degrades to no history.
func newService() (*review.Service, store.Store, error) {
	cfg := review.DefaultConfig()

	var s store.Store
	if cfg.RecordHistory {
		var err error
		if s, err = getStore(); err != nil {
			ui.Warning("Review history unavailable: %v", err)
			s = nil
		}
	}

	svc, err := review.NewService(newGenerator(), s, cfg, newLogger())
	if err != nil {
		return nil, nil, fmt.Errorf("create review service: %w", err)
	}
	return svc, s, nil
}
