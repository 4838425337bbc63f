// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/cv-evaluator/internal/secrets"
	"github.com/pdiddy/cv-evaluator/pkg/types"
)

// loadConfig decodes v over the built-in defaults. Every default is
// registered with v so that CV_EVALUATOR_<SECTION>_<KEY> environment
// variables override nested keys.
func loadConfig(v *viper.Viper) (types.Config, error) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	defaults := types.DefaultConfig()
	data, err := json.Marshal(defaults)
	if err != nil {
		return types.Config{}, fmt.Errorf("encoding defaults: %w", err)
	}
	var tree map[string]any
	if err := json.Unmarshal(data, &tree); err != nil {
		return types.Config{}, fmt.Errorf("decoding defaults: %w", err)
	}
	setDefaults(v, "", tree)
	// Keys omitted from the JSON form when empty.
	for _, key := range []string{"llm.api_key", "lookup.semantic_scholar_api_key", "lookup.openalex_email"} {
		v.SetDefault(key, "")
	}

	cfg := defaults
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, prefix string, tree map[string]any) {
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok {
			setDefaults(v, key, sub)
			continue
		}
		v.SetDefault(key, val)
	}
}

// providerSecrets names the secret holding each provider's API key.
var providerSecrets = map[string]string{
	types.ProviderOpenAI:    secrets.OpenAIAPIKey,
	types.ProviderAnthropic: secrets.AnthropicAPIKey,
	types.ProviderGemini:    secrets.GeminiAPIKey,
}

// applySecrets fills credentials missing from cfg from the secrets
// directory and their environment fallbacks.
func applySecrets(cfg *types.Config, dir string, log *zap.Logger) error {
	store, err := secrets.Load(dir, log)
	if err != nil {
		return err
	}
	if len(store) > 0 {
		log.Debug("loaded secrets", zap.Int("count", len(store)))
	}

	if cfg.LLM.APIKey == "" {
		if name, ok := providerSecrets[cfg.LLM.Provider]; ok {
			cfg.LLM.APIKey = store.Get(name)
		}
	}
	if cfg.Lookup.SemanticScholarAPIKey == "" {
		cfg.Lookup.SemanticScholarAPIKey = store.Get(secrets.SemanticScholarAPIKey)
	}
	if cfg.Lookup.OpenAlexEmail == "" {
		cfg.Lookup.OpenAlexEmail = store.Get(secrets.OpenAlexEmail)
	}
	return nil
}
