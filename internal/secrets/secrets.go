// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys from a directory of plain-text files, one
// secret per file: the filename is the key name and the trimmed contents are
// the value. Keys missing from the directory fall back to environment
// variables.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Key file names.
const (
	SemanticScholarAPIKey = "semantic-scholar-api-key"
	OpenAIAPIKey          = "openai-api-key"
	AnthropicAPIKey       = "anthropic-api-key"
	GeminiAPIKey          = "gemini-api-key"
	OpenAlexEmail         = "openalex-email"
)

// EnvFallbacks maps key names to the environment variables consulted when
// the secrets directory does not provide them.
var EnvFallbacks = map[string]string{
	SemanticScholarAPIKey: "S2_API_KEY",
	OpenAIAPIKey:          "OPENAI_API_KEY",
	AnthropicAPIKey:       "ANTHROPIC_API_KEY",
	GeminiAPIKey:          "GEMINI_API_KEY",
	OpenAlexEmail:         "OPENALEX_EMAIL",
}

// Store holds loaded secrets.
type Store map[string]string

// Load reads all files in dir and returns a Store of filename to trimmed
// contents. A missing directory is not an error. Unreadable files are logged
// and skipped.
func Load(dir string, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Store{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	s := make(Store)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn("could not read secret", zap.String("name", name), zap.Error(err))
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			s[name] = value
		}
	}

	return s, nil
}

// Get returns the named secret, falling back to its environment variable.
func (s Store) Get(name string) string {
	if v := s[name]; v != "" {
		return v
	}
	if env, ok := EnvFallbacks[name]; ok {
		return strings.TrimSpace(os.Getenv(env))
	}
	return ""
}
