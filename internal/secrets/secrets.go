// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets resolves API credentials. Credentials come from a directory
// of plain-text files (filename is the key, trimmed contents are the value)
// and fall back to the conventional environment variable for each key.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/deep-research/pkg/types"
)

// Credential names one secret: its file in the secrets directory and its
// environment variable.
type Credential struct {
	File string
	Env  string
}

// Known credentials.
var (
	SerpAPI          = Credential{File: "serpapi-api-key", Env: "SERPAPI_API_KEY"}
	Pubmed           = Credential{File: "pubmed-api-key", Env: "PUBMED_API_KEY"}
	OpenAI           = Credential{File: "openai-api-key", Env: "OPENAI_API_KEY"}
	Anthropic        = Credential{File: "anthropic-api-key", Env: "ANTHROPIC_API_KEY"}
	Notion           = Credential{File: "notion-api-key", Env: "NOTION_API_KEY"}
	NotionDatabaseID = Credential{File: "notion-database-id", Env: "NOTION_DATABASE_ID"}
)

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged and skipped.
func Load(dir string, logger *zap.Logger) (map[string]string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn("could not read secret", zap.String("name", name), zap.Error(err))
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[name] = value
		}
	}
	return secrets, nil
}

// Store resolves credentials from loaded files first, then the environment.
type Store struct {
	files  map[string]string
	getenv func(string) string
}

// NewStore wraps the files returned by Load.
func NewStore(files map[string]string) *Store {
	if files == nil {
		files = map[string]string{}
	}
	return &Store{files: files, getenv: os.Getenv}
}

// Get returns the credential value, or "" when it is not configured.
func (s *Store) Get(c Credential) string {
	if v, ok := s.files[c.File]; ok {
		return v
	}
	return strings.TrimSpace(s.getenv(c.Env))
}

// Require returns the credential value or a ConfigurationError naming the
// environment variable the component needs.
func (s *Store) Require(c Credential, component string) (string, error) {
	if v := s.Get(c); v != "" {
		return v, nil
	}
	return "", &types.ConfigurationError{Variable: c.Env, Component: component}
}

// FileKeys returns the sorted names of secrets loaded from files.
func (s *Store) FileKeys() []string {
	keys := make([]string, 0, len(s.files))
	for k := range s.files {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
