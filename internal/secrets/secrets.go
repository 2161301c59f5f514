// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads service tokens from a directory of plain-text
// files, one token per file: the filename names the token and the
// trimmed contents are its value. The bridge looks for analysis-token
// and speckle-token; anything else in the directory is carried along
// untouched.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/staad-bridge/pkg/types"
)

// Key names the bridge looks for.
const (
	AnalysisToken = "analysis-token"
	SpeckleToken  = "speckle-token"
)

// Load collects every token file in dir into a map keyed by filename.
// A directory that does not exist yields an empty map, not an error;
// the bridge runs fine without stored tokens. A file that exists but
// cannot be read is skipped with a warning on stderr.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading token directory %s: %w", dir, err)
	}

	tokens := make(map[string]string)
	for _, entry := range entries {
		// Subdirectories and dotfiles (.gitkeep and friends) are not
		// token files.
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: skipping unreadable token file %s: %v\n", name, err)
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			tokens[name] = value
		}
	}

	return tokens, nil
}

// Apply copies known tokens into the configuration. Tokens already set
// in the configuration (from file or environment) win over the secrets
// directory.
func Apply(secrets map[string]string, cfg *types.BridgeConfig) {
	if cfg.Analysis.Token == "" {
		cfg.Analysis.Token = secrets[AnalysisToken]
	}
	if cfg.Export.Token == "" {
		cfg.Export.Token = secrets[SpeckleToken]
	}
}
