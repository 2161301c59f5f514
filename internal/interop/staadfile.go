// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package interop

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdiddy/staad-bridge/internal/staad"
	"github.com/pdiddy/staad-bridge/pkg/types"
)

// FilePlatform targets plain std files on disk: export writes the
// document, import parses one. The locator is a file path.
type FilePlatform struct{}

// Name returns the platform identifier used by Lookup.
func (p *FilePlatform) Name() string { return "staad" }

// Export renders the model as an std document at dest.
func (p *FilePlatform) Export(_ context.Context, m *types.Model, dest string) (string, error) {
	if dest == "" {
		return "", exportErr(p.Name(), "writing document", fmt.Errorf("no destination path"))
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", exportErr(p.Name(), "writing document", err)
	}

	f, err := os.Create(dest)
	if err != nil {
		return "", exportErr(p.Name(), "writing document", err)
	}
	if err := staad.NewWriter().Write(f, m); err != nil {
		f.Close()
		os.Remove(dest)
		return "", exportErr(p.Name(), "writing document", err)
	}
	if err := f.Close(); err != nil {
		return "", exportErr(p.Name(), "writing document", err)
	}
	return dest, nil
}

// Import parses the std document at locator.
func (p *FilePlatform) Import(_ context.Context, locator string) (*types.Model, error) {
	f, err := os.Open(locator)
	if err != nil {
		return nil, exportErr(p.Name(), "reading document", err)
	}
	defer f.Close()

	m, err := staad.NewReader().Read(f)
	if err != nil {
		return nil, exportErr(p.Name(), "reading document", err)
	}
	return m, nil
}
