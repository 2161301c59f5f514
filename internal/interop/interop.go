// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package interop moves models between the bridge and external
// destinations: a Speckle-style stream platform and plain std files.
// The set of platforms is closed; Lookup is the only way in.
package interop

import (
	"context"
	"fmt"

	"github.com/pdiddy/staad-bridge/pkg/types"
)

// Platform moves models in and out of one external destination.
type Platform interface {
	Name() string

	// Export publishes the model and returns a locator for it: a
	// stream id for the stream platform, a file path for std files.
	Export(ctx context.Context, m *types.Model, dest string) (string, error)

	// Import fetches the model behind a locator.
	Import(ctx context.Context, locator string) (*types.Model, error)
}

// ExportError wraps a platform failure with the operation that failed.
type ExportError struct {
	Platform string
	Op       string
	Err      error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Platform, e.Op, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }

func exportErr(platform, op string, err error) *ExportError {
	return &ExportError{Platform: platform, Op: op, Err: err}
}

// Lookup resolves a platform by name. The table is closed; unknown
// names are an error, never a fallback.
func Lookup(name string, cfg types.ExportConfig) (Platform, error) {
	switch name {
	case "speckle":
		return NewStreamPlatform(cfg), nil
	case "staad":
		return &FilePlatform{}, nil
	default:
		return nil, fmt.Errorf("unknown platform %q (want speckle or staad)", name)
	}
}
