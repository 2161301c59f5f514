// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dispatch

import (
	"fmt"
	"io"
)

// Event is one progress notification from a run.
type Event struct {
	Stage   Stage
	Message string
}

// Observer receives run progress. Implementations must be fast; events
// are delivered synchronously from the run goroutine.
type Observer interface {
	Event(e Event)
}

type nopObserver struct{}

func (nopObserver) Event(Event) {}

func ensureObserver(obs Observer) Observer {
	if obs == nil {
		return nopObserver{}
	}
	return obs
}

type writerObserver struct {
	w io.Writer
}

// WriterObserver prints events one per line, prefixed with the stage.
// The CLI hands it os.Stderr.
func WriterObserver(w io.Writer) Observer {
	return &writerObserver{w: w}
}

func (o *writerObserver) Event(e Event) {
	fmt.Fprintf(o.w, "[%s] %s\n", e.Stage, e.Message)
}
