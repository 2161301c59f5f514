// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dispatch drives a bridge run end to end: read the model,
// optionally analyze it remotely, and hand it to the target platform.
// A run owns its model exclusively; concurrency lives at the dispatch
// boundary, never inside the entity collections.
package dispatch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/staad-bridge/internal/analysis"
	"github.com/pdiddy/staad-bridge/internal/interop"
	"github.com/pdiddy/staad-bridge/internal/ledger"
	"github.com/pdiddy/staad-bridge/internal/staad"
	"github.com/pdiddy/staad-bridge/pkg/types"
)

// Direction selects which way a run moves a model.
type Direction string

const (
	// Send reads a local std document and pushes it to a platform.
	Send Direction = "send"
	// Receive pulls a model from a platform and writes a std document.
	Receive Direction = "receive"
)

// Stage names the phase a run is in. The set is closed: read, analyze,
// export.
type Stage string

const (
	StageRead    Stage = "read"
	StageAnalyze Stage = "analyze"
	StageExport  Stage = "export"
)

// StageError tags a failure with the stage that produced it. The
// underlying error is preserved verbatim.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}

// Request describes one run.
type Request struct {
	Direction Direction

	// Source is the std file path (Send) or the platform locator
	// (Receive).
	Source string

	// Platform names the export target (Send) or origin (Receive).
	Platform string

	// Analyze runs the remote analysis between read and export.
	Analyze bool

	// OutputDir overrides the configured output directory.
	OutputDir string

	// StreamName overrides the configured stream name for Send.
	StreamName string
}

// Outcome reports what a run produced. On an export failure after a
// successful analysis the outcome still carries the result, so the
// caller can re-export without paying for the analysis again.
type Outcome struct {
	RunID      string                `yaml:"run_id"`
	Direction  Direction             `yaml:"direction"`
	Platform   string                `yaml:"platform"`
	Source     string                `yaml:"source"`
	OutputPath string                `yaml:"output_path,omitempty"`
	StreamID   string                `yaml:"stream_id,omitempty"`
	Summary    string                `yaml:"summary,omitempty"`
	Warnings   []string              `yaml:"warnings,omitempty"`
	Result     *types.AnalysisResult `yaml:"-"`
}

// Analyzer is the remote analysis dependency; satisfied by
// analysis.Client.
type Analyzer interface {
	Analyze(ctx context.Context, m *types.Model) (*types.AnalysisResult, error)
}

// Dispatcher runs requests. The NewAnalyzer and Lookup fields are set
// by New and may be substituted in tests.
type Dispatcher struct {
	cfg   types.BridgeConfig
	store *ledger.Store

	// NewAnalyzer builds the analyzer for one run. Every run gets its
	// own, with its own poll callback, so concurrent runs share no
	// mutable state.
	NewAnalyzer func(onPoll analysis.PollFunc) Analyzer
	Lookup      func(name string) (interop.Platform, error)
}

// New returns a dispatcher over the given configuration. store may be
// nil to skip run recording.
func New(cfg types.BridgeConfig, store *ledger.Store) *Dispatcher {
	return &Dispatcher{
		cfg:   cfg,
		store: store,
		NewAnalyzer: func(onPoll analysis.PollFunc) Analyzer {
			client := analysis.NewClient(cfg.Analysis)
			client.OnPoll = onPoll
			return client
		},
		Lookup: func(name string) (interop.Platform, error) {
			return interop.Lookup(name, cfg.Export)
		},
	}
}

// Result pairs an outcome with its error for the asynchronous form.
type Result struct {
	Outcome *Outcome
	Err     error
}

// Go runs the request on its own goroutine and delivers the result on
// the returned channel. Cancellation goes through ctx.
func (d *Dispatcher) Go(ctx context.Context, req Request, obs Observer) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		outcome, err := d.Run(ctx, req, obs)
		ch <- Result{Outcome: outcome, Err: err}
	}()
	return ch
}

// Run executes the request synchronously: read, optional analyze,
// export, with the run recorded in the ledger and a YAML summary
// written next to the output artifact. The returned outcome is non-nil
// whenever any stage made progress worth keeping.
func (d *Dispatcher) Run(ctx context.Context, req Request, obs Observer) (*Outcome, error) {
	obs = ensureObserver(obs)

	outcome := &Outcome{
		RunID:     uuid.NewString(),
		Direction: req.Direction,
		Platform:  req.Platform,
		Source:    req.Source,
	}
	if req.Direction != Send && req.Direction != Receive {
		return nil, fmt.Errorf("unknown direction %q", req.Direction)
	}

	outputDir, err := d.outputDir(req)
	if err != nil {
		return nil, err
	}

	d.recordStart(outcome)
	finish := func(stage Stage, runErr error) (*Outcome, error) {
		status := ledger.StatusDone
		errText := ""
		if runErr != nil {
			status = ledger.StatusFailed
			errText = runErr.Error()
		}
		d.recordFinish(outcome, stage, status, errText)
		if runErr != nil {
			obs.Event(Event{Stage: stage, Message: "failed: " + runErr.Error()})
			return outcome, runErr
		}
		return outcome, nil
	}

	// Read.
	obs.Event(Event{Stage: StageRead, Message: "reading " + req.Source})
	m, err := d.read(ctx, req)
	if err != nil {
		_, werr := finish(StageRead, stageErr(StageRead, err))
		return nil, werr
	}
	outcome.Warnings = m.warnings
	for _, w := range m.warnings {
		obs.Event(Event{Stage: StageRead, Message: "warning: " + w})
	}
	obs.Event(Event{Stage: StageRead, Message: entitySummary(m.model)})

	// Analyze.
	if req.Analyze {
		obs.Event(Event{Stage: StageAnalyze, Message: "submitting model for analysis"})
		analyzer := d.NewAnalyzer(func(jobID string, attempt int, wait time.Duration) {
			obs.Event(Event{
				Stage:   StageAnalyze,
				Message: fmt.Sprintf("job %s still running, next poll in %v (poll %d)", jobID, wait, attempt),
			})
		})
		result, err := analyzer.Analyze(ctx, m.model)
		if err != nil {
			return finish(StageAnalyze, stageErr(StageAnalyze, err))
		}
		m.model.AttachResult(result)
		outcome.Result = result
		obs.Event(Event{Stage: StageAnalyze, Message: "analysis finished (job " + result.JobID + ")"})
	}

	// Export.
	if err := d.export(ctx, req, m.model, outputDir, outcome, obs); err != nil {
		return finish(StageExport, stageErr(StageExport, err))
	}

	if path, err := d.writeSummary(outputDir, outcome); err == nil {
		outcome.Summary = path
	} else {
		obs.Event(Event{Stage: StageExport, Message: "warning: summary not written: " + err.Error()})
	}

	obs.Event(Event{Stage: StageExport, Message: "run " + outcome.RunID + " complete"})
	return finish(StageExport, nil)
}

// readModel bundles a parsed model with the reader warnings that came
// with it.
type readModel struct {
	model    *types.Model
	warnings []string
}

func (d *Dispatcher) read(ctx context.Context, req Request) (*readModel, error) {
	switch req.Direction {
	case Send:
		f, err := os.Open(req.Source)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		r := staad.NewReader()
		m, err := r.Read(f)
		if err != nil {
			return nil, err
		}
		return &readModel{model: m, warnings: r.Warnings()}, nil

	default: // Receive
		platform, err := d.Lookup(req.Platform)
		if err != nil {
			return nil, err
		}
		m, err := platform.Import(ctx, req.Source)
		if err != nil {
			return nil, err
		}
		return &readModel{model: m}, nil
	}
}

func (d *Dispatcher) export(ctx context.Context, req Request, m *types.Model, outputDir string, outcome *Outcome, obs Observer) error {
	switch req.Direction {
	case Send:
		platform, err := d.Lookup(req.Platform)
		if err != nil {
			return err
		}
		dest := req.StreamName
		if platform.Name() == "staad" {
			dest = filepath.Join(outputDir, filepath.Base(req.Source))
		}
		obs.Event(Event{Stage: StageExport, Message: "exporting to " + platform.Name()})
		locator, err := platform.Export(ctx, m, dest)
		if err != nil {
			return err
		}
		if platform.Name() == "staad" {
			outcome.OutputPath = locator
		} else {
			outcome.StreamID = locator
		}
		return nil

	default: // Receive: materialize as a std document.
		dest := filepath.Join(outputDir, artifactName(m, req.Source))
		obs.Event(Event{Stage: StageExport, Message: "writing " + dest})
		path, err := (&interop.FilePlatform{}).Export(ctx, m, dest)
		if err != nil {
			return err
		}
		outcome.OutputPath = path
		return nil
	}
}

// DefaultOutputDir is the well-known artifact location under the
// user's documents area, used when neither the request nor the
// configuration names one.
func DefaultOutputDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving output directory: %w", err)
	}
	return filepath.Join(home, "Documents", "staad-bridge"), nil
}

// outputDir resolves the artifact directory: request override, then
// configuration, then the well-known documents location.
func (d *Dispatcher) outputDir(req Request) (string, error) {
	dir := req.OutputDir
	if dir == "" {
		dir = d.cfg.Dispatch.OutputDir
	}
	if dir == "" {
		var err error
		if dir, err = DefaultOutputDir(); err != nil {
			return "", err
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	return dir, nil
}

// artifactName derives a file name for a received model from its title,
// falling back to the locator.
func artifactName(m *types.Model, locator string) string {
	name := m.Title
	if name == "" {
		name = filepath.Base(locator)
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		b.WriteString("model")
	}
	return b.String() + ".std"
}

func entitySummary(m *types.Model) string {
	return fmt.Sprintf("model %q: %d nodes, %d elements, %d load cases",
		m.Title, len(m.Nodes()), len(m.Elements()), len(m.LoadCases()))
}

// runSummary is the YAML document written next to the artifact.
type runSummary struct {
	Run        *Outcome  `yaml:"run"`
	FinishedAt time.Time `yaml:"finished_at"`
}

func (d *Dispatcher) writeSummary(outputDir string, outcome *Outcome) (string, error) {
	data, err := yaml.Marshal(runSummary{Run: outcome, FinishedAt: time.Now().UTC()})
	if err != nil {
		return "", err
	}
	path := filepath.Join(outputDir, outcome.RunID+".yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (d *Dispatcher) recordStart(outcome *Outcome) {
	if d.store == nil {
		return
	}
	// Ledger trouble must not block the run itself.
	_ = d.store.Begin(ledger.Run{
		ID:        outcome.RunID,
		Direction: string(outcome.Direction),
		Platform:  outcome.Platform,
		Source:    outcome.Source,
		Stage:     string(StageRead),
	})
}

func (d *Dispatcher) recordFinish(outcome *Outcome, stage Stage, status ledger.Status, errText string) {
	if d.store == nil {
		return
	}
	output := outcome.OutputPath
	if output == "" {
		output = outcome.StreamID
	}
	_ = d.store.Finish(outcome.RunID, string(stage), output, status, errText)
}
