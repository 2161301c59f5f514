// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/staad-bridge/internal/analysis"
	"github.com/pdiddy/staad-bridge/internal/interop"
	"github.com/pdiddy/staad-bridge/internal/ledger"
	"github.com/pdiddy/staad-bridge/pkg/types"
)

const sourceDoc = `STAAD SPACE Frame
UNIT METER NEWTON
JOINT COORDINATES
1 0 0 0; 2 5 0 0
MEMBER INCIDENCES
1 1 2
LOAD 1 LOADTYPE Dead TITLE DL
SELFWEIGHT Y -1
FINISH
`

func writeSource(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "frame.std")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

// fakePlatform records what was exported and serves a canned import.
// Safe for concurrent runs.
type fakePlatform struct {
	name        string
	locator     string
	exportErr   error
	importModel *types.Model
	importErr   error

	mu       sync.Mutex
	exported *types.Model
	dest     string
}

func (p *fakePlatform) Name() string { return p.name }

func (p *fakePlatform) Export(_ context.Context, m *types.Model, dest string) (string, error) {
	p.mu.Lock()
	p.exported = m
	p.dest = dest
	p.mu.Unlock()
	if p.exportErr != nil {
		return "", p.exportErr
	}
	return p.locator, nil
}

func (p *fakePlatform) Import(context.Context, string) (*types.Model, error) {
	return p.importModel, p.importErr
}

type fakeAnalyzer struct {
	result *types.AnalysisResult
	err    error
	onPoll analysis.PollFunc
	calls  int
}

func (a *fakeAnalyzer) Analyze(_ context.Context, m *types.Model) (*types.AnalysisResult, error) {
	a.calls++
	if a.onPoll != nil {
		a.onPoll(m.Title, 1, time.Millisecond)
	}
	return a.result, a.err
}

// useAnalyzer makes every run use the given fake.
func useAnalyzer(d *Dispatcher, a *fakeAnalyzer) {
	d.NewAnalyzer = func(onPoll analysis.PollFunc) Analyzer {
		a.onPoll = onPoll
		return a
	}
}

// collectObserver keeps every event for assertions.
type collectObserver struct {
	events []Event
}

func (o *collectObserver) Event(e Event) { o.events = append(o.events, e) }

func (o *collectObserver) messages() string {
	var parts []string
	for _, e := range o.events {
		parts = append(parts, fmt.Sprintf("[%s] %s", e.Stage, e.Message))
	}
	return strings.Join(parts, "\n")
}

func testDispatcher(t *testing.T, platform interop.Platform) (*Dispatcher, *ledger.Store, string) {
	t.Helper()
	outDir := t.TempDir()
	store, err := ledger.NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := types.BridgeConfig{Dispatch: types.DispatchConfig{OutputDir: outDir}}
	d := New(cfg, store)
	d.Lookup = func(name string) (interop.Platform, error) {
		if platform != nil && name == platform.Name() {
			return platform, nil
		}
		return nil, fmt.Errorf("unknown platform %q", name)
	}
	return d, store, outDir
}

func TestRun_SendToStream(t *testing.T) {
	platform := &fakePlatform{name: "speckle", locator: "stream-1"}
	d, store, outDir := testDispatcher(t, platform)
	obs := &collectObserver{}

	outcome, err := d.Run(context.Background(), Request{
		Direction: Send,
		Source:    writeSource(t, sourceDoc),
		Platform:  "speckle",
	}, obs)
	require.NoError(t, err)

	assert.Equal(t, "stream-1", outcome.StreamID)
	assert.Empty(t, outcome.OutputPath)
	require.NotNil(t, platform.exported)
	assert.Equal(t, "Frame", platform.exported.Title)

	// The YAML run summary lands in the output directory.
	require.NotEmpty(t, outcome.Summary)
	assert.Equal(t, outDir, filepath.Dir(outcome.Summary))
	data, err := os.ReadFile(outcome.Summary)
	require.NoError(t, err)
	assert.Contains(t, string(data), "stream-1")

	run, err := store.Get(outcome.RunID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusDone, run.Status)
	assert.Equal(t, "export", run.Stage)
	assert.Equal(t, "stream-1", run.Output)

	assert.Contains(t, obs.messages(), "[read] model \"Frame\"")
	assert.Contains(t, obs.messages(), "[export] exporting to speckle")
}

func TestRun_SendWithAnalysisAttachesResult(t *testing.T) {
	platform := &fakePlatform{name: "speckle", locator: "stream-1"}
	d, _, _ := testDispatcher(t, platform)

	result := &types.AnalysisResult{JobID: "job-1"}
	analyzer := &fakeAnalyzer{result: result}
	useAnalyzer(d, analyzer)

	outcome, err := d.Run(context.Background(), Request{
		Direction: Send,
		Source:    writeSource(t, sourceDoc),
		Platform:  "speckle",
		Analyze:   true,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, analyzer.calls)
	assert.Same(t, result, outcome.Result)
	// The exported model carries the result.
	require.NotNil(t, platform.exported.Result())
	assert.Equal(t, "job-1", platform.exported.Result().JobID)
}

func TestRun_AnalysisFailureIsStageTagged(t *testing.T) {
	platform := &fakePlatform{name: "speckle", locator: "stream-1"}
	d, store, _ := testDispatcher(t, platform)

	cause := errors.New("analysis timeout (job job-9)")
	useAnalyzer(d, &fakeAnalyzer{err: cause})

	outcome, err := d.Run(context.Background(), Request{
		Direction: Send,
		Source:    writeSource(t, sourceDoc),
		Platform:  "speckle",
		Analyze:   true,
	}, nil)

	var serr *StageError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, StageAnalyze, serr.Stage)
	assert.ErrorIs(t, err, cause)
	assert.Nil(t, platform.exported, "export must not run after analysis failure")

	run, lerr := store.Get(outcome.RunID)
	require.NoError(t, lerr)
	assert.Equal(t, ledger.StatusFailed, run.Status)
	assert.Equal(t, "analyze", run.Stage)
	assert.Contains(t, run.Error, "timeout")
}

func TestRun_ExportFailureStillOffersResult(t *testing.T) {
	platform := &fakePlatform{name: "speckle", exportErr: errors.New("server unreachable")}
	d, _, _ := testDispatcher(t, platform)

	result := &types.AnalysisResult{JobID: "job-2"}
	useAnalyzer(d, &fakeAnalyzer{result: result})

	outcome, err := d.Run(context.Background(), Request{
		Direction: Send,
		Source:    writeSource(t, sourceDoc),
		Platform:  "speckle",
		Analyze:   true,
	}, nil)

	var serr *StageError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, StageExport, serr.Stage)

	// The paid-for analysis survives the export failure.
	require.NotNil(t, outcome)
	assert.Same(t, result, outcome.Result)
}

func TestRun_ReadFailureReportsStage(t *testing.T) {
	d, _, _ := testDispatcher(t, nil)

	outcome, err := d.Run(context.Background(), Request{
		Direction: Send,
		Source:    filepath.Join(t.TempDir(), "missing.std"),
		Platform:  "speckle",
	}, nil)

	var serr *StageError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, StageRead, serr.Stage)
	assert.Nil(t, outcome)
}

func TestRun_SurfacesReaderWarnings(t *testing.T) {
	doc := strings.Replace(sourceDoc, "FINISH\n", "DEFINE ENVELOPE\nFINISH\n", 1)
	platform := &fakePlatform{name: "speckle", locator: "stream-1"}
	d, _, _ := testDispatcher(t, platform)
	obs := &collectObserver{}

	outcome, err := d.Run(context.Background(), Request{
		Direction: Send,
		Source:    writeSource(t, doc),
		Platform:  "speckle",
	}, obs)
	require.NoError(t, err)

	require.NotEmpty(t, outcome.Warnings)
	assert.Contains(t, obs.messages(), "warning:")
}

func TestRun_ReceiveWritesDocument(t *testing.T) {
	imported := types.NewModel("Roof Truss")
	require.NoError(t, imported.AddNode(types.Node{ID: 1}))
	require.NoError(t, imported.AddNode(types.Node{ID: 2, X: 3}))
	require.NoError(t, imported.AddElement(types.Element{ID: 1, Kind: types.ElementBeam, Nodes: []int{1, 2}}))

	platform := &fakePlatform{name: "speckle", importModel: imported}
	d, store, outDir := testDispatcher(t, platform)

	outcome, err := d.Run(context.Background(), Request{
		Direction: Receive,
		Source:    "stream-1",
		Platform:  "speckle",
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(outDir, "Roof_Truss.std"), outcome.OutputPath)
	reread, err := (&interop.FilePlatform{}).Import(context.Background(), outcome.OutputPath)
	require.NoError(t, err)
	assert.True(t, types.Equivalent(imported, reread, 1e-9))

	run, err := store.Get(outcome.RunID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusDone, run.Status)
	assert.Equal(t, outcome.OutputPath, run.Output)
}

func TestRun_SendToFilePlatformNormalizesDocument(t *testing.T) {
	d, _, outDir := testDispatcher(t, &interop.FilePlatform{})

	outcome, err := d.Run(context.Background(), Request{
		Direction: Send,
		Source:    writeSource(t, sourceDoc),
		Platform:  "staad",
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(outDir, "frame.std"), outcome.OutputPath)
	assert.Empty(t, outcome.StreamID)
	reread, err := (&interop.FilePlatform{}).Import(context.Background(), outcome.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, "Frame", reread.Title)
}

func TestGo_DeliversResultOnChannel(t *testing.T) {
	platform := &fakePlatform{name: "speckle", locator: "stream-1"}
	d, _, _ := testDispatcher(t, platform)

	ch := d.Go(context.Background(), Request{
		Direction: Send,
		Source:    writeSource(t, sourceDoc),
		Platform:  "speckle",
	}, nil)

	select {
	case res := <-ch:
		require.NoError(t, res.Err)
		assert.Equal(t, "stream-1", res.Outcome.StreamID)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish")
	}
}

func TestGo_ConcurrentRunsKeepPollEventsSeparate(t *testing.T) {
	platform := &fakePlatform{name: "speckle", locator: "stream-1"}
	d, _, _ := testDispatcher(t, platform)

	// Each run gets its own analyzer reporting the model title as the
	// job id, so a crossed poll callback would show up in the wrong
	// observer.
	d.NewAnalyzer = func(onPoll analysis.PollFunc) Analyzer {
		return &fakeAnalyzer{result: &types.AnalysisResult{JobID: "job"}, onPoll: onPoll}
	}

	frame := writeSource(t, sourceDoc)
	tower := writeSource(t, strings.Replace(sourceDoc, "STAAD SPACE Frame", "STAAD SPACE Tower", 1))

	obsFrame, obsTower := &collectObserver{}, &collectObserver{}
	chFrame := d.Go(context.Background(), Request{
		Direction: Send, Source: frame, Platform: "speckle", Analyze: true,
	}, obsFrame)
	chTower := d.Go(context.Background(), Request{
		Direction: Send, Source: tower, Platform: "speckle", Analyze: true,
	}, obsTower)

	for _, ch := range []<-chan Result{chFrame, chTower} {
		select {
		case res := <-ch:
			require.NoError(t, res.Err)
		case <-time.After(5 * time.Second):
			t.Fatal("run did not finish")
		}
	}

	assert.Contains(t, obsFrame.messages(), "job Frame still running")
	assert.NotContains(t, obsFrame.messages(), "Tower")
	assert.Contains(t, obsTower.messages(), "job Tower still running")
	assert.NotContains(t, obsTower.messages(), "Frame")
}

func TestArtifactName(t *testing.T) {
	m := types.NewModel("Portal Frame #2")
	assert.Equal(t, "Portal_Frame_2.std", artifactName(m, "stream-1"))

	m = types.NewModel("")
	assert.Equal(t, "stream-1.std", artifactName(m, "stream-1"))
}
