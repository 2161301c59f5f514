// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package interop

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/staad-bridge/internal/httputil"
	"github.com/pdiddy/staad-bridge/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = 1 * time.Millisecond
}

func exportModel(t *testing.T) *types.Model {
	t.Helper()
	m := types.NewModel("Warehouse")
	m.ZUp = true
	require.NoError(t, m.AddNode(types.Node{ID: 1, Support: &types.Support{Kind: types.SupportFixed}}))
	require.NoError(t, m.AddNode(types.Node{ID: 2, X: 6}))
	require.NoError(t, m.AddNode(types.Node{ID: 3, X: 6, Y: 4}))
	require.NoError(t, m.AddElement(types.Element{ID: 1, Kind: types.ElementBeam, Nodes: []int{1, 2}}))
	require.NoError(t, m.AddElement(types.Element{ID: 2, Kind: types.ElementPlate, Nodes: []int{1, 2, 3}}))
	require.NoError(t, m.AddMaterial(types.Material{Name: "STEEL", Elastic: 2.05e11, Poisson: 0.3}))
	require.NoError(t, m.AddSection(types.Section{Name: "IPE200"}))
	m.Element(1).Material = "STEEL"
	m.Element(1).Section = "IPE200"
	require.NoError(t, m.AddLoadCase(types.LoadCase{ID: 1, Kind: types.LoadDead, Title: "DL",
		SelfWeight: &types.SelfWeight{Direction: types.DirGZ, Factor: -1}}))
	require.NoError(t, m.AddCombination(types.LoadCombination{ID: 5, Title: "ULS",
		Factors: []types.CaseFactor{{CaseID: 1, Factor: 1.35}}}))
	return m
}

// streamServer fakes the platform: one stream, object payload kept in
// memory.
type streamServer struct {
	mu      sync.Mutex
	objects []byte
	creates int
}

func (s *streamServer) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /streams", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotEmpty(t, body["name"])

		s.mu.Lock()
		s.creates++
		s.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]string{"id": "stream-1"})
	})
	mux.HandleFunc("POST /objects/stream-1", func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		s.mu.Lock()
		s.objects = data
		s.mu.Unlock()
	})
	mux.HandleFunc("GET /objects/stream-1", func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		w.Write(s.objects)
	})
	return mux
}

func streamConfig(server string) types.ExportConfig {
	cfg := types.ExportConfig{
		Server:     server,
		Token:      "tok",
		StreamName: "warehouse model",
	}
	cfg.Timeout = time.Second
	return cfg
}

func TestStreamPlatform_ExportImportRoundTrip(t *testing.T) {
	srv := &streamServer{}
	ts := httptest.NewServer(srv.handler(t))
	defer ts.Close()

	p := NewStreamPlatform(streamConfig(ts.URL))
	original := exportModel(t)
	original.AttachResult(&types.AnalysisResult{JobID: "job-1",
		Displacements: map[int]map[int]types.Displacement{1: {1: {DY: -0.004}}}})

	locator, err := p.Export(context.Background(), original, "")
	require.NoError(t, err)
	assert.Equal(t, "stream-1", locator)
	assert.Equal(t, 1, srv.creates)

	ref := p.Ref(locator)
	assert.Equal(t, ts.URL+"/streams/stream-1", ref.URL)

	imported, err := p.Import(context.Background(), locator)
	require.NoError(t, err)
	assert.True(t, types.Equivalent(original, imported, 1e-12))

	// The attached result travels with the stream.
	require.NotNil(t, imported.Result())
	assert.Equal(t, "job-1", imported.Result().JobID)
	assert.Equal(t, -0.004, imported.Result().Displacements[1][1].DY)
}

func TestStreamPlatform_CreateStreamFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	p := NewStreamPlatform(streamConfig(ts.URL))
	_, err := p.Export(context.Background(), exportModel(t), "")

	var xerr *ExportError
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, "speckle", xerr.Platform)
	assert.Equal(t, "creating stream", xerr.Op)
}

func TestStreamPlatform_ImportRejectsRootlessStream(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			// An empty msgpack array: no objects at all.
			w.Write([]byte{0x90})
		default:
			json.NewEncoder(w).Encode(map[string]string{"id": "stream-1"})
		}
	}))
	defer ts.Close()

	p := NewStreamPlatform(streamConfig(ts.URL))
	_, err := p.Import(context.Background(), "stream-1")
	assert.ErrorContains(t, err, "no root object")
}

func TestFilePlatform_RoundTrip(t *testing.T) {
	p := &FilePlatform{}
	original := exportModel(t)

	dest := filepath.Join(t.TempDir(), "out", "warehouse.std")
	locator, err := p.Export(context.Background(), original, dest)
	require.NoError(t, err)
	assert.Equal(t, dest, locator)

	imported, err := p.Import(context.Background(), locator)
	require.NoError(t, err)
	assert.True(t, types.Equivalent(original, imported, 1e-9))
}

func TestFilePlatform_ExportRequiresDestination(t *testing.T) {
	p := &FilePlatform{}
	_, err := p.Export(context.Background(), exportModel(t), "")

	var xerr *ExportError
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, "staad", xerr.Platform)
}

func TestLookup(t *testing.T) {
	cfg := types.ExportConfig{}

	p, err := Lookup("speckle", cfg)
	require.NoError(t, err)
	assert.Equal(t, "speckle", p.Name())

	p, err = Lookup("staad", cfg)
	require.NoError(t, err)
	assert.Equal(t, "staad", p.Name())

	_, err = Lookup("revit", cfg)
	assert.ErrorContains(t, err, `unknown platform "revit"`)
}
