// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package interop

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/pdiddy/staad-bridge/internal/httputil"
	"github.com/pdiddy/staad-bridge/pkg/types"
)

// DefaultServer is the stream platform endpoint used when the
// configuration leaves the server unset.
const DefaultServer = "https://app.speckle.systems"

// StreamRef locates a published stream.
type StreamRef struct {
	ID  string `json:"id" yaml:"id"`
	URL string `json:"url" yaml:"url"`
}

// StreamPlatform publishes models as object streams and fetches them
// back. Objects are msgpack-encoded and carry uuid identifiers so a
// stream can be assembled out of order on the server side.
type StreamPlatform struct {
	http *http.Client
	cfg  types.ExportConfig
}

// NewStreamPlatform returns a platform for the configured server,
// falling back to DefaultServer.
func NewStreamPlatform(cfg types.ExportConfig) *StreamPlatform {
	if cfg.Server == "" {
		cfg.Server = DefaultServer
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &StreamPlatform{
		http: &http.Client{Timeout: timeout},
		cfg:  cfg,
	}
}

// Name returns the platform identifier used by Lookup.
func (p *StreamPlatform) Name() string { return "speckle" }

// wireObject is one entity on the wire. Kind discriminates the payload;
// the root object lists its children in model order.
type wireObject struct {
	ID      string `msgpack:"id"`
	Kind    string `msgpack:"kind"`
	Payload []byte `msgpack:"payload"`
}

// rootPayload carries model metadata and the ordered child object ids.
type rootPayload struct {
	Title      string   `msgpack:"title"`
	LengthUnit string   `msgpack:"length_unit"`
	ForceUnit  string   `msgpack:"force_unit"`
	Engineer   string   `msgpack:"engineer"`
	Part       string   `msgpack:"part"`
	ZUp        bool     `msgpack:"z_up"`
	Children   []string `msgpack:"children"`
}

const (
	kindRoot        = "root"
	kindNode        = "node"
	kindElement     = "element"
	kindMaterial    = "material"
	kindSection     = "section"
	kindLoadCase    = "loadcase"
	kindCombination = "combination"
	kindResult      = "result"
)

// Export creates a stream and uploads the model's object graph. dest,
// when non-empty, overrides the configured stream name.
func (p *StreamPlatform) Export(ctx context.Context, m *types.Model, dest string) (string, error) {
	name := p.cfg.StreamName
	if dest != "" {
		name = dest
	}
	if name == "" {
		name = m.Title
	}

	streamID, err := p.createStream(ctx, name)
	if err != nil {
		return "", err
	}

	objects, err := buildObjects(m)
	if err != nil {
		return "", exportErr(p.Name(), "encoding objects", err)
	}
	body, err := msgpack.Marshal(objects)
	if err != nil {
		return "", exportErr(p.Name(), "encoding objects", err)
	}

	req, err := http.NewRequest(http.MethodPost, p.cfg.Server+"/objects/"+streamID, bytes.NewReader(body))
	if err != nil {
		return "", exportErr(p.Name(), "uploading objects", err)
	}
	p.decorate(req)
	req.Header.Set("Content-Type", "application/msgpack")

	resp, err := httputil.DoWithRetry(ctx, p.http, req, 0)
	if err != nil {
		return "", exportErr(p.Name(), "uploading objects", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", exportErr(p.Name(), "uploading objects", fmt.Errorf("HTTP %d", resp.StatusCode))
	}
	return streamID, nil
}

// Ref expands a stream id into a browsable reference.
func (p *StreamPlatform) Ref(streamID string) StreamRef {
	return StreamRef{ID: streamID, URL: p.cfg.Server + "/streams/" + streamID}
}

func (p *StreamPlatform) createStream(ctx context.Context, name string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"name":        name,
		"description": p.cfg.StreamDescription,
	})
	if err != nil {
		return "", exportErr(p.Name(), "creating stream", err)
	}

	req, err := http.NewRequest(http.MethodPost, p.cfg.Server+"/streams", bytes.NewReader(payload))
	if err != nil {
		return "", exportErr(p.Name(), "creating stream", err)
	}
	p.decorate(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := httputil.DoWithRetry(ctx, p.http, req, 0)
	if err != nil {
		return "", exportErr(p.Name(), "creating stream", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", exportErr(p.Name(), "creating stream", fmt.Errorf("HTTP %d", resp.StatusCode))
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", exportErr(p.Name(), "creating stream", err)
	}
	if out.ID == "" {
		return "", exportErr(p.Name(), "creating stream", fmt.Errorf("response without stream id"))
	}
	return out.ID, nil
}

// Import fetches a stream's objects and rebuilds the model.
func (p *StreamPlatform) Import(ctx context.Context, streamID string) (*types.Model, error) {
	req, err := http.NewRequest(http.MethodGet, p.cfg.Server+"/objects/"+streamID, nil)
	if err != nil {
		return nil, exportErr(p.Name(), "fetching objects", err)
	}
	p.decorate(req)

	resp, err := httputil.DoWithRetry(ctx, p.http, req, 0)
	if err != nil {
		return nil, exportErr(p.Name(), "fetching objects", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, exportErr(p.Name(), "fetching objects", fmt.Errorf("HTTP %d", resp.StatusCode))
	}

	var objects []wireObject
	if err := msgpack.NewDecoder(resp.Body).Decode(&objects); err != nil {
		return nil, exportErr(p.Name(), "decoding objects", err)
	}

	m, err := assembleModel(objects)
	if err != nil {
		return nil, exportErr(p.Name(), "assembling model", err)
	}
	return m, nil
}

func (p *StreamPlatform) decorate(req *http.Request) {
	if p.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.Token)
	}
	if p.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", p.cfg.UserAgent)
	}
}

// buildObjects flattens the model into wire objects: one per entity in
// model order, closed by a root object listing the children.
func buildObjects(m *types.Model) ([]wireObject, error) {
	var objects []wireObject
	var children []string

	add := func(kind string, entity any) error {
		payload, err := msgpack.Marshal(entity)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", kind, err)
		}
		id := uuid.NewString()
		objects = append(objects, wireObject{ID: id, Kind: kind, Payload: payload})
		children = append(children, id)
		return nil
	}

	for _, n := range m.Nodes() {
		if err := add(kindNode, n); err != nil {
			return nil, err
		}
	}
	for _, e := range m.Elements() {
		if err := add(kindElement, e); err != nil {
			return nil, err
		}
	}
	for _, mat := range m.Materials() {
		if err := add(kindMaterial, mat); err != nil {
			return nil, err
		}
	}
	for _, s := range m.Sections() {
		if err := add(kindSection, s); err != nil {
			return nil, err
		}
	}
	for _, lc := range m.LoadCases() {
		if err := add(kindLoadCase, lc); err != nil {
			return nil, err
		}
	}
	for _, c := range m.Combinations() {
		if err := add(kindCombination, c); err != nil {
			return nil, err
		}
	}
	if r := m.Result(); r != nil {
		if err := add(kindResult, r); err != nil {
			return nil, err
		}
	}

	root := rootPayload{
		Title:      m.Title,
		LengthUnit: string(m.LengthUnit),
		ForceUnit:  string(m.ForceUnit),
		Engineer:   m.Engineer,
		Part:       m.Part,
		ZUp:        m.ZUp,
		Children:   children,
	}
	payload, err := msgpack.Marshal(root)
	if err != nil {
		return nil, fmt.Errorf("encoding root: %w", err)
	}
	objects = append(objects, wireObject{ID: uuid.NewString(), Kind: kindRoot, Payload: payload})
	return objects, nil
}

// assembleModel rebuilds a model from wire objects, walking the root's
// child list so entity order survives the trip.
func assembleModel(objects []wireObject) (*types.Model, error) {
	byID := make(map[string]wireObject, len(objects))
	var root *rootPayload
	for _, o := range objects {
		if o.Kind == kindRoot {
			root = &rootPayload{}
			if err := msgpack.Unmarshal(o.Payload, root); err != nil {
				return nil, fmt.Errorf("decoding root: %w", err)
			}
			continue
		}
		byID[o.ID] = o
	}
	if root == nil {
		return nil, fmt.Errorf("stream has no root object")
	}

	m := types.NewModel(root.Title)
	m.LengthUnit = types.LengthUnit(root.LengthUnit)
	m.ForceUnit = types.ForceUnit(root.ForceUnit)
	m.Engineer = root.Engineer
	m.Part = root.Part
	m.ZUp = root.ZUp

	for _, id := range root.Children {
		o, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("root references missing object %s", id)
		}
		if err := applyObject(m, o); err != nil {
			return nil, err
		}
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("inconsistent stream: %w", err)
	}
	return m, nil
}

func applyObject(m *types.Model, o wireObject) error {
	decode := func(v any) error {
		if err := msgpack.Unmarshal(o.Payload, v); err != nil {
			return fmt.Errorf("decoding %s object %s: %w", o.Kind, o.ID, err)
		}
		return nil
	}

	switch o.Kind {
	case kindNode:
		var n types.Node
		if err := decode(&n); err != nil {
			return err
		}
		return m.AddNode(n)
	case kindElement:
		var e types.Element
		if err := decode(&e); err != nil {
			return err
		}
		return m.AddElement(e)
	case kindMaterial:
		var mat types.Material
		if err := decode(&mat); err != nil {
			return err
		}
		return m.AddMaterial(mat)
	case kindSection:
		var s types.Section
		if err := decode(&s); err != nil {
			return err
		}
		return m.AddSection(s)
	case kindLoadCase:
		var lc types.LoadCase
		if err := decode(&lc); err != nil {
			return err
		}
		return m.AddLoadCase(lc)
	case kindCombination:
		var c types.LoadCombination
		if err := decode(&c); err != nil {
			return err
		}
		return m.AddCombination(c)
	case kindResult:
		var r types.AnalysisResult
		if err := decode(&r); err != nil {
			return err
		}
		m.AttachResult(&r)
		return nil
	default:
		return fmt.Errorf("unknown object kind %q", o.Kind)
	}
}
