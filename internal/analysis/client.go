// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package analysis submits models to the remote analysis service and
// maps finished results back onto them. All waiting is bounded and
// cancellable; failures carry a classification so callers can decide
// between retrying, re-authenticating, and giving up.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/pdiddy/staad-bridge/internal/httputil"
	"github.com/pdiddy/staad-bridge/pkg/types"
)

// ErrorKind classifies a remote analysis failure.
type ErrorKind string

const (
	// KindTimeout means the job did not finish within the poll timeout.
	KindTimeout ErrorKind = "timeout"
	// KindRejected means the service refused or failed the job.
	KindRejected ErrorKind = "rejected"
	// KindTransportFailure means the retry budget was exhausted on
	// network errors.
	KindTransportFailure ErrorKind = "transport-failure"
	// KindUnauthorized means the token was missing or invalid. Never
	// retried.
	KindUnauthorized ErrorKind = "unauthorized"
	// KindResultMismatch means the result set does not line up with the
	// submitted model's entity identifiers.
	KindResultMismatch ErrorKind = "result-mismatch"
	// KindCancelled means the caller's context was cancelled while
	// waiting.
	KindCancelled ErrorKind = "cancelled"
)

// RemoteError is the error type for every failure mode of the client.
type RemoteError struct {
	Kind   ErrorKind
	JobID  string
	Reason string
	Err    error
}

func (e *RemoteError) Error() string {
	msg := fmt.Sprintf("analysis %s", e.Kind)
	if e.JobID != "" {
		msg += " (job " + e.JobID + ")"
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RemoteError) Unwrap() error { return e.Err }

func remoteErr(kind ErrorKind, jobID, reason string, err error) *RemoteError {
	return &RemoteError{Kind: kind, JobID: jobID, Reason: reason, Err: err}
}

// Poll defaults applied when the configuration leaves them zero.
const (
	defaultPollBase    = 2 * time.Second
	defaultPollMax     = 30 * time.Second
	defaultPollTimeout = 10 * time.Minute
	defaultHTTPTimeout = 30 * time.Second
)

// PollFunc is called before each wait between status polls.
type PollFunc func(jobID string, attempt int, wait time.Duration)

// Client talks to the analysis service. The zero value is not usable;
// construct with NewClient.
type Client struct {
	http *http.Client
	cfg  types.AnalysisConfig

	// OnPoll, when set, is called before each wait between status
	// polls. The dispatcher uses it for progress reporting.
	OnPoll PollFunc
}

// NewClient returns a client for the configured service, filling in
// poll defaults for unset durations.
func NewClient(cfg types.AnalysisConfig) *Client {
	if cfg.PollBase <= 0 {
		cfg.PollBase = defaultPollBase
	}
	if cfg.PollMax <= 0 {
		cfg.PollMax = defaultPollMax
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = defaultPollTimeout
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &Client{
		http: &http.Client{Timeout: timeout},
		cfg:  cfg,
	}
}

// modelEnvelope is the submission wire format: the model's entity
// collections flattened into msgpack-friendly slices.
type modelEnvelope struct {
	Title        string                   `msgpack:"title"`
	ZUp          bool                     `msgpack:"z_up"`
	Nodes        []*types.Node            `msgpack:"nodes"`
	Elements     []*types.Element         `msgpack:"elements"`
	Materials    []*types.Material        `msgpack:"materials"`
	Sections     []*types.Section         `msgpack:"sections"`
	LoadCases    []*types.LoadCase        `msgpack:"load_cases"`
	Combinations []*types.LoadCombination `msgpack:"combinations"`
}

// Submit sends the model for analysis and returns the job identifier.
func (c *Client) Submit(ctx context.Context, m *types.Model) (string, error) {
	env := modelEnvelope{
		Title:        m.Title,
		ZUp:          m.ZUp,
		Nodes:        m.Nodes(),
		Elements:     m.Elements(),
		Materials:    m.Materials(),
		Sections:     m.Sections(),
		LoadCases:    m.LoadCases(),
		Combinations: m.Combinations(),
	}
	body, err := msgpack.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("encoding model: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.cfg.BaseURL+"/jobs", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating submit request: %w", err)
	}
	c.decorate(req)
	req.Header.Set("Content-Type", "application/msgpack")

	resp, err := httputil.DoWithRetry(ctx, c.http, req, c.cfg.MaxRetries)
	if err != nil {
		if ctx.Err() != nil {
			return "", remoteErr(KindCancelled, "", "", ctx.Err())
		}
		return "", remoteErr(KindTransportFailure, "", "submitting job", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", remoteErr(KindUnauthorized, "", "service refused the token", nil)
	case resp.StatusCode >= 300:
		return "", remoteErr(KindRejected, "", bodyText(resp.Body, resp.StatusCode), nil)
	}

	var out struct {
		JobID string `json:"job_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", remoteErr(KindRejected, "", "undecodable submit response", err)
	}
	if out.JobID == "" {
		return "", remoteErr(KindRejected, "", "submit response without job id", nil)
	}
	return out.JobID, nil
}

// Await polls the job until it finishes. The interval starts at
// PollBase and doubles up to PollMax; the whole wait is bounded by
// PollTimeout. Cancelling the context abandons the wait and fires a
// best-effort remote job cancellation.
func (c *Client) Await(ctx context.Context, jobID string) error {
	timeout := time.NewTimer(c.cfg.PollTimeout)
	defer timeout.Stop()

	wait := c.cfg.PollBase
	for attempt := 1; ; attempt++ {
		status, reason, err := c.pollOnce(ctx, jobID)
		if err != nil {
			return err
		}
		switch status {
		case "done":
			return nil
		case "failed":
			return remoteErr(KindRejected, jobID, reason, nil)
		}

		if c.OnPoll != nil {
			c.OnPoll(jobID, attempt, wait)
		}
		select {
		case <-ctx.Done():
			c.cancelJob(jobID)
			return remoteErr(KindCancelled, jobID, "", ctx.Err())
		case <-timeout.C:
			return remoteErr(KindTimeout, jobID,
				fmt.Sprintf("job still %s after %v", status, c.cfg.PollTimeout), nil)
		case <-time.After(wait):
		}
		if wait *= 2; wait > c.cfg.PollMax {
			wait = c.cfg.PollMax
		}
	}
}

func (c *Client) pollOnce(ctx context.Context, jobID string) (status, reason string, err error) {
	req, err := http.NewRequest(http.MethodGet, c.cfg.BaseURL+"/jobs/"+jobID, nil)
	if err != nil {
		return "", "", fmt.Errorf("creating poll request: %w", err)
	}
	c.decorate(req)

	resp, err := httputil.DoWithRetry(ctx, c.http, req, c.cfg.MaxRetries)
	if err != nil {
		if ctx.Err() != nil {
			c.cancelJob(jobID)
			return "", "", remoteErr(KindCancelled, jobID, "", ctx.Err())
		}
		return "", "", remoteErr(KindTransportFailure, jobID, "polling job", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", "", remoteErr(KindUnauthorized, jobID, "service refused the token", nil)
	case resp.StatusCode >= 300:
		return "", "", remoteErr(KindRejected, jobID, bodyText(resp.Body, resp.StatusCode), nil)
	}

	var out struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", "", remoteErr(KindRejected, jobID, "undecodable status response", err)
	}
	return out.Status, out.Reason, nil
}

// cancelJob tells the service to abandon the job. The caller's context
// is already cancelled at this point, so a short fresh one is used, and
// failures are ignored.
func (c *Client) cancelJob(jobID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.cfg.BaseURL+"/jobs/"+jobID, nil)
	if err != nil {
		return
	}
	c.decorate(req)
	if resp, err := c.http.Do(req); err == nil {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}
}

// FetchResult downloads the finished result set and maps it onto the
// model's identifier space. The model itself is not modified.
func (c *Client) FetchResult(ctx context.Context, jobID string, m *types.Model) (*types.AnalysisResult, error) {
	req, err := http.NewRequest(http.MethodGet, c.cfg.BaseURL+"/jobs/"+jobID+"/result", nil)
	if err != nil {
		return nil, fmt.Errorf("creating result request: %w", err)
	}
	c.decorate(req)

	resp, err := httputil.DoWithRetry(ctx, c.http, req, c.cfg.MaxRetries)
	if err != nil {
		if ctx.Err() != nil {
			return nil, remoteErr(KindCancelled, jobID, "", ctx.Err())
		}
		return nil, remoteErr(KindTransportFailure, jobID, "fetching result", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, remoteErr(KindUnauthorized, jobID, "service refused the token", nil)
	case resp.StatusCode >= 300:
		return nil, remoteErr(KindRejected, jobID, bodyText(resp.Body, resp.StatusCode), nil)
	}

	var wire struct {
		Displacements map[int]map[int]types.Displacement `msgpack:"displacements"`
		Forces        map[int]map[int]types.MemberForces `msgpack:"forces"`
	}
	if err := msgpack.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, remoteErr(KindResultMismatch, jobID, "undecodable result payload", err)
	}

	result := &types.AnalysisResult{
		JobID:         jobID,
		Displacements: wire.Displacements,
		Forces:        wire.Forces,
	}
	if err := checkResultShape(m, result); err != nil {
		return nil, remoteErr(KindResultMismatch, jobID, err.Error(), nil)
	}
	return result, nil
}

// checkResultShape validates the result's identifier sets against the
// model in both directions: the result may not reference unknown
// entities, every submitted load case must be reported, and within
// each reported case every node has a displacement and every beam has
// forces.
func checkResultShape(m *types.Model, r *types.AnalysisResult) error {
	for caseID, perNode := range r.Displacements {
		if m.LoadCase(caseID) == nil && m.Combination(caseID) == nil {
			return fmt.Errorf("result references unknown load case %d", caseID)
		}
		for nodeID := range perNode {
			if m.Node(nodeID) == nil {
				return fmt.Errorf("result references unknown node %d", nodeID)
			}
		}
		for _, id := range m.NodeIDs() {
			if _, ok := perNode[id]; !ok {
				return fmt.Errorf("result for load case %d misses node %d", caseID, id)
			}
		}
	}
	for _, lc := range m.LoadCases() {
		if _, ok := r.Displacements[lc.ID]; !ok {
			return fmt.Errorf("result misses load case %d", lc.ID)
		}
	}
	for caseID, perElement := range r.Forces {
		if m.LoadCase(caseID) == nil && m.Combination(caseID) == nil {
			return fmt.Errorf("result references unknown load case %d", caseID)
		}
		for elementID := range perElement {
			e := m.Element(elementID)
			if e == nil {
				return fmt.Errorf("result references unknown element %d", elementID)
			}
			if e.Kind != types.ElementBeam {
				return fmt.Errorf("member forces reported for non-beam element %d", elementID)
			}
		}
		for _, id := range m.ElementIDs() {
			if m.Element(id).Kind != types.ElementBeam {
				continue
			}
			if _, ok := perElement[id]; !ok {
				return fmt.Errorf("forces for load case %d miss beam %d", caseID, id)
			}
		}
	}
	return nil
}

// Analyze runs the whole exchange: submit, wait, fetch, validate. On
// success the returned result is ready to attach to the model.
func (c *Client) Analyze(ctx context.Context, m *types.Model) (*types.AnalysisResult, error) {
	jobID, err := c.Submit(ctx, m)
	if err != nil {
		return nil, err
	}
	if err := c.Await(ctx, jobID); err != nil {
		return nil, err
	}
	return c.FetchResult(ctx, jobID, m)
}

func (c *Client) decorate(req *http.Request) {
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
}

func bodyText(r io.Reader, status int) string {
	data, _ := io.ReadAll(io.LimitReader(r, 512))
	text := strings.TrimSpace(string(data))
	if text == "" {
		return fmt.Sprintf("service returned HTTP %d", status)
	}
	return fmt.Sprintf("HTTP %d: %s", status, text)
}
