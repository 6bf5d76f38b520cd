// Package remote solves models on another shift-optimizer instance over HTTP
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/shift-optimizer/pkg/core/lpmodel"
	"github.com/jakechorley/shift-optimizer/pkg/solver"
)

// SolvePath is the endpoint the remote server exposes
const SolvePath = "/api/solve"

// Backend posts LP text to a remote solve endpoint
type Backend struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a remote backend. Request deadlines come from the caller's ctx.
func New(baseURL string, httpClient *http.Client, logger *zap.Logger) *Backend {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backend{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

func (b *Backend) Name() string {
	return "remote"
}

func (b *Backend) Solve(ctx context.Context, m *lpmodel.Model) (*lpmodel.Solution, error) {
	body, err := json.Marshal(solver.NewSolveRequest(m))
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+SolvePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	b.logger.Debug("Posting model to remote solver", zap.String("url", req.URL.String()))
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach remote solver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("remote solver returned %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	var solution lpmodel.Solution
	if err := json.NewDecoder(resp.Body).Decode(&solution); err != nil {
		return nil, fmt.Errorf("failed to decode remote solution: %w", err)
	}
	if err := solver.CheckResponse(&solution); err != nil {
		return nil, err
	}

	return &solution, nil
}
