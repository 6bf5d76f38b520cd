// Package cbc solves models by running the COIN-OR CBC binary on LP files
package cbc

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/shift-optimizer/pkg/core/lpmodel"
)

// Backend runs an external CBC executable
type Backend struct {
	path   string
	logger *zap.Logger
}

// New creates a CBC backend. An empty path means "cbc" on $PATH.
func New(path string, logger *zap.Logger) *Backend {
	if path == "" {
		path = "cbc"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backend{path: path, logger: logger}
}

func (b *Backend) Name() string {
	return "cbc"
}

// Solve writes m to a temporary LP file and runs CBC on it. The process is
// killed when ctx is done.
func (b *Backend) Solve(ctx context.Context, m *lpmodel.Model) (*lpmodel.Solution, error) {
	dir, err := os.MkdirTemp("", "shift-optimizer-cbc-")
	if err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	modelPath := filepath.Join(dir, "model.lp")
	solutionPath := filepath.Join(dir, "solution.txt")

	f, err := os.Create(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create model file: %w", err)
	}
	if err := lpmodel.Write(f, m); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write model file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to write model file: %w", err)
	}

	args := []string{modelPath}
	if deadline, ok := ctx.Deadline(); ok {
		// CBC takes whole seconds
		seconds := int(time.Until(deadline).Seconds())
		if seconds < 1 {
			seconds = 1
		}
		args = append(args, "sec", strconv.Itoa(seconds))
	}
	args = append(args, "solve", "solu", solutionPath)

	var output bytes.Buffer
	cmd := exec.CommandContext(ctx, b.path, args...)
	cmd.Stdout = &output
	cmd.Stderr = &output

	b.logger.Debug("Running CBC", zap.String("path", b.path), zap.Strings("args", args))
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		b.logger.Debug("CBC output", zap.String("output", output.String()))
		return nil, fmt.Errorf("failed to run cbc: %w", err)
	}

	solution, err := os.Open(solutionPath)
	if err != nil {
		return nil, fmt.Errorf("cbc wrote no solution: %w", err)
	}
	defer solution.Close()

	return ParseSolution(solution)
}

// ParseSolution reads a CBC solution file. The first line holds the status and
// objective ("Optimal - objective value 3.00000000"); the rest list
// "index name value reducedCost" for every non-zero column.
func ParseSolution(r io.Reader) (*lpmodel.Solution, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read solution: %w", err)
		}
		return nil, fmt.Errorf("solution file is empty")
	}

	status, objective, err := parseHeader(scanner.Text())
	if err != nil {
		return nil, err
	}

	solution := &lpmodel.Solution{
		Status:    status,
		Objective: objective,
		Columns:   make(map[string]lpmodel.Column),
	}

	line := 1
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		// Infeasible rows are flagged with a leading "**"
		if fields[0] == "**" {
			fields = fields[1:]
		}
		if len(fields) < 3 {
			return nil, fmt.Errorf("line %d: expected index, name and value", line)
		}
		value, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid value %q", line, fields[2])
		}
		solution.Columns[fields[1]] = lpmodel.Column{Primal: value}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read solution: %w", err)
	}

	return solution, nil
}

func parseHeader(header string) (string, float64, error) {
	header = strings.TrimSpace(header)
	before, after, found := strings.Cut(header, " - ")
	if !found {
		return "", 0, fmt.Errorf("unrecognised solution header %q", header)
	}

	status := statusFromHeader(before)

	objective := 0.0
	if i := strings.LastIndex(after, "objective value"); i >= 0 {
		text := strings.TrimSpace(after[i+len("objective value"):])
		if text != "" {
			v, err := strconv.ParseFloat(strings.Fields(text)[0], 64)
			if err != nil {
				return "", 0, fmt.Errorf("invalid objective in header %q", header)
			}
			objective = v
		}
	}

	return status, objective, nil
}

func statusFromHeader(text string) string {
	lower := strings.ToLower(strings.TrimSpace(text))
	switch {
	case lower == "optimal":
		return lpmodel.StatusOptimal
	case strings.Contains(lower, "infeasible"):
		return lpmodel.StatusInfeasible
	case strings.Contains(lower, "unbounded"):
		return lpmodel.StatusUnbounded
	case strings.HasPrefix(lower, "stopped"):
		// Stopped on time or iterations with an incumbent
		return lpmodel.StatusFeasible
	default:
		return strings.TrimSpace(text)
	}
}
