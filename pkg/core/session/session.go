package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/shift-optimizer/pkg/core/model"
	"github.com/jakechorley/shift-optimizer/pkg/core/optimizer"
	"github.com/jakechorley/shift-optimizer/pkg/core/shiftgrid"
)

var (
	// ErrUnknownWorker is returned when a worker ID is not part of the session
	ErrUnknownWorker = errors.New("unknown worker")
	// ErrUnknownSlot is returned for post or hour indices outside the grid
	ErrUnknownSlot = errors.New("unknown slot")
)

// Optimizer is anything that can turn a request into an outcome
type Optimizer interface {
	Optimize(ctx context.Context, req optimizer.Request) optimizer.Outcome
}

// Session holds the editable grid, every worker's constraints and the last
// optimisation result. Results and manual overrides are positional, so any
// change to the grid shape discards them. A Session is not safe for concurrent use.
type Session struct {
	posts   []model.Post
	hours   []model.Hour
	workers []model.WorkerConstraints

	result    model.AssignmentResult
	isOptim   bool
	status    string
	overrides map[model.SlotKey]string // slot -> worker ID

	lastSignature string
	logger        *zap.Logger
}

// New creates a session over the given posts and hours
func New(posts []model.Post, hours []model.Hour, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		posts:     append([]model.Post{}, posts...),
		hours:     append([]model.Hour{}, hours...),
		overrides: make(map[model.SlotKey]string),
		logger:    logger,
	}
}

// Posts returns a copy of the posts
func (s *Session) Posts() []model.Post {
	return append([]model.Post{}, s.posts...)
}

// Hours returns a copy of the hours
func (s *Session) Hours() []model.Hour {
	return append([]model.Hour{}, s.hours...)
}

// Workers returns a deep copy of every worker and their constraints
func (s *Session) Workers() []model.WorkerConstraints {
	out := make([]model.WorkerConstraints, len(s.workers))
	for i, wc := range s.workers {
		out[i] = model.WorkerConstraints{Worker: wc.Worker, Constraints: cloneGrid(wc.Constraints)}
	}
	return out
}

// SetPosts replaces the posts. A different post count invalidates the result.
func (s *Session) SetPosts(posts []model.Post) {
	shapeChanged := len(posts) != len(s.posts)
	s.posts = append([]model.Post{}, posts...)
	s.syncConstraints()
	if shapeChanged {
		s.invalidate("post count changed")
	}
}

// SetHours replaces the hours. A different hour count invalidates the result.
func (s *Session) SetHours(hours []model.Hour) {
	shapeChanged := len(hours) != len(s.hours)
	s.hours = append([]model.Hour{}, hours...)
	s.syncConstraints()
	if shapeChanged {
		s.invalidate("hour count changed")
	}
}

// ApplyPlan derives the hours from a planner result. Existing hour IDs are kept
// by position so constraints survive when only the start times move.
func (s *Session) ApplyPlan(plan shiftgrid.Result) error {
	if !plan.IsFeasible {
		return fmt.Errorf("cannot apply infeasible plan: %s", plan.Message)
	}

	hours := make([]model.Hour, len(plan.ShiftStartTimes))
	for i, start := range plan.ShiftStartTimes {
		id := uuid.NewString()
		if i < len(s.hours) {
			id = s.hours[i].ID
		}
		hours[i] = model.Hour{ID: id, Value: start}
	}
	s.SetHours(hours)
	return nil
}

// AddWorker adds a worker available for every slot. The worker axis changes so
// any previous result is discarded.
func (s *Session) AddWorker(name string) model.Worker {
	worker := model.Worker{ID: uuid.NewString(), Name: name}
	s.workers = append(s.workers, model.WorkerConstraints{
		Worker:      worker,
		Constraints: s.grid(nil),
	})
	s.clearResult("worker added")
	return worker
}

// RemoveWorker drops a worker and any manual overrides pointing at them
func (s *Session) RemoveWorker(id string) error {
	i := s.workerIndex(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownWorker, id)
	}
	s.workers = append(s.workers[:i], s.workers[i+1:]...)

	for slot, workerID := range s.overrides {
		if workerID == id {
			delete(s.overrides, slot)
		}
	}
	s.clearResult("worker removed")
	return nil
}

// RenameWorker updates display data only
func (s *Session) RenameWorker(id, name string) error {
	i := s.workerIndex(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownWorker, id)
	}
	s.workers[i].Worker.Name = name
	return nil
}

// SetAvailability changes one constraint value. The previous result is kept
// until the next optimisation.
func (s *Session) SetAvailability(workerID string, post, hour int, available bool) error {
	i := s.workerIndex(workerID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownWorker, workerID)
	}
	if !s.inGrid(post, hour) {
		return fmt.Errorf("%w: (%d, %d)", ErrUnknownSlot, post, hour)
	}
	s.workers[i].Constraints[post][hour].Availability = available
	return nil
}

// SetOverride pins a worker to a slot on top of the solver result
func (s *Session) SetOverride(post, hour int, workerID string) error {
	if !s.inGrid(post, hour) {
		return fmt.Errorf("%w: (%d, %d)", ErrUnknownSlot, post, hour)
	}
	if s.workerIndex(workerID) < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownWorker, workerID)
	}
	s.overrides[model.SlotKey{Post: post, Hour: hour}] = workerID
	return nil
}

// ClearOverride removes a manual override
func (s *Session) ClearOverride(post, hour int) {
	delete(s.overrides, model.SlotKey{Post: post, Hour: hour})
}

// Overrides returns a copy of the manual overrides
func (s *Session) Overrides() map[model.SlotKey]string {
	out := make(map[model.SlotKey]string, len(s.overrides))
	for k, v := range s.overrides {
		out[k] = v
	}
	return out
}

// Request snapshots the session for the optimiser
func (s *Session) Request() optimizer.Request {
	return optimizer.Request{
		Posts:   s.Posts(),
		Hours:   s.Hours(),
		Workers: s.Workers(),
	}
}

type workerSignature struct {
	ID          string               `json:"id"`
	Constraints [][]model.Constraint `json:"constraints"`
}

type signatureInput struct {
	Constraints []workerSignature `json:"constraints"`
	Posts       []model.Post      `json:"posts"`
	Hours       []model.Hour      `json:"hours"`
}

// Signature hashes the constraints, posts and hours. Worker names are not part of it.
func (s *Session) Signature() string {
	constraints := make([]workerSignature, len(s.workers))
	for i, wc := range s.workers {
		constraints[i] = workerSignature{ID: wc.Worker.ID, Constraints: wc.Constraints}
	}

	payload, err := json.Marshal(signatureInput{
		Constraints: constraints,
		Posts:       s.posts,
		Hours:       s.hours,
	})
	if err != nil {
		// Only plain strings and bools are encoded
		s.logger.Error("Failed to encode session signature", zap.Error(err))
		return ""
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(payload))
}

// CanOptimize is false when nothing changed since the last optimisation
func (s *Session) CanOptimize() bool {
	return s.lastSignature == "" || s.lastSignature != s.Signature()
}

// Optimize runs opt on the current state and stores the outcome
func (s *Session) Optimize(ctx context.Context, opt Optimizer) optimizer.Outcome {
	signature := s.Signature()
	outcome := opt.Optimize(ctx, s.Request())
	s.ApplyOutcome(outcome, signature)
	return outcome
}

// ApplyOutcome stores an outcome computed for the state identified by signature.
// Outcomes whose shape no longer matches the grid are dropped.
func (s *Session) ApplyOutcome(outcome optimizer.Outcome, signature string) {
	if !outcome.Result.HasShape(len(s.posts), len(s.hours), len(s.workers)) && len(s.workers) > 0 {
		s.logger.Warn("Dropping outcome with stale shape",
			zap.Int("posts", len(s.posts)),
			zap.Int("hours", len(s.hours)),
			zap.Int("workers", len(s.workers)))
		return
	}

	s.result = outcome.Result.Clone()
	s.isOptim = outcome.IsOptim
	s.status = outcome.Status
	s.lastSignature = signature
}

// Result returns the last stored solver result, or nil
func (s *Session) Result() model.AssignmentResult {
	return s.result.Clone()
}

// IsOptim reports whether the stored result was optimal
func (s *Session) IsOptim() bool {
	return s.isOptim
}

// Status returns the status of the stored outcome
func (s *Session) Status() string {
	return s.status
}

// Assignments returns the stored result with manual overrides applied
func (s *Session) Assignments() model.AssignmentResult {
	assignments := s.result.Clone()
	if assignments == nil {
		assignments = model.NewAssignmentResult(len(s.posts), len(s.hours), len(s.workers))
	}

	for slot, workerID := range s.overrides {
		w := s.workerIndex(workerID)
		if w < 0 || !s.inGrid(slot.Post, slot.Hour) {
			continue
		}
		column := assignments[slot.Post][slot.Hour]
		for i := range column {
			column[i] = false
		}
		column[w] = true
	}
	return assignments
}

// Labels returns the assigned worker's name per (post, hour), "" when unassigned
func (s *Session) Labels() [][]string {
	assignments := s.Assignments()
	labels := make([][]string, len(s.posts))
	for p := range labels {
		labels[p] = make([]string, len(s.hours))
		for h := range labels[p] {
			if w := assignments.AssignedWorker(p, h); w >= 0 {
				labels[p][h] = s.workers[w].Worker.Name
			}
		}
	}
	return labels
}

func (s *Session) invalidate(reason string) {
	s.overrides = make(map[model.SlotKey]string)
	s.clearResult(reason)
}

func (s *Session) clearResult(reason string) {
	if s.result != nil {
		s.logger.Debug("Clearing result", zap.String("reason", reason))
	}
	s.result = nil
	s.isOptim = false
	s.status = ""
	s.lastSignature = ""
}

// syncConstraints rebuilds every grid for the current posts and hours, keeping
// values for pairs that still exist and defaulting new pairs to available
func (s *Session) syncConstraints() {
	for i := range s.workers {
		s.workers[i].Constraints = s.grid(s.workers[i].Constraints)
	}
}

func (s *Session) grid(previous [][]model.Constraint) [][]model.Constraint {
	type pair struct{ post, hour string }
	existing := make(map[pair]bool)
	for _, row := range previous {
		for _, c := range row {
			existing[pair{c.PostID, c.HourID}] = c.Availability
		}
	}

	grid := make([][]model.Constraint, len(s.posts))
	for p, post := range s.posts {
		grid[p] = make([]model.Constraint, len(s.hours))
		for h, hour := range s.hours {
			available, ok := existing[pair{post.ID, hour.ID}]
			if !ok {
				available = true
			}
			grid[p][h] = model.Constraint{PostID: post.ID, HourID: hour.ID, Availability: available}
		}
	}
	return grid
}

func (s *Session) workerIndex(id string) int {
	for i, wc := range s.workers {
		if wc.Worker.ID == id {
			return i
		}
	}
	return -1
}

func (s *Session) inGrid(post, hour int) bool {
	return post >= 0 && post < len(s.posts) && hour >= 0 && hour < len(s.hours)
}

func cloneGrid(grid [][]model.Constraint) [][]model.Constraint {
	out := make([][]model.Constraint, len(grid))
	for i, row := range grid {
		out[i] = append([]model.Constraint{}, row...)
	}
	return out
}
