package model

import "fmt"

// Worker represents a member of staff who can be assigned to slots
type Worker struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Post represents a duty station that must be staffed
type Post struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// Hour represents a time slot produced by the shift-grid planner
type Hour struct {
	ID    string `json:"id"`
	Value string `json:"value"` // HH:MM start time
}

// Constraint is one worker's availability for one (post, hour) pair
type Constraint struct {
	PostID       string `json:"postID"`
	HourID       string `json:"hourID"`
	Availability bool   `json:"availability"`
}

// WorkerConstraints pairs a worker with their constraint grid.
// Constraints are post-major: Constraints[p][h].
type WorkerConstraints struct {
	Worker      Worker         `json:"worker"`
	Constraints [][]Constraint `json:"constraints"`
}

// AvailabilityTensor is indexed [worker][post][hour]
type AvailabilityTensor [][][]bool

// NewAvailabilityTensor returns an all-false tensor of the given dimensions
func NewAvailabilityTensor(workers, posts, hours int) AvailabilityTensor {
	t := make(AvailabilityTensor, workers)
	for w := range t {
		t[w] = make([][]bool, posts)
		for p := range t[w] {
			t[w][p] = make([]bool, hours)
		}
	}
	return t
}

// Dims returns (workers, posts, hours). Posts and hours are the maximum
// lengths found across the tensor so ragged input reports its full extent.
func (t AvailabilityTensor) Dims() (workers, posts, hours int) {
	workers = len(t)
	for _, byPost := range t {
		posts = max(posts, len(byPost))
		for _, byHour := range byPost {
			hours = max(hours, len(byHour))
		}
	}
	return workers, posts, hours
}

// Normalize returns a rectangular copy of the tensor sized to its Dims,
// padding any missing entries with false.
func (t AvailabilityTensor) Normalize() AvailabilityTensor {
	workers, posts, hours := t.Dims()
	out := NewAvailabilityTensor(workers, posts, hours)
	for w := range t {
		for p := range t[w] {
			copy(out[w][p], t[w][p])
		}
	}
	return out
}

// Available reports availability, treating out-of-range indices as unavailable
func (t AvailabilityTensor) Available(w, p, h int) bool {
	if w < 0 || w >= len(t) || p < 0 || p >= len(t[w]) || h < 0 || h >= len(t[w][p]) {
		return false
	}
	return t[w][p][h]
}

// AssignmentResult is indexed [post][hour][worker]. A feasible result has
// exactly one true entry per coverable (post, hour).
type AssignmentResult [][][]bool

// NewAssignmentResult returns an all-false result of the given dimensions
func NewAssignmentResult(posts, hours, workers int) AssignmentResult {
	r := make(AssignmentResult, posts)
	for p := range r {
		r[p] = make([][]bool, hours)
		for h := range r[p] {
			r[p][h] = make([]bool, workers)
		}
	}
	return r
}

// HasShape reports whether the result is exactly posts x hours x workers
func (r AssignmentResult) HasShape(posts, hours, workers int) bool {
	if len(r) != posts {
		return false
	}
	for p := range r {
		if len(r[p]) != hours {
			return false
		}
		for h := range r[p] {
			if len(r[p][h]) != workers {
				return false
			}
		}
	}
	return true
}

// AssignedWorker returns the index of the first worker assigned to (post, hour), or -1
func (r AssignmentResult) AssignedWorker(post, hour int) int {
	if post < 0 || post >= len(r) || hour < 0 || hour >= len(r[post]) {
		return -1
	}
	for w, assigned := range r[post][hour] {
		if assigned {
			return w
		}
	}
	return -1
}

// AssignmentCounts returns the number of slots assigned to each worker
func (r AssignmentResult) AssignmentCounts(workers int) []int {
	counts := make([]int, workers)
	for p := range r {
		for h := range r[p] {
			for w, assigned := range r[p][h] {
				if assigned && w < workers {
					counts[w]++
				}
			}
		}
	}
	return counts
}

// Clone returns a deep copy of the result
func (r AssignmentResult) Clone() AssignmentResult {
	if r == nil {
		return nil
	}
	out := make(AssignmentResult, len(r))
	for p := range r {
		out[p] = make([][]bool, len(r[p]))
		for h := range r[p] {
			out[p][h] = append([]bool(nil), r[p][h]...)
		}
	}
	return out
}

// SlotKey identifies a (post, hour) cell by position
type SlotKey struct {
	Post int
	Hour int
}

func (k SlotKey) String() string {
	return fmt.Sprintf("%d:%d", k.Post, k.Hour)
}
