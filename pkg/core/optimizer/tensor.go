package optimizer

import (
	"github.com/jakechorley/shift-optimizer/pkg/core/model"
)

// BuildTensor converts each worker's constraint grid into a workers x posts x hours tensor.
// Constraints are matched to the grid by post and hour ID. Entries without IDs fall back
// to their position, entries referencing removed posts or hours are ignored, and anything
// missing is unavailable.
func BuildTensor(posts []model.Post, hours []model.Hour, workers []model.WorkerConstraints) model.AvailabilityTensor {
	tensor := model.NewAvailabilityTensor(len(workers), len(posts), len(hours))

	postIndex := make(map[string]int, len(posts))
	for i, p := range posts {
		postIndex[p.ID] = i
	}
	hourIndex := make(map[string]int, len(hours))
	for i, h := range hours {
		hourIndex[h.ID] = i
	}

	for w, wc := range workers {
		for pi, row := range wc.Constraints {
			for hi, c := range row {
				p, h, ok := locate(c, pi, hi, postIndex, hourIndex)
				if !ok || p >= len(posts) || h >= len(hours) {
					continue
				}
				tensor[w][p][h] = c.Availability
			}
		}
	}

	return tensor
}

func locate(c model.Constraint, pi, hi int, postIndex, hourIndex map[string]int) (int, int, bool) {
	if c.PostID == "" && c.HourID == "" {
		return pi, hi, true
	}
	p, okPost := postIndex[c.PostID]
	h, okHour := hourIndex[c.HourID]
	return p, h, okPost && okHour
}

// UncoverableSlots returns every (post, hour) that no worker is available for
func UncoverableSlots(tensor model.AvailabilityTensor, posts, hours int) []model.SlotKey {
	var slots []model.SlotKey
	for p := 0; p < posts; p++ {
		for h := 0; h < hours; h++ {
			if !slotCoverable(tensor, p, h) {
				slots = append(slots, model.SlotKey{Post: p, Hour: h})
			}
		}
	}
	return slots
}

func slotCoverable(tensor model.AvailabilityTensor, p, h int) bool {
	for w := range tensor {
		if tensor.Available(w, p, h) {
			return true
		}
	}
	return false
}
