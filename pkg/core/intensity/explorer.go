package intensity

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/jakechorley/shift-optimizer/pkg/core/shiftgrid"
)

// DefaultCandidates are the rest-time intensities (hours) tried when none are configured
var DefaultCandidates = []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

// Params identifies one exploration. It is also the cache key.
type Params struct {
	StartTime  string `json:"startTime" validate:"required"`
	EndTime    string `json:"endTime" validate:"required"`
	PostCount  int    `json:"postCount" validate:"gte=0"`
	StaffCount int    `json:"staffCount" validate:"gte=0"`
}

// Key returns the cache key for the params
func (p Params) Key() string {
	return fmt.Sprintf("%s|%s|%d|%d", p.StartTime, p.EndTime, p.PostCount, p.StaffCount)
}

// DurationGroup lists every intensity that produced the same shift duration
type DurationGroup struct {
	Duration    float64 `json:"duration"`
	Intensities []int   `json:"intensities"`
}

// Result holds the distinguished intensities, one per distinct shift duration
type Result struct {
	// DistinguishedIntensities is ordered by ascending shift duration
	DistinguishedIntensities []int           `json:"distinguishedIntensities"`
	IntensityDurationMap     map[int]float64 `json:"intensityDurationMap"`
	DurationGroups           []DurationGroup `json:"durationGroups"`
}

// Clone returns a deep copy so cached results are never shared
func (r Result) Clone() Result {
	out := Result{
		DistinguishedIntensities: append([]int{}, r.DistinguishedIntensities...),
		IntensityDurationMap:     make(map[int]float64, len(r.IntensityDurationMap)),
		DurationGroups:           make([]DurationGroup, len(r.DurationGroups)),
	}
	for k, v := range r.IntensityDurationMap {
		out.IntensityDurationMap[k] = v
	}
	for i, g := range r.DurationGroups {
		out.DurationGroups[i] = DurationGroup{
			Duration:    g.Duration,
			Intensities: append([]int{}, g.Intensities...),
		}
	}
	return out
}

func degenerateResult() Result {
	return Result{
		DistinguishedIntensities: []int{1},
		IntensityDurationMap:     map[int]float64{1: 0},
		DurationGroups:           []DurationGroup{},
	}
}

// Explorer finds the intensities that yield distinct shift durations, memoising by Params
type Explorer struct {
	cache      Cache
	candidates []int
	logger     *zap.Logger
}

// NewExplorer creates an explorer. A nil cache gets a fresh MemoryCache and
// empty candidates fall back to DefaultCandidates.
func NewExplorer(cache Cache, candidates []int, logger *zap.Logger) *Explorer {
	if cache == nil {
		cache = NewMemoryCache()
	}
	if len(candidates) == 0 {
		candidates = DefaultCandidates
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Explorer{
		cache:      cache,
		candidates: append([]int{}, candidates...),
		logger:     logger,
	}
}

// Cache exposes the underlying cache for Clear and Stats
func (e *Explorer) Cache() Cache {
	return e.cache
}

// GetDistinguishedIntensities returns the cached result for params or computes and stores it.
// Cache failures are logged and never fail the call.
func (e *Explorer) GetDistinguishedIntensities(ctx context.Context, params Params) Result {
	key := params.Key()

	cached, ok, err := e.cache.Get(ctx, key)
	if err != nil {
		e.logger.Warn("Failed to read intensity cache", zap.String("key", key), zap.Error(err))
	} else if ok {
		e.logger.Debug("Intensity cache hit", zap.String("key", key))
		return cached
	}

	result := e.explore(params)

	if err := e.cache.Set(ctx, key, result); err != nil {
		e.logger.Warn("Failed to write intensity cache", zap.String("key", key), zap.Error(err))
	}

	return result.Clone()
}

func (e *Explorer) explore(params Params) Result {
	if params.PostCount <= 0 || params.StaffCount <= 0 {
		return degenerateResult()
	}

	start, err := shiftgrid.ParseClock(params.StartTime)
	if err != nil {
		return degenerateResult()
	}
	end, err := shiftgrid.ParseClock(params.EndTime)
	if err != nil || end <= start {
		return degenerateResult()
	}
	operationHours := float64(end-start) / 60

	// duration -> intensities producing it
	groups := make(map[float64][]int)
	for _, intensity := range e.candidates {
		if float64(intensity) >= operationHours || intensity < 0 {
			continue
		}

		plan := shiftgrid.CalculateMinimumShifts(params.StartTime, params.EndTime, params.PostCount, params.StaffCount, float64(intensity))
		if !plan.IsFeasible || plan.ShiftDuration <= 0 {
			continue
		}
		groups[plan.ShiftDuration] = append(groups[plan.ShiftDuration], intensity)
	}

	if len(groups) == 0 {
		return degenerateResult()
	}

	durations := make([]float64, 0, len(groups))
	for d := range groups {
		durations = append(durations, d)
	}
	sort.Float64s(durations)

	result := Result{
		DistinguishedIntensities: make([]int, 0, len(durations)),
		IntensityDurationMap:     make(map[int]float64, len(durations)),
		DurationGroups:           make([]DurationGroup, 0, len(durations)),
	}
	for _, d := range durations {
		intensities := groups[d]
		sort.Ints(intensities)

		// Keep the highest rest time per duration
		best := intensities[len(intensities)-1]
		result.DistinguishedIntensities = append(result.DistinguishedIntensities, best)
		result.IntensityDurationMap[best] = d
		result.DurationGroups = append(result.DurationGroups, DurationGroup{Duration: d, Intensities: intensities})
	}

	return result
}
