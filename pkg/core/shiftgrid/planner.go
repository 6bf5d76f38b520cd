package shiftgrid

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidTime is returned by ParseClock for malformed or out-of-range HH:MM strings
var ErrInvalidTime = errors.New("invalid time format")

const (
	minutesPerHour = 60
	epsilon        = 1e-9
)

// Messages reported on infeasible inputs
const (
	MsgInvalidTime      = "Invalid time format"
	MsgEndBeforeStart   = "End time must be after start time"
	MsgRestExceedsOps   = "Minimum rest time exceeds operation time"
	MsgNegativeRest     = "Minimum rest time cannot be negative"
	MsgNegativeCounts   = "Post and staff counts cannot be negative"
	msgStaffShortage    = "Need at least %d staff for %d posts, but only have %d"
	msgCapacityShortage = "Need %s work-hours but only have %s available"
)

// Input holds the operating window and staffing levels to plan for
type Input struct {
	StartTime            string  `json:"startTime" yaml:"startTime"`
	EndTime              string  `json:"endTime" yaml:"endTime"`
	PostCount            int     `json:"postCount" yaml:"postCount"`
	StaffCount           int     `json:"staffCount" yaml:"staffCount"`
	MinimumTotalRestTime float64 `json:"minimumTotalRestTime" yaml:"minimumTotalRestTime"`
}

// Result is the outcome of planning a shift grid
type Result struct {
	IsFeasible          bool     `json:"isFeasible"`
	MinimumShiftsNeeded int      `json:"minimumShiftsNeeded"`
	ShiftDuration       float64  `json:"shiftDuration"` // hours
	ShiftStartTimes     []string `json:"shiftStartTimes"`
	Message             string   `json:"message"`
}

func infeasible(message string) Result {
	return Result{
		IsFeasible:      false,
		ShiftStartTimes: []string{},
		Message:         message,
	}
}

// CalculateMinimumShifts is a convenience wrapper around Plan
func CalculateMinimumShifts(startTime, endTime string, postCount, staffCount int, minimumTotalRestTime float64) Result {
	return Plan(Input{
		StartTime:            startTime,
		EndTime:              endTime,
		PostCount:            postCount,
		StaffCount:           staffCount,
		MinimumTotalRestTime: minimumTotalRestTime,
	})
}

// Plan determines how many equal shifts the operating window must be split into so
// that a worker who covers a single shift still receives the minimum rest time.
// Infeasible inputs are reported through Result.IsFeasible and Result.Message.
func Plan(in Input) Result {
	start, err := ParseClock(in.StartTime)
	if err != nil {
		return infeasible(MsgInvalidTime)
	}
	end, err := ParseClock(in.EndTime)
	if err != nil {
		return infeasible(MsgInvalidTime)
	}

	// Overnight windows are not supported
	if end <= start {
		return infeasible(MsgEndBeforeStart)
	}

	if in.MinimumTotalRestTime < 0 || math.IsNaN(in.MinimumTotalRestTime) {
		return infeasible(MsgNegativeRest)
	}
	if in.PostCount < 0 || in.StaffCount < 0 {
		return infeasible(MsgNegativeCounts)
	}

	durationMinutes := end - start
	duration := float64(durationMinutes) / minutesPerHour

	if in.MinimumTotalRestTime >= duration {
		return infeasible(MsgRestExceedsOps)
	}

	if in.StaffCount < in.PostCount {
		return infeasible(fmt.Sprintf(msgStaffShortage, in.PostCount, in.PostCount, in.StaffCount))
	}

	// Every post has to be staffed for the whole window
	neededHours := float64(in.PostCount) * duration
	availableHours := float64(in.StaffCount) * duration
	if availableHours+epsilon < neededHours {
		return infeasible(fmt.Sprintf(msgCapacityShortage, formatHours(neededHours), formatHours(availableHours)))
	}

	shifts := minimumShifts(duration, in.MinimumTotalRestTime, durationMinutes)
	shiftDuration := duration / float64(shifts)

	return Result{
		IsFeasible:          true,
		MinimumShiftsNeeded: shifts,
		ShiftDuration:       shiftDuration,
		ShiftStartTimes:     startTimes(start, durationMinutes, shifts),
		Message:             fmt.Sprintf("%d shift(s) of %s h", shifts, formatHours(shiftDuration)),
	}
}

// minimumShifts finds the smallest n where one shift of duration/n still leaves
// at least rest hours inside the window. The search never exceeds one shift per
// minute of operation.
func minimumShifts(duration, rest float64, durationMinutes int) int {
	workable := duration - rest
	for n := 1; n <= durationMinutes; n++ {
		if duration/float64(n) <= workable+epsilon {
			return n
		}
	}
	return durationMinutes
}

// startTimes spreads n shift starts evenly across the window, flooring to the minute
func startTimes(start, durationMinutes, n int) []string {
	times := make([]string, n)
	for i := 0; i < n; i++ {
		offset := (i * durationMinutes) / n
		times[i] = FormatClock(start + offset)
	}
	return times
}

// ParseClock parses a 24-hour HH:MM string into minutes since midnight
func ParseClock(value string) (int, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, value)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, value)
	}

	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidTime, value)
	}

	return hour*minutesPerHour + minute, nil
}

// FormatClock formats minutes since midnight as zero-padded HH:MM
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/minutesPerHour, minutes%minutesPerHour)
}

func formatHours(hours float64) string {
	return strconv.FormatFloat(math.Round(hours*100)/100, 'f', -1, 64)
}
