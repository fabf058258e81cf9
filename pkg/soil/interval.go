package soil

import (
	"errors"
	"fmt"
	"sort"

	"github.com/techmatters/terraso-go/pkg/model"
)

// MaxDepth is the deepest interval end, in centimeters.
const MaxDepth = 200

var ErrInvalidInterval = errors.New("invalid depth interval")

var (
	landPKSIntervals = []model.DepthInterval{
		{Start: 0, End: 10}, {Start: 10, End: 20}, {Start: 20, End: 50},
		{Start: 50, End: 70}, {Start: 70, End: 100}, {Start: 100, End: 200},
	}
	nrcsIntervals = []model.DepthInterval{
		{Start: 0, End: 5}, {Start: 5, End: 15}, {Start: 15, End: 30},
		{Start: 30, End: 60}, {Start: 60, End: 100}, {Start: 100, End: 200},
	}
)

// ValidateInterval checks 0 <= start < end <= MaxDepth.
func ValidateInterval(d model.DepthInterval) error {
	switch {
	case d.Start < 0:
		return fmt.Errorf("%w: start %d is negative", ErrInvalidInterval, d.Start)
	case d.Start >= d.End:
		return fmt.Errorf("%w: start %d must be before end %d", ErrInvalidInterval, d.Start, d.End)
	case d.End > MaxDepth:
		return fmt.Errorf("%w: end %d is deeper than %d", ErrInvalidInterval, d.End, MaxDepth)
	}
	return nil
}

// ValidateIntervals checks each interval and rejects overlaps. list is
// sorted by start in place.
func ValidateIntervals(list []model.DepthInterval) error {
	for _, d := range list {
		if err := ValidateInterval(d); err != nil {
			return err
		}
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].Start < list[j].Start })
	for i := 0; i+1 < len(list); i++ {
		if list[i].End > list[i+1].Start {
			return fmt.Errorf("%w: depth interval must end at or before next interval, got %s followed by %s",
				ErrInvalidInterval, list[i], list[i+1])
		}
	}
	return nil
}

// PresetIntervals returns the intervals a preset creates. NONE and CUSTOM
// create none.
func PresetIntervals(p model.DepthIntervalPreset) []model.DepthInterval {
	var src []model.DepthInterval
	switch p {
	case model.PresetLandPKS:
		src = landPKSIntervals
	case model.PresetNRCS:
		src = nrcsIntervals
	default:
		return nil
	}
	out := make([]model.DepthInterval, len(src))
	copy(out, src)
	return out
}
