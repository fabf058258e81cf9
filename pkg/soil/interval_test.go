package soil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techmatters/terraso-go/pkg/model"
)

func TestValidateInterval(t *testing.T) {
	tests := []struct {
		name     string
		interval model.DepthInterval
		wantErr  bool
	}{
		{"surface", model.DepthInterval{Start: 0, End: 10}, false},
		{"deepest", model.DepthInterval{Start: 100, End: 200}, false},
		{"negative start", model.DepthInterval{Start: -1, End: 10}, true},
		{"empty", model.DepthInterval{Start: 10, End: 10}, true},
		{"reversed", model.DepthInterval{Start: 20, End: 10}, true},
		{"too deep", model.DepthInterval{Start: 150, End: 201}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateInterval(tt.interval)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInterval)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateIntervals(t *testing.T) {
	ok := []model.DepthInterval{{Start: 10, End: 20}, {Start: 0, End: 10}, {Start: 30, End: 50}}
	require.NoError(t, ValidateIntervals(ok))
	assert.Equal(t, 0, ok[0].Start, "sorted in place")

	overlap := []model.DepthInterval{{Start: 0, End: 15}, {Start: 10, End: 20}}
	err := ValidateIntervals(overlap)
	require.ErrorIs(t, err, ErrInvalidInterval)
	assert.Contains(t, err.Error(), "got 0-15 followed by 10-20")
}

func TestPresetIntervals(t *testing.T) {
	landpks := PresetIntervals(model.PresetLandPKS)
	require.Len(t, landpks, 6)
	assert.Equal(t, model.DepthInterval{Start: 20, End: 50}, landpks[2])
	assert.NoError(t, ValidateIntervals(landpks))

	nrcs := PresetIntervals(model.PresetNRCS)
	require.Len(t, nrcs, 6)
	assert.Equal(t, model.DepthInterval{Start: 0, End: 5}, nrcs[0])

	assert.Empty(t, PresetIntervals(model.PresetNone))
	assert.Empty(t, PresetIntervals(model.PresetCustom))

	landpks[0].End = 99
	assert.Equal(t, 10, PresetIntervals(model.PresetLandPKS)[0].End, "callers get a copy")
}
