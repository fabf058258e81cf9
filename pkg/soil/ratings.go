package soil

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/techmatters/terraso-go/pkg/model"
)

var (
	ErrMultipleSelected = errors.New("there should only be a single selected soil")
	ErrInvalidRating    = errors.New("invalid soil match rating")
)

// SelectedSoilID returns the match rated SELECTED, if any.
func SelectedSoilID(r model.UserRatings) *string {
	for id, rating := range r {
		if rating == model.RatingSelected {
			id := id
			return &id
		}
	}
	return nil
}

// ApplyRatings merges in into meta. A selected id becomes the only
// SELECTED rating; an empty one clears the selection. A ratings list
// replaces the whole map. meta.SelectedSoilID always mirrors the map.
func ApplyRatings(meta *model.SoilMetadata, in SoilMetadataInput) error {
	if meta.UserRatings == nil {
		meta.UserRatings = model.UserRatings{}
	}

	if in.SelectedSoilID != nil {
		for id, rating := range meta.UserRatings {
			if rating == model.RatingSelected {
				delete(meta.UserRatings, id)
			}
		}
		if *in.SelectedSoilID != "" {
			meta.UserRatings[*in.SelectedSoilID] = model.RatingSelected
		}
	}

	if in.UserRatings != nil {
		ratings := make(model.UserRatings, len(in.UserRatings))
		var selected []string
		for _, r := range in.UserRatings {
			if !r.Rating.Valid() {
				return fmt.Errorf("%w: %q for %s", ErrInvalidRating, r.Rating, r.SoilMatchID)
			}
			ratings[r.SoilMatchID] = r.Rating
		}
		for id, rating := range ratings {
			if rating == model.RatingSelected {
				selected = append(selected, id)
			}
		}
		if len(selected) > 1 {
			sort.Strings(selected)
			return fmt.Errorf("%w, but found %d: %s", ErrMultipleSelected, len(selected), strings.Join(selected, ", "))
		}
		meta.UserRatings = ratings
	}

	meta.SelectedSoilID = SelectedSoilID(meta.UserRatings)
	return nil
}
