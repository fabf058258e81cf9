package soil

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/techmatters/terraso-go/pkg/db"
	"github.com/techmatters/terraso-go/pkg/logging"
	"github.com/techmatters/terraso-go/pkg/model"
	"github.com/techmatters/terraso-go/pkg/permission"
	"github.com/techmatters/terraso-go/pkg/validation"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrNotAllowed      = errors.New("not allowed")
	ErrNotCustomPreset = fmt.Errorf("%w: project does not use custom depth intervals", ErrNotAllowed)
)

// Store is the persistence the soil service needs. Find methods return
// nil, nil when nothing matches.
type Store interface {
	// Transaction runs fn atomically. Nested calls use savepoints.
	Transaction(ctx context.Context, fn func(tx Store) error) error

	// FindSite preloads the site's project with its settings and memberships.
	FindSite(ctx context.Context, id uuid.UUID) (*model.Site, error)
	FindProject(ctx context.Context, id uuid.UUID) (*model.Project, error)

	// FindSoilData preloads depth intervals and depth dependent data.
	FindSoilData(ctx context.Context, siteID uuid.UUID) (*model.SoilData, error)
	SaveSoilData(ctx context.Context, d *model.SoilData) error
	SaveDepthInterval(ctx context.Context, i *model.SoilDataDepthInterval) error
	// DeleteDepthIntervals deletes the listed intervals, or all of them when intervals is nil.
	DeleteDepthIntervals(ctx context.Context, soilDataID uuid.UUID, intervals []model.DepthInterval) error
	SaveDepthDependentData(ctx context.Context, d *model.DepthDependentData) error
	DeleteProjectSiteIntervals(ctx context.Context, projectID uuid.UUID) error
	DeleteProjectDepthDependentData(ctx context.Context, projectID uuid.UUID) error

	FindSoilMetadata(ctx context.Context, siteID uuid.UUID) (*model.SoilMetadata, error)
	SaveSoilMetadata(ctx context.Context, m *model.SoilMetadata) error

	SaveHistory(ctx context.Context, h *model.SoilDataHistory) error

	// FindProjectSoilSettings preloads the project depth intervals.
	FindProjectSoilSettings(ctx context.Context, projectID uuid.UUID) (*model.ProjectSoilSettings, error)
	SaveProjectSoilSettings(ctx context.Context, s *model.ProjectSoilSettings) error
	SaveProjectDepthInterval(ctx context.Context, i *model.ProjectDepthInterval) error
	// DeleteProjectDepthIntervals deletes the listed intervals, or all of them when intervals is nil.
	DeleteProjectDepthIntervals(ctx context.Context, settingsID uuid.UUID, intervals []model.DepthInterval) error
}

// Service applies soil data changes with permission checks.
type Service struct {
	store   Store
	checker *permission.Checker
	log     *zerolog.Logger
}

func NewService(store Store, checker *permission.Checker) *Service {
	if checker == nil {
		checker = permission.NewChecker(nil)
	}
	return &Service{store: store, checker: checker, log: logging.Component("soil")}
}

// IsInvalidData reports whether err was caused by the submitted values
// rather than by the service.
func IsInvalidData(err error) bool {
	var ve *validation.RequestValidationError
	return errors.As(err, &ve) ||
		errors.Is(err, ErrInvalidInterval) ||
		errors.Is(err, ErrMultipleSelected) ||
		errors.Is(err, ErrInvalidRating) ||
		db.IsIntegrityViolation(err)
}

func (s *Service) findSite(ctx context.Context, tx Store, siteID uuid.UUID) (*model.Site, error) {
	site, err := tx.FindSite(ctx, siteID)
	if err != nil {
		return nil, fmt.Errorf("failed to load site: %w", err)
	}
	if site == nil {
		return nil, fmt.Errorf("site %s: %w", siteID, ErrNotFound)
	}
	return site, nil
}

// siteFor loads the site and requires every action.
func (s *Service) siteFor(ctx context.Context, tx Store, user *model.User, siteID uuid.UUID, actions ...permission.SiteAction) (*model.Site, error) {
	site, err := s.findSite(ctx, tx, siteID)
	if err != nil {
		return nil, err
	}
	for _, action := range actions {
		ok, err := s.checker.CheckSite(user, action, permission.Context{Site: site})
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%s on site %s: %w", action, siteID, ErrNotAllowed)
		}
	}
	return site, nil
}

func newSoilData(siteID uuid.UUID) *model.SoilData {
	return &model.SoilData{SiteID: siteID, DepthIntervalPreset: model.PresetLandPKS}
}

// loadSoilData returns the stored soil data or an unsaved empty one.
func loadSoilData(ctx context.Context, tx Store, siteID uuid.UUID) (*model.SoilData, error) {
	d, err := tx.FindSoilData(ctx, siteID)
	if err != nil {
		return nil, fmt.Errorf("failed to load soil data: %w", err)
	}
	if d == nil {
		d = newSoilData(siteID)
	}
	return d, nil
}

func ensureSoilData(ctx context.Context, tx Store, siteID uuid.UUID) (*model.SoilData, error) {
	d, err := loadSoilData(ctx, tx, siteID)
	if err != nil {
		return nil, err
	}
	if d.ID == uuid.Nil {
		if err := tx.SaveSoilData(ctx, d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func intervalIndex(list []model.SoilDataDepthInterval, d model.DepthInterval) int {
	for i := range list {
		if list[i].DepthInterval == d {
			return i
		}
	}
	return -1
}

func intervalsOf(list []model.SoilDataDepthInterval) []model.DepthInterval {
	out := make([]model.DepthInterval, len(list))
	for i := range list {
		out[i] = list[i].DepthInterval
	}
	return out
}

func applySoilData(ctx context.Context, tx Store, d *model.SoilData, in *SoilDataInput) error {
	if preset, changed := in.presetChange(d); changed {
		if d.ID != uuid.Nil {
			if err := tx.DeleteDepthIntervals(ctx, d.ID, nil); err != nil {
				return err
			}
		}
		d.DepthIntervals = nil
		d.DepthIntervalPreset = preset
	}
	in.Apply(d)
	return tx.SaveSoilData(ctx, d)
}

func upsertDepthInterval(ctx context.Context, tx Store, d *model.SoilData, in *DepthIntervalInput) error {
	if err := ValidateInterval(in.DepthInterval); err != nil {
		return err
	}
	idx := intervalIndex(d.DepthIntervals, in.DepthInterval)
	if idx < 0 {
		if err := ValidateIntervals(append(intervalsOf(d.DepthIntervals), in.DepthInterval)); err != nil {
			return err
		}
		d.DepthIntervals = append(d.DepthIntervals, model.SoilDataDepthInterval{
			SoilDataID:    d.ID,
			DepthInterval: in.DepthInterval,
		})
		idx = len(d.DepthIntervals) - 1
	}
	in.Apply(&d.DepthIntervals[idx])
	return tx.SaveDepthInterval(ctx, &d.DepthIntervals[idx])
}

func upsertDepthData(ctx context.Context, tx Store, d *model.SoilData, in *DepthDependentInput) (*model.DepthDependentData, error) {
	if err := ValidateInterval(in.DepthInterval); err != nil {
		return nil, err
	}
	idx := -1
	for i := range d.DepthDependentData {
		if d.DepthDependentData[i].DepthInterval == in.DepthInterval {
			idx = i
			break
		}
	}
	if idx < 0 {
		d.DepthDependentData = append(d.DepthDependentData, model.DepthDependentData{
			SoilDataID:    d.ID,
			DepthInterval: in.DepthInterval,
		})
		idx = len(d.DepthDependentData) - 1
	}
	row := &d.DepthDependentData[idx]
	in.Apply(row)
	if err := tx.SaveDepthDependentData(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

func deleteDepthIntervals(ctx context.Context, tx Store, d *model.SoilData, intervals []model.DepthInterval) error {
	if len(intervals) == 0 {
		return nil
	}
	if err := tx.DeleteDepthIntervals(ctx, d.ID, intervals); err != nil {
		return err
	}
	kept := d.DepthIntervals[:0]
	for _, i := range d.DepthIntervals {
		deleted := false
		for _, di := range intervals {
			if i.DepthInterval == di {
				deleted = true
				break
			}
		}
		if !deleted {
			kept = append(kept, i)
		}
	}
	d.DepthIntervals = kept
	return nil
}

// SoilData returns the site's soil data, or an empty record when none was
// entered yet.
func (s *Service) SoilData(ctx context.Context, user *model.User, siteID uuid.UUID) (*model.SoilData, error) {
	site, err := s.findSite(ctx, s.store, siteID)
	if err != nil {
		return nil, err
	}
	if !s.checker.CanViewSite(user, site) {
		return nil, ErrNotAllowed
	}
	return loadSoilData(ctx, s.store, siteID)
}

// UpdateSoilData applies a partial update. Changing the preset deletes the
// site's depth intervals.
func (s *Service) UpdateSoilData(ctx context.Context, user *model.User, siteID uuid.UUID, in SoilDataInput) (*model.SoilData, error) {
	if err := validation.Validate(&in); err != nil {
		return nil, err
	}
	var out *model.SoilData
	err := s.store.Transaction(ctx, func(tx Store) error {
		site, err := s.siteFor(ctx, tx, user, siteID, permission.SiteEnterData)
		if err != nil {
			return err
		}
		d, err := loadSoilData(ctx, tx, site.ID)
		if err != nil {
			return err
		}
		if err := applySoilData(ctx, tx, d, &in); err != nil {
			return err
		}
		out = d
		return nil
	})
	return out, err
}

// UpdateDepthInterval creates or updates one site depth interval and copies
// its enabled flags onto ApplyToIntervals.
func (s *Service) UpdateDepthInterval(ctx context.Context, user *model.User, siteID uuid.UUID, in DepthIntervalInput) (*model.SoilData, error) {
	if err := validation.Validate(&in); err != nil {
		return nil, err
	}
	var out *model.SoilData
	err := s.store.Transaction(ctx, func(tx Store) error {
		site, err := s.siteFor(ctx, tx, user, siteID, permission.SiteUpdateDepthInterval)
		if err != nil {
			return err
		}
		d, err := ensureSoilData(ctx, tx, site.ID)
		if err != nil {
			return err
		}
		if err := upsertDepthInterval(ctx, tx, d, &in); err != nil {
			return err
		}
		for _, target := range in.ApplyToIntervals {
			idx := intervalIndex(d.DepthIntervals, target)
			if idx < 0 || target == in.DepthInterval {
				continue
			}
			in.applyFlags(&d.DepthIntervals[idx])
			if err := tx.SaveDepthInterval(ctx, &d.DepthIntervals[idx]); err != nil {
				return err
			}
		}
		out = d
		return nil
	})
	return out, err
}

func (s *Service) DeleteDepthInterval(ctx context.Context, user *model.User, siteID uuid.UUID, interval model.DepthInterval) (*model.SoilData, error) {
	var out *model.SoilData
	err := s.store.Transaction(ctx, func(tx Store) error {
		site, err := s.siteFor(ctx, tx, user, siteID, permission.SiteUpdateDepthInterval)
		if err != nil {
			return err
		}
		d, err := tx.FindSoilData(ctx, site.ID)
		if err != nil {
			return err
		}
		if d == nil || intervalIndex(d.DepthIntervals, interval) < 0 {
			return fmt.Errorf("depth interval %s: %w", interval, ErrNotFound)
		}
		if err := deleteDepthIntervals(ctx, tx, d, []model.DepthInterval{interval}); err != nil {
			return err
		}
		out = d
		return nil
	})
	return out, err
}

func (s *Service) UpdateDepthDependentData(ctx context.Context, user *model.User, siteID uuid.UUID, in DepthDependentInput) (*model.DepthDependentData, error) {
	if err := validation.Validate(&in); err != nil {
		return nil, err
	}
	var out *model.DepthDependentData
	err := s.store.Transaction(ctx, func(tx Store) error {
		site, err := s.siteFor(ctx, tx, user, siteID, permission.SiteEnterData)
		if err != nil {
			return err
		}
		d, err := ensureSoilData(ctx, tx, site.ID)
		if err != nil {
			return err
		}
		out, err = upsertDepthData(ctx, tx, d, &in)
		return err
	})
	return out, err
}

func (s *Service) SoilMetadata(ctx context.Context, user *model.User, siteID uuid.UUID) (*model.SoilMetadata, error) {
	site, err := s.findSite(ctx, s.store, siteID)
	if err != nil {
		return nil, err
	}
	if !s.checker.CanViewSite(user, site) {
		return nil, ErrNotAllowed
	}
	meta, err := s.store.FindSoilMetadata(ctx, siteID)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		meta = &model.SoilMetadata{SiteID: siteID, UserRatings: model.UserRatings{}}
	}
	return meta, nil
}

func applySoilMetadata(ctx context.Context, tx Store, siteID uuid.UUID, in SoilMetadataInput) (*model.SoilMetadata, error) {
	meta, err := tx.FindSoilMetadata(ctx, siteID)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		meta = &model.SoilMetadata{SiteID: siteID}
	}
	if err := ApplyRatings(meta, in); err != nil {
		return nil, err
	}
	if err := tx.SaveSoilMetadata(ctx, meta); err != nil {
		return nil, err
	}
	return meta, nil
}

func (s *Service) UpdateSoilMetadata(ctx context.Context, user *model.User, siteID uuid.UUID, in SoilMetadataInput) (*model.SoilMetadata, error) {
	if err := validation.Validate(&in); err != nil {
		return nil, err
	}
	var out *model.SoilMetadata
	err := s.store.Transaction(ctx, func(tx Store) error {
		site, err := s.siteFor(ctx, tx, user, siteID, permission.SiteEnterData)
		if err != nil {
			return err
		}
		out, err = applySoilMetadata(ctx, tx, site.ID, in)
		return err
	})
	return out, err
}
