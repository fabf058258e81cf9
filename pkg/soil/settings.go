package soil

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/techmatters/terraso-go/pkg/model"
	"github.com/techmatters/terraso-go/pkg/permission"
	"github.com/techmatters/terraso-go/pkg/validation"
)

func (s *Service) projectFor(ctx context.Context, tx Store, user *model.User, projectID uuid.UUID, action permission.ProjectAction) (*model.Project, error) {
	project, err := tx.FindProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	if project == nil {
		return nil, fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}
	ok, err := s.checker.CheckProject(user, action, permission.Context{Project: project})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s on project %s: %w", action, projectID, ErrNotAllowed)
	}
	return project, nil
}

// applyPreset replaces the project intervals with the preset's list and
// clears the depth dependent data of the project's sites.
func applyPreset(ctx context.Context, tx Store, projectID uuid.UUID, settings *model.ProjectSoilSettings) error {
	if err := tx.DeleteProjectDepthIntervals(ctx, settings.ID, nil); err != nil {
		return err
	}
	if err := tx.DeleteProjectDepthDependentData(ctx, projectID); err != nil {
		return err
	}
	settings.DepthIntervals = nil
	for _, d := range PresetIntervals(settings.DepthIntervalPreset) {
		settings.DepthIntervals = append(settings.DepthIntervals, model.ProjectDepthInterval{
			ProjectSoilSettingsID: settings.ID,
			DepthInterval:         d,
		})
		if err := tx.SaveProjectDepthInterval(ctx, &settings.DepthIntervals[len(settings.DepthIntervals)-1]); err != nil {
			return err
		}
	}
	return nil
}

// CreateProjectSoilSettings stores default settings for a new project.
func CreateProjectSoilSettings(ctx context.Context, tx Store, projectID uuid.UUID) (*model.ProjectSoilSettings, error) {
	settings := &model.ProjectSoilSettings{ProjectID: projectID, DepthIntervalPreset: model.PresetLandPKS}
	if err := tx.SaveProjectSoilSettings(ctx, settings); err != nil {
		return nil, err
	}
	if err := applyPreset(ctx, tx, projectID, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// ProjectSoilSettings returns the project's settings, or unsaved defaults.
func (s *Service) ProjectSoilSettings(ctx context.Context, user *model.User, projectID uuid.UUID) (*model.ProjectSoilSettings, error) {
	project, err := s.projectFor(ctx, s.store, user, projectID, permission.ProjectLeave)
	if err != nil {
		return nil, err
	}
	settings, err := s.store.FindProjectSoilSettings(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		settings = &model.ProjectSoilSettings{ProjectID: project.ID, DepthIntervalPreset: model.PresetLandPKS}
		for _, d := range PresetIntervals(settings.DepthIntervalPreset) {
			settings.DepthIntervals = append(settings.DepthIntervals, model.ProjectDepthInterval{DepthInterval: d})
		}
	}
	return settings, nil
}

// UpdateProjectSoilSettings applies a partial update. Creating the settings
// or changing the preset resets the project intervals and the project's
// site depth data.
func (s *Service) UpdateProjectSoilSettings(ctx context.Context, user *model.User, projectID uuid.UUID, in ProjectSoilSettingsInput) (*model.ProjectSoilSettings, error) {
	if err := validation.Validate(&in); err != nil {
		return nil, err
	}
	var out *model.ProjectSoilSettings
	err := s.store.Transaction(ctx, func(tx Store) error {
		project, err := s.projectFor(ctx, tx, user, projectID, permission.ProjectUpdateRequirements)
		if err != nil {
			return err
		}
		settings, err := tx.FindProjectSoilSettings(ctx, project.ID)
		if err != nil {
			return err
		}
		created := settings == nil
		if created {
			settings = &model.ProjectSoilSettings{ProjectID: project.ID, DepthIntervalPreset: model.PresetLandPKS}
		}
		changed := in.DepthIntervalPreset != nil && *in.DepthIntervalPreset != settings.DepthIntervalPreset
		if changed {
			settings.DepthIntervalPreset = *in.DepthIntervalPreset
			if err := tx.DeleteProjectSiteIntervals(ctx, project.ID); err != nil {
				return err
			}
		}
		in.Apply(settings)
		if err := tx.SaveProjectSoilSettings(ctx, settings); err != nil {
			return err
		}
		if created || changed {
			if err := applyPreset(ctx, tx, project.ID, settings); err != nil {
				return err
			}
		}
		out = settings
		return nil
	})
	return out, err
}

func projectIntervalIndex(list []model.ProjectDepthInterval, d model.DepthInterval) int {
	for i := range list {
		if list[i].DepthInterval == d {
			return i
		}
	}
	return -1
}

// UpdateProjectDepthInterval creates or relabels a required interval. Only
// projects on the CUSTOM preset accept interval changes.
func (s *Service) UpdateProjectDepthInterval(ctx context.Context, user *model.User, projectID uuid.UUID, in ProjectDepthIntervalInput) (*model.ProjectSoilSettings, error) {
	if err := validation.Validate(&in); err != nil {
		return nil, err
	}
	if err := ValidateInterval(in.DepthInterval); err != nil {
		return nil, err
	}
	var out *model.ProjectSoilSettings
	err := s.store.Transaction(ctx, func(tx Store) error {
		project, err := s.projectFor(ctx, tx, user, projectID, permission.ProjectChangeRequiredDepthInterval)
		if err != nil {
			return err
		}
		settings, err := tx.FindProjectSoilSettings(ctx, project.ID)
		if err != nil {
			return err
		}
		if settings == nil || settings.DepthIntervalPreset != model.PresetCustom {
			return ErrNotCustomPreset
		}
		idx := projectIntervalIndex(settings.DepthIntervals, in.DepthInterval)
		if idx < 0 {
			existing := make([]model.DepthInterval, 0, len(settings.DepthIntervals)+1)
			for _, i := range settings.DepthIntervals {
				existing = append(existing, i.DepthInterval)
			}
			if err := ValidateIntervals(append(existing, in.DepthInterval)); err != nil {
				return err
			}
			settings.DepthIntervals = append(settings.DepthIntervals, model.ProjectDepthInterval{
				ProjectSoilSettingsID: settings.ID,
				DepthInterval:         in.DepthInterval,
			})
			idx = len(settings.DepthIntervals) - 1
		}
		if in.Label != nil {
			settings.DepthIntervals[idx].Label = *in.Label
		}
		if err := tx.SaveProjectDepthInterval(ctx, &settings.DepthIntervals[idx]); err != nil {
			return err
		}
		out = settings
		return nil
	})
	return out, err
}

func (s *Service) DeleteProjectDepthInterval(ctx context.Context, user *model.User, projectID uuid.UUID, interval model.DepthInterval) (*model.ProjectSoilSettings, error) {
	var out *model.ProjectSoilSettings
	err := s.store.Transaction(ctx, func(tx Store) error {
		project, err := s.projectFor(ctx, tx, user, projectID, permission.ProjectChangeRequiredDepthInterval)
		if err != nil {
			return err
		}
		settings, err := tx.FindProjectSoilSettings(ctx, project.ID)
		if err != nil {
			return err
		}
		if settings == nil {
			return fmt.Errorf("soil settings of project %s: %w", projectID, ErrNotFound)
		}
		idx := projectIntervalIndex(settings.DepthIntervals, interval)
		if idx < 0 {
			return fmt.Errorf("depth interval %s: %w", interval, ErrNotFound)
		}
		if err := tx.DeleteProjectDepthIntervals(ctx, settings.ID, []model.DepthInterval{interval}); err != nil {
			return err
		}
		settings.DepthIntervals = append(settings.DepthIntervals[:idx], settings.DepthIntervals[idx+1:]...)
		out = settings
		return nil
	})
	return out, err
}
