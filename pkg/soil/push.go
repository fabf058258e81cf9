package soil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/techmatters/terraso-go/pkg/metrics"
	"github.com/techmatters/terraso-go/pkg/model"
	"github.com/techmatters/terraso-go/pkg/permission"
	"github.com/techmatters/terraso-go/pkg/validation"
)

// FailureReason explains why a pushed entry was not applied.
type FailureReason string

const (
	ReasonDoesNotExist FailureReason = "DOES_NOT_EXIST"
	ReasonNotAllowed   FailureReason = "NOT_ALLOWED"
	ReasonInvalidData  FailureReason = "INVALID_DATA"
)

var ErrEmptyPush = errors.New("at least one of soilDataEntries or soilMetadataEntries must be provided")

// SoilDataPush is the full offline state of one site's soil data.
type SoilDataPush struct {
	SoilDataInput
	DepthDependentData    []DepthDependentInput `json:"depthDependentData" validate:"dive"`
	DepthIntervals        []DepthIntervalInput  `json:"depthIntervals" validate:"dive"`
	DeletedDepthIntervals []model.DepthInterval `json:"deletedDepthIntervals"`
}

type SoilDataPushEntry struct {
	SiteID   uuid.UUID    `json:"siteId"`
	SoilData SoilDataPush `json:"soilData"`
}

type SoilDataPushResult struct {
	SiteID   uuid.UUID       `json:"siteId"`
	SoilData *model.SoilData `json:"soilData,omitempty"`
	Reason   FailureReason   `json:"reason,omitempty"`
}

type SoilMetadataPushEntry struct {
	SiteID       uuid.UUID         `json:"siteId"`
	SoilMetadata SoilMetadataInput `json:"soilMetadata"`
}

type SoilMetadataPushResult struct {
	SiteID       uuid.UUID           `json:"siteId"`
	SoilMetadata *model.SoilMetadata `json:"soilMetadata,omitempty"`
	Reason       FailureReason       `json:"reason,omitempty"`
}

// SiteDataPush carries both kinds of entries. Each kind is processed on its
// own and reports its own error.
type SiteDataPush struct {
	SoilDataEntries     []SoilDataPushEntry     `json:"soilDataEntries,omitempty"`
	SoilMetadataEntries []SoilMetadataPushEntry `json:"soilMetadataEntries,omitempty"`
}

type SiteDataPushResult struct {
	SoilDataResults     []SoilDataPushResult     `json:"soilDataResults,omitempty"`
	SoilDataError       string                   `json:"soilDataError,omitempty"`
	SoilMetadataResults []SoilMetadataPushResult `json:"soilMetadataResults,omitempty"`
	SoilMetadataError   string                   `json:"soilMetadataError,omitempty"`
}

// reasonFor maps an entry error to its failure reason. Errors with no
// reason abort the push.
func reasonFor(err error) (FailureReason, bool) {
	switch {
	case errors.Is(err, ErrNotFound):
		return ReasonDoesNotExist, true
	case errors.Is(err, ErrNotAllowed):
		return ReasonNotAllowed, true
	case IsInvalidData(err):
		return ReasonInvalidData, true
	}
	return "", false
}

func resultLabel(r FailureReason) string {
	if r == "" {
		return "success"
	}
	return string(r)
}

// recordHistory writes one history row per entry before anything is applied.
func (s *Service) recordHistory(ctx context.Context, user *model.User, kind string, siteIDs []uuid.UUID, changes []interface{}) ([]*model.SoilDataHistory, error) {
	history := make([]*model.SoilDataHistory, len(siteIDs))
	err := s.store.Transaction(ctx, func(tx Store) error {
		for i, siteID := range siteIDs {
			raw, err := json.Marshal(changes[i])
			if err != nil {
				return err
			}
			h := &model.SoilDataHistory{
				Kind:            kind,
				ChangedByID:     user.ID,
				SoilDataChanges: model.JSON(raw),
			}
			site, err := tx.FindSite(ctx, siteID)
			if err != nil {
				return err
			}
			if site != nil {
				id := site.ID
				h.SiteID = &id
			}
			if err := tx.SaveHistory(ctx, h); err != nil {
				return fmt.Errorf("failed to record push history: %w", err)
			}
			history[i] = h
		}
		return nil
	})
	return history, err
}

func finishHistory(ctx context.Context, tx Store, h *model.SoilDataHistory, reason FailureReason) error {
	if reason == "" {
		h.UpdateSucceeded = true
	} else {
		r := string(reason)
		h.UpdateFailureReason = &r
	}
	return tx.SaveHistory(ctx, h)
}

// PushSoilData applies offline soil data entries. Results follow the input
// order. Each entry runs in its own savepoint so a rejected entry leaves the
// others applied.
func (s *Service) PushSoilData(ctx context.Context, user *model.User, entries []SoilDataPushEntry) ([]SoilDataPushResult, error) {
	if user == nil {
		return nil, ErrNotAllowed
	}
	siteIDs := make([]uuid.UUID, len(entries))
	changes := make([]interface{}, len(entries))
	for i := range entries {
		siteIDs[i] = entries[i].SiteID
		changes[i] = entries[i].SoilData
	}
	history, err := s.recordHistory(ctx, user, model.HistorySoilData, siteIDs, changes)
	if err != nil {
		return nil, err
	}

	results := make([]SoilDataPushResult, len(entries))
	err = s.store.Transaction(ctx, func(tx Store) error {
		for i := range entries {
			res, err := s.pushSoilDataEntry(ctx, tx, user, &entries[i])
			if err != nil {
				return err
			}
			if err := finishHistory(ctx, tx, history[i], res.Reason); err != nil {
				return err
			}
			metrics.RecordPushEntry(model.HistorySoilData, resultLabel(res.Reason))
			results[i] = res
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) pushSoilDataEntry(ctx context.Context, tx Store, user *model.User, e *SoilDataPushEntry) (SoilDataPushResult, error) {
	res := SoilDataPushResult{SiteID: e.SiteID}
	var data *model.SoilData
	err := tx.Transaction(ctx, func(tx Store) error {
		site, err := s.siteFor(ctx, tx, user, e.SiteID, permission.SiteEnterData, permission.SiteUpdateDepthInterval)
		if err != nil {
			return err
		}
		if err := validation.Validate(&e.SoilData); err != nil {
			return err
		}
		d, err := loadSoilData(ctx, tx, site.ID)
		if err != nil {
			return err
		}
		if err := applySoilData(ctx, tx, d, &e.SoilData.SoilDataInput); err != nil {
			return err
		}
		for i := range e.SoilData.DepthIntervals {
			if err := upsertDepthInterval(ctx, tx, d, &e.SoilData.DepthIntervals[i]); err != nil {
				return err
			}
		}
		for i := range e.SoilData.DepthDependentData {
			if _, err := upsertDepthData(ctx, tx, d, &e.SoilData.DepthDependentData[i]); err != nil {
				return err
			}
		}
		if err := deleteDepthIntervals(ctx, tx, d, e.SoilData.DeletedDepthIntervals); err != nil {
			return err
		}
		data = d
		return nil
	})
	if err == nil {
		res.SoilData = data
		return res, nil
	}
	reason, ok := reasonFor(err)
	if !ok {
		return res, err
	}
	s.log.Info().Err(err).Str("site_id", e.SiteID.String()).Str("reason", string(reason)).Msg("soil data push entry rejected")
	res.Reason = reason
	return res, nil
}

// PushSoilMetadata applies offline rating entries the way PushSoilData does.
func (s *Service) PushSoilMetadata(ctx context.Context, user *model.User, entries []SoilMetadataPushEntry) ([]SoilMetadataPushResult, error) {
	if user == nil {
		return nil, ErrNotAllowed
	}
	siteIDs := make([]uuid.UUID, len(entries))
	changes := make([]interface{}, len(entries))
	for i := range entries {
		siteIDs[i] = entries[i].SiteID
		changes[i] = entries[i].SoilMetadata
	}
	history, err := s.recordHistory(ctx, user, model.HistorySoilMetadata, siteIDs, changes)
	if err != nil {
		return nil, err
	}

	results := make([]SoilMetadataPushResult, len(entries))
	err = s.store.Transaction(ctx, func(tx Store) error {
		for i := range entries {
			res, err := s.pushSoilMetadataEntry(ctx, tx, user, &entries[i])
			if err != nil {
				return err
			}
			if err := finishHistory(ctx, tx, history[i], res.Reason); err != nil {
				return err
			}
			metrics.RecordPushEntry(model.HistorySoilMetadata, resultLabel(res.Reason))
			results[i] = res
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) pushSoilMetadataEntry(ctx context.Context, tx Store, user *model.User, e *SoilMetadataPushEntry) (SoilMetadataPushResult, error) {
	res := SoilMetadataPushResult{SiteID: e.SiteID}
	var meta *model.SoilMetadata
	err := tx.Transaction(ctx, func(tx Store) error {
		site, err := s.siteFor(ctx, tx, user, e.SiteID, permission.SiteEnterData)
		if err != nil {
			return err
		}
		if err := validation.Validate(&e.SoilMetadata); err != nil {
			return err
		}
		meta, err = applySoilMetadata(ctx, tx, site.ID, e.SoilMetadata)
		return err
	})
	if err == nil {
		res.SoilMetadata = meta
		return res, nil
	}
	reason, ok := reasonFor(err)
	if !ok {
		return res, err
	}
	s.log.Info().Err(err).Str("site_id", e.SiteID.String()).Str("reason", string(reason)).Msg("soil metadata push entry rejected")
	res.Reason = reason
	return res, nil
}

// PushSiteData runs both pushes. A failure in one kind is reported in its
// error field and does not stop the other.
func (s *Service) PushSiteData(ctx context.Context, user *model.User, in SiteDataPush) (*SiteDataPushResult, error) {
	if len(in.SoilDataEntries) == 0 && len(in.SoilMetadataEntries) == 0 {
		return nil, ErrEmptyPush
	}
	if user == nil {
		return nil, ErrNotAllowed
	}
	out := &SiteDataPushResult{}
	if len(in.SoilDataEntries) > 0 {
		results, err := s.PushSoilData(ctx, user, in.SoilDataEntries)
		if err != nil {
			s.log.Error().Err(err).Msg("unexpected error processing soil data entries")
			out.SoilDataError = err.Error()
		}
		out.SoilDataResults = results
	}
	if len(in.SoilMetadataEntries) > 0 {
		results, err := s.PushSoilMetadata(ctx, user, in.SoilMetadataEntries)
		if err != nil {
			s.log.Error().Err(err).Msg("unexpected error processing soil metadata entries")
			out.SoilMetadataError = err.Error()
		}
		out.SoilMetadataResults = results
	}
	return out, nil
}
