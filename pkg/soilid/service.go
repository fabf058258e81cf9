package soilid

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/techmatters/terraso-go/pkg/logging"
	"github.com/techmatters/terraso-go/pkg/metrics"
	"github.com/techmatters/terraso-go/pkg/model"
	"github.com/techmatters/terraso-go/pkg/validation"
)

// CacheStore persists soil list lookups by rounded coordinate.
type CacheStore interface {
	// FindSoilIDCache returns nil, nil when nothing is cached.
	FindSoilIDCache(ctx context.Context, lat, lon float64) (*model.SoilIDCache, error)
	// SaveSoilIDCache creates the entry or replaces the one at its coordinate.
	SaveSoilIDCache(ctx context.Context, entry *model.SoilIDCache) error
}

// RoundCoordinate keeps six decimals, roughly ten centimeters.
func RoundCoordinate(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

type Service struct {
	backend Backend
	cache   CacheStore
	log     *zerolog.Logger
}

func NewService(backend Backend, cache CacheStore) *Service {
	return &Service{backend: backend, cache: cache, log: logging.Component("soilid")}
}

func fromCache(c *model.SoilIDCache) *ListOutput {
	if c.FailureReason != nil {
		return &ListOutput{FailureReason: FailureReason(*c.FailureReason)}
	}
	out := &ListOutput{SoilListJSON: []byte(c.SoilListJSON)}
	if c.RankDataCSV != nil {
		out.RankDataCSV = *c.RankDataCSV
	}
	if c.MapUnitComponentDataCSV != nil {
		out.MapUnitComponentDataCSV = *c.MapUnitComponentDataCSV
	}
	return out
}

func toCache(lat, lon float64, out *ListOutput) *model.SoilIDCache {
	entry := &model.SoilIDCache{Latitude: lat, Longitude: lon}
	if out.FailureReason != "" {
		r := string(out.FailureReason)
		entry.FailureReason = &r
		return entry
	}
	entry.SoilListJSON = model.JSON(out.SoilListJSON)
	entry.RankDataCSV = &out.RankDataCSV
	entry.MapUnitComponentDataCSV = &out.MapUnitComponentDataCSV
	return entry
}

// List returns the soil list for a coordinate, from cache when possible.
// Failure reasons are cached as well as results.
func (s *Service) List(ctx context.Context, lat, lon float64) (*ListOutput, error) {
	lat, lon = RoundCoordinate(lat), RoundCoordinate(lon)
	cached, err := s.cache.FindSoilIDCache(ctx, lat, lon)
	if err != nil {
		return nil, fmt.Errorf("failed to read soil id cache: %w", err)
	}
	metrics.RecordCacheLookup(cached != nil)
	if cached != nil {
		return fromCache(cached), nil
	}

	out, err := s.backend.List(ctx, lat, lon)
	if err != nil {
		return nil, err
	}
	if out.FailureReason == "" && len(out.SoilListJSON) == 0 {
		out.FailureReason = DataUnavailable
	}
	if err := s.cache.SaveSoilIDCache(ctx, toCache(lat, lon, out)); err != nil {
		s.log.Warn().Err(err).Float64("lat", lat).Float64("lon", lon).Msg("failed to cache soil list")
	}
	return out, nil
}

func (s *Service) LocationBasedMatches(ctx context.Context, lat, lon float64) (*LocationBasedResult, error) {
	list, err := s.List(ctx, lat, lon)
	if err != nil {
		return nil, err
	}
	if list.FailureReason != "" {
		return &LocationBasedResult{Reason: list.FailureReason}, nil
	}
	matches, err := locationMatchesFromList(list.SoilListJSON)
	if err != nil {
		s.log.Error().Err(err).Msg("unreadable soil list")
		return &LocationBasedResult{Reason: AlgorithmFailure}, nil
	}
	return &LocationBasedResult{Matches: matches}, nil
}

func (s *Service) DataBasedMatches(ctx context.Context, lat, lon float64, data InputData) (*DataBasedResult, error) {
	if err := validation.Validate(&data); err != nil {
		return nil, err
	}
	list, err := s.List(ctx, lat, lon)
	if err != nil {
		return nil, err
	}
	if list.FailureReason != "" {
		return &DataBasedResult{Reason: list.FailureReason}, nil
	}

	req := ParseRankInput(data)
	req.Latitude, req.Longitude = RoundCoordinate(lat), RoundCoordinate(lon)
	req.ListOutputData = list
	ranked, err := s.backend.Rank(ctx, &req)
	if err != nil {
		return nil, err
	}
	if ranked.FailureReason != "" {
		return &DataBasedResult{Reason: ranked.FailureReason}, nil
	}
	matches, err := dataMatchesFromRank(list.SoilListJSON, ranked.SoilRank)
	if err != nil {
		s.log.Error().Err(err).Msg("unreadable soil rank")
		return &DataBasedResult{Reason: AlgorithmFailure}, nil
	}
	return &DataBasedResult{Matches: matches}, nil
}
