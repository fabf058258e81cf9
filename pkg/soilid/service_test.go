package soilid

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/techmatters/terraso-go/pkg/model"
)

type mockCache struct {
	mock.Mock
}

func (m *mockCache) FindSoilIDCache(ctx context.Context, lat, lon float64) (*model.SoilIDCache, error) {
	args := m.Called(lat, lon)
	if c := args.Get(0); c != nil {
		return c.(*model.SoilIDCache), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCache) SaveSoilIDCache(ctx context.Context, entry *model.SoilIDCache) error {
	return m.Called(entry).Error(0)
}

// sampleBackend serves the embedded responses and counts calls.
func sampleBackend(t *testing.T, listCalls, rankCalls *int32) *httptest.Server {
	t.Helper()
	list, err := SampleList()
	require.NoError(t, err)
	rank, err := SampleRank()
	require.NoError(t, err)
	listBody, err := json.Marshal(ListOutput{SoilListJSON: list, RankDataCSV: "a,b", MapUnitComponentDataCSV: "c,d"})
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("/list", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(listCalls, 1)
		assert.Equal(t, "1.123457", r.URL.Query().Get("lat"))
		_, _ = w.Write(listBody)
	})
	mux.HandleFunc("/rank", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(rankCalls, 1)
		var req RankRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.NotNil(t, req.ListOutputData)
		_, _ = w.Write(rank)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestLocationBasedMatches(t *testing.T) {
	var listCalls, rankCalls int32
	srv := sampleBackend(t, &listCalls, &rankCalls)
	cache := &mockCache{}
	cache.On("FindSoilIDCache", 1.123457, 2.5).Return(nil, nil)
	cache.On("SaveSoilIDCache", mock.MatchedBy(func(e *model.SoilIDCache) bool {
		return e.Latitude == 1.123457 && e.FailureReason == nil && *e.RankDataCSV == "a,b"
	})).Return(nil)

	svc := NewService(NewClient(ClientOptions{BaseURL: srv.URL}), cache)
	res, err := svc.LocationBasedMatches(context.Background(), 1.1234567, 2.5)
	require.NoError(t, err)
	assert.Empty(t, res.Reason)
	require.Len(t, res.Matches, 2)

	first := res.Matches[0]
	assert.Equal(t, 0, first.Match.Rank)
	assert.Equal(t, 0.62, first.Match.Score)
	assert.Equal(t, "SSURGO", first.DataSource)
	assert.Equal(t, "Yemassee", first.SoilInfo.SoilSeries.Name)
	require.NotNil(t, first.SoilInfo.EcologicalSite)
	assert.Equal(t, "R153AY001GA", first.SoilInfo.EcologicalSite.ID)
	assert.Equal(t, "6", first.SoilInfo.LandCapabilityClass.CapabilityClass)

	depths := first.SoilInfo.SoilData.DepthDependentData
	require.Len(t, depths, 2)
	assert.Equal(t, model.DepthInterval{Start: 0, End: 10}, depths[0].DepthInterval)
	assert.Equal(t, "CLAY_LOAM", *depths[0].Texture)
	assert.Equal(t, "VOLUME_1_15", *depths[0].RockFragmentVolume)
	assert.Nil(t, depths[0].MunsellColorString)
	assert.Equal(t, model.DepthInterval{Start: 10, End: 15}, depths[1].DepthInterval)
	assert.Nil(t, depths[1].RockFragmentVolume)
	assert.Equal(t, "10YR 2/6", *depths[1].MunsellColorString)

	assert.Nil(t, res.Matches[1].SoilInfo.EcologicalSite)
	assert.Equal(t, 1, res.Matches[1].Match.Rank)
	assert.EqualValues(t, 1, listCalls)
	assert.EqualValues(t, 0, rankCalls)
	cache.AssertExpectations(t)
}

func TestLocationBasedMatchesFromCache(t *testing.T) {
	reason := string(DataUnavailable)
	cache := &mockCache{}
	cache.On("FindSoilIDCache", 10.0, 20.0).Return(&model.SoilIDCache{FailureReason: &reason}, nil)

	// Unreachable backend: a hit must not call out.
	svc := NewService(NewClient(ClientOptions{}), cache)
	res, err := svc.LocationBasedMatches(context.Background(), 10, 20)
	require.NoError(t, err)
	assert.Equal(t, DataUnavailable, res.Reason)
	assert.Empty(t, res.Matches)
	cache.AssertNotCalled(t, "SaveSoilIDCache", mock.Anything)
}

func TestListCachesFailureReason(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"failure_reason":"DATA_UNAVAILABLE"}`))
	}))
	defer srv.Close()

	cache := &mockCache{}
	cache.On("FindSoilIDCache", 1.0, 1.0).Return(nil, nil)
	cache.On("SaveSoilIDCache", mock.MatchedBy(func(e *model.SoilIDCache) bool {
		return e.FailureReason != nil && *e.FailureReason == "DATA_UNAVAILABLE" && e.SoilListJSON == nil
	})).Return(nil)

	svc := NewService(NewClient(ClientOptions{BaseURL: srv.URL}), cache)
	out, err := svc.List(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, DataUnavailable, out.FailureReason)
	cache.AssertExpectations(t)
}

func TestDataBasedMatches(t *testing.T) {
	var listCalls, rankCalls int32
	srv := sampleBackend(t, &listCalls, &rankCalls)
	cache := &mockCache{}
	cache.On("FindSoilIDCache", 1.123457, 2.0).Return(nil, nil)
	cache.On("SaveSoilIDCache", mock.Anything).Return(nil)

	texture := "CLAY"
	svc := NewService(NewClient(ClientOptions{BaseURL: srv.URL}), cache)
	res, err := svc.DataBasedMatches(context.Background(), 1.123457, 2, InputData{
		DepthDependentData: []InputDepthData{{DepthInterval: model.DepthInterval{Start: 0, End: 10}, Texture: &texture}},
	})
	require.NoError(t, err)
	require.Len(t, res.Matches, 2)
	assert.Equal(t, "Randall", res.Matches[0].SoilInfo.SoilSeries.Name)
	assert.Equal(t, MatchInfo{Score: 0.71, Rank: 0}, res.Matches[0].CombinedMatch)
	assert.Equal(t, MatchInfo{Score: 0.31, Rank: 1}, res.Matches[0].LocationMatch)
	assert.Equal(t, 120.5, res.Matches[0].DistanceToNearestMapUnitM)
	assert.EqualValues(t, 1, rankCalls)
}

func TestDataBasedMatchesRejectsInvalidInput(t *testing.T) {
	bad := "GRAVEL"
	svc := NewService(NewClient(ClientOptions{}), &mockCache{})
	_, err := svc.DataBasedMatches(context.Background(), 0, 0, InputData{
		DepthDependentData: []InputDepthData{{Texture: &bad}},
	})
	assert.Error(t, err)
}

func TestRoundCoordinate(t *testing.T) {
	assert.Equal(t, 1.123457, RoundCoordinate(1.1234567))
	assert.Equal(t, -45.5, RoundCoordinate(-45.5))
}
