package soilid

import (
	"encoding/json"

	"github.com/techmatters/terraso-go/pkg/model"
)

// FailureReason is reported instead of matches when the service has no answer.
type FailureReason string

const (
	DataUnavailable  FailureReason = "DATA_UNAVAILABLE"
	AlgorithmFailure FailureReason = "ALGORITHM_FAILURE"
)

// notDisplayed marks ranks the service computed but does not want shown.
const notDisplayed = "Not Displayed"

// ListOutput is the body of the service's list endpoint.
type ListOutput struct {
	SoilListJSON            json.RawMessage `json:"soil_list_json,omitempty"`
	RankDataCSV             string          `json:"rank_data_csv,omitempty"`
	MapUnitComponentDataCSV string          `json:"map_unit_component_data_csv,omitempty"`
	FailureReason           FailureReason   `json:"failure_reason,omitempty"`
}

// RankOutput is the body of the service's rank endpoint.
type RankOutput struct {
	SoilRank      []rankedMatch `json:"soilRank"`
	FailureReason FailureReason `json:"failure_reason,omitempty"`
}

type EcologicalSite struct {
	Name string `json:"name"`
	ID   string `json:"id"`
	URL  string `json:"url"`
}

type SoilSeries struct {
	Name               string `json:"name"`
	TaxonomySubgroup   string `json:"taxonomySubgroup"`
	Description        string `json:"description"`
	FullDescriptionURL string `json:"fullDescriptionUrl"`
}

type LandCapabilityClass struct {
	CapabilityClass string `json:"capabilityClass"`
	SubClass        string `json:"subClass"`
}

type DepthData struct {
	DepthInterval      model.DepthInterval `json:"depthInterval"`
	Texture            *string             `json:"texture,omitempty"`
	RockFragmentVolume *string             `json:"rockFragmentVolume,omitempty"`
	MunsellColorString *string             `json:"munsellColorString,omitempty"`
}

type SoilData struct {
	Slope              *float64    `json:"slope,omitempty"`
	DepthDependentData []DepthData `json:"depthDependentData"`
}

type SoilInfo struct {
	SoilSeries          SoilSeries          `json:"soilSeries"`
	EcologicalSite      *EcologicalSite     `json:"ecologicalSite,omitempty"`
	LandCapabilityClass LandCapabilityClass `json:"landCapabilityClass"`
	SoilData            SoilData            `json:"soilData"`
}

// MatchInfo holds a score and a zero-based rank.
type MatchInfo struct {
	Score float64 `json:"score"`
	Rank  int     `json:"rank"`
}

type LocationBasedMatch struct {
	DataSource                string    `json:"dataSource"`
	DistanceToNearestMapUnitM float64   `json:"distanceToNearestMapUnitM"`
	Match                     MatchInfo `json:"match"`
	SoilInfo                  SoilInfo  `json:"soilInfo"`
}

type DataBasedMatch struct {
	DataSource                string    `json:"dataSource"`
	DistanceToNearestMapUnitM float64   `json:"distanceToNearestMapUnitM"`
	LocationMatch             MatchInfo `json:"locationMatch"`
	DataMatch                 MatchInfo `json:"dataMatch"`
	CombinedMatch             MatchInfo `json:"combinedMatch"`
	SoilInfo                  SoilInfo  `json:"soilInfo"`
}

// LocationBasedResult holds either matches or a failure reason.
type LocationBasedResult struct {
	Matches []LocationBasedMatch `json:"matches,omitempty"`
	Reason  FailureReason        `json:"reason,omitempty"`
}

type DataBasedResult struct {
	Matches []DataBasedMatch `json:"matches,omitempty"`
	Reason  FailureReason    `json:"reason,omitempty"`
}

type LABColor struct {
	L float64 `json:"L"`
	A float64 `json:"A"`
	B float64 `json:"B"`
}

type InputDepthData struct {
	DepthInterval      model.DepthInterval `json:"depthInterval"`
	Texture            *string             `json:"texture,omitempty" validate:"omitempty,choice=texture"`
	RockFragmentVolume *string             `json:"rockFragmentVolume,omitempty" validate:"omitempty,choice=rock_fragment_volume"`
	ColorLAB           *LABColor           `json:"colorLAB,omitempty"`
}

// InputData is the soil data a user entered, sent to the ranking.
type InputData struct {
	Slope              *float64         `json:"slope,omitempty"`
	SurfaceCracks      *string          `json:"surfaceCracks,omitempty" validate:"omitempty,choice=surface_cracks"`
	DepthDependentData []InputDepthData `json:"depthDependentData" validate:"dive"`
}

// RankRequest is the body posted to the rank endpoint.
type RankRequest struct {
	Latitude       float64     `json:"lat"`
	Longitude      float64     `json:"lon"`
	ListOutputData *ListOutput `json:"list_output_data"`
	SoilHorizon    []*string   `json:"soilHorizon"`
	HorizonDepth   []int       `json:"horizonDepth"`
	RFVDepth       []*string   `json:"rfvDepth"`
	LabColor       [][]float64 `json:"lab_Color"`
	Slope          *float64    `json:"pSlope"`
	Elevation      *float64    `json:"pElev"`
	Bedrock        *int        `json:"bedrock"`
	Cracks         bool        `json:"cracks"`
}
