package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// DepthInterval is a [Start, End) band in centimeters below the surface.
type DepthInterval struct {
	Start int `gorm:"column:depth_interval_start" json:"start"`
	End   int `gorm:"column:depth_interval_end" json:"end"`
}

func (d DepthInterval) String() string {
	return fmt.Sprintf("%d-%d", d.Start, d.End)
}

type SoilData struct {
	TimestampedModel
	SiteID                 uuid.UUID               `gorm:"column:site_id;type:uuid" json:"siteId"`
	DepthIntervalPreset    DepthIntervalPreset     `gorm:"column:depth_interval_preset;default:LANDPKS" json:"depthIntervalPreset"`
	DownSlope              string                  `gorm:"column:down_slope" json:"downSlope,omitempty"`
	CrossSlope             string                  `gorm:"column:cross_slope" json:"crossSlope,omitempty"`
	Bedrock                *int                    `gorm:"column:bedrock" json:"bedrock,omitempty"`
	SlopeLandscapePosition string                  `gorm:"column:slope_landscape_position" json:"slopeLandscapePosition,omitempty"`
	SlopeAspect            *int                    `gorm:"column:slope_aspect" json:"slopeAspect,omitempty"`
	SlopeSteepnessSelect   string                  `gorm:"column:slope_steepness_select" json:"slopeSteepnessSelect,omitempty"`
	SlopeSteepnessPercent  *int                    `gorm:"column:slope_steepness_percent" json:"slopeSteepnessPercent,omitempty"`
	SlopeSteepnessDegree   *int                    `gorm:"column:slope_steepness_degree" json:"slopeSteepnessDegree,omitempty"`
	SurfaceCracksSelect    string                  `gorm:"column:surface_cracks_select" json:"surfaceCracksSelect,omitempty"`
	SurfaceSaltSelect      string                  `gorm:"column:surface_salt_select" json:"surfaceSaltSelect,omitempty"`
	FloodingSelect         string                  `gorm:"column:flooding_select" json:"floodingSelect,omitempty"`
	LimeRequirementsSelect string                  `gorm:"column:lime_requirements_select" json:"limeRequirementsSelect,omitempty"`
	SurfaceStoninessSelect string                  `gorm:"column:surface_stoniness_select" json:"surfaceStoninessSelect,omitempty"`
	WaterTableDepthSelect  string                  `gorm:"column:water_table_depth_select" json:"waterTableDepthSelect,omitempty"`
	SoilDepthSelect        string                  `gorm:"column:soil_depth_select" json:"soilDepthSelect,omitempty"`
	LandCoverSelect        string                  `gorm:"column:land_cover_select" json:"landCoverSelect,omitempty"`
	GrazingSelect          string                  `gorm:"column:grazing_select" json:"grazingSelect,omitempty"`
	DepthIntervals         []SoilDataDepthInterval `gorm:"foreignKey:SoilDataID" json:"depthIntervals"`
	DepthDependentData     []DepthDependentData    `gorm:"foreignKey:SoilDataID" json:"depthDependentData"`
}

func (SoilData) TableName() string {
	return "soil_data"
}

type SoilDataDepthInterval struct {
	TimestampedModel
	SoilDataID uuid.UUID `gorm:"column:soil_data_id;type:uuid" json:"-"`
	Label      string    `gorm:"column:label" json:"label"`
	DepthInterval
	SoilTextureEnabled             *bool `gorm:"column:soil_texture_enabled" json:"soilTextureEnabled,omitempty"`
	SoilColorEnabled               *bool `gorm:"column:soil_color_enabled" json:"soilColorEnabled,omitempty"`
	CarbonatesEnabled              *bool `gorm:"column:carbonates_enabled" json:"carbonatesEnabled,omitempty"`
	PhEnabled                      *bool `gorm:"column:ph_enabled" json:"phEnabled,omitempty"`
	SoilOrganicCarbonMatterEnabled *bool `gorm:"column:soil_organic_carbon_matter_enabled" json:"soilOrganicCarbonMatterEnabled,omitempty"`
	ElectricalConductivityEnabled  *bool `gorm:"column:electrical_conductivity_enabled" json:"electricalConductivityEnabled,omitempty"`
	SodiumAdsorptionRatioEnabled   *bool `gorm:"column:sodium_adsorption_ratio_enabled" json:"sodiumAdsorptionRatioEnabled,omitempty"`
	SoilStructureEnabled           *bool `gorm:"column:soil_structure_enabled" json:"soilStructureEnabled,omitempty"`
}

func (SoilDataDepthInterval) TableName() string {
	return "soil_data_depth_intervals"
}

type DepthDependentData struct {
	TimestampedModel
	SoilDataID uuid.UUID `gorm:"column:soil_data_id;type:uuid" json:"-"`
	DepthInterval
	Texture                  *string  `gorm:"column:texture" json:"texture,omitempty"`
	ClayPercent              *int     `gorm:"column:clay_percent" json:"clayPercent,omitempty"`
	RockFragmentVolume       *string  `gorm:"column:rock_fragment_volume" json:"rockFragmentVolume,omitempty"`
	ColorHueSubstep          *string  `gorm:"column:color_hue_substep" json:"colorHueSubstep,omitempty"`
	ColorHue                 *string  `gorm:"column:color_hue" json:"colorHue,omitempty"`
	ColorValue               *string  `gorm:"column:color_value" json:"colorValue,omitempty"`
	ColorChroma              *string  `gorm:"column:color_chroma" json:"colorChroma,omitempty"`
	ColorPhotoUsed           *bool    `gorm:"column:color_photo_used" json:"colorPhotoUsed,omitempty"`
	Conductivity             *float64 `gorm:"column:conductivity" json:"conductivity,omitempty"`
	ConductivityTest         *string  `gorm:"column:conductivity_test" json:"conductivityTest,omitempty"`
	ConductivityUnit         *string  `gorm:"column:conductivity_unit" json:"conductivityUnit,omitempty"`
	Structure                *string  `gorm:"column:structure" json:"structure,omitempty"`
	Ph                       *float64 `gorm:"column:ph" json:"ph,omitempty"`
	PhTestingSolution        *string  `gorm:"column:ph_testing_solution" json:"phTestingSolution,omitempty"`
	PhTestingMethod          *string  `gorm:"column:ph_testing_method" json:"phTestingMethod,omitempty"`
	SoilOrganicCarbon        *float64 `gorm:"column:soil_organic_carbon" json:"soilOrganicCarbon,omitempty"`
	SoilOrganicMatter        *float64 `gorm:"column:soil_organic_matter" json:"soilOrganicMatter,omitempty"`
	SoilOrganicCarbonTesting *string  `gorm:"column:soil_organic_carbon_testing" json:"soilOrganicCarbonTesting,omitempty"`
	SoilOrganicMatterTesting *string  `gorm:"column:soil_organic_matter_testing" json:"soilOrganicMatterTesting,omitempty"`
	SodiumAbsorptionRatio    *float64 `gorm:"column:sodium_absorption_ratio" json:"sodiumAbsorptionRatio,omitempty"`
	Carbonates               *string  `gorm:"column:carbonates" json:"carbonates,omitempty"`
}

func (DepthDependentData) TableName() string {
	return "depth_dependent_soil_data"
}

type ProjectSoilSettings struct {
	TimestampedModel
	ProjectID                       uuid.UUID              `gorm:"column:project_id;type:uuid" json:"projectId"`
	MeasurementUnits                *MeasurementUnits      `gorm:"column:measurement_units" json:"measurementUnits,omitempty"`
	DepthIntervalPreset             DepthIntervalPreset    `gorm:"column:depth_interval_preset;default:LANDPKS" json:"depthIntervalPreset"`
	SoilPitRequired                 bool                   `gorm:"column:soil_pit_required" json:"soilPitRequired"`
	SlopeRequired                   bool                   `gorm:"column:slope_required" json:"slopeRequired"`
	SoilTextureRequired             bool                   `gorm:"column:soil_texture_required" json:"soilTextureRequired"`
	SoilColorRequired               bool                   `gorm:"column:soil_color_required" json:"soilColorRequired"`
	VerticalCrackingRequired        bool                   `gorm:"column:vertical_cracking_required" json:"verticalCrackingRequired"`
	CarbonatesRequired              bool                   `gorm:"column:carbonates_required" json:"carbonatesRequired"`
	PhRequired                      bool                   `gorm:"column:ph_required" json:"phRequired"`
	SoilOrganicCarbonMatterRequired bool                   `gorm:"column:soil_organic_carbon_matter_required" json:"soilOrganicCarbonMatterRequired"`
	ElectricalConductivityRequired  bool                   `gorm:"column:electrical_conductivity_required" json:"electricalConductivityRequired"`
	SodiumAdsorptionRatioRequired   bool                   `gorm:"column:sodium_adsorption_ratio_required" json:"sodiumAdsorptionRatioRequired"`
	SoilStructureRequired           bool                   `gorm:"column:soil_structure_required" json:"soilStructureRequired"`
	LandUseLandCoverRequired        bool                   `gorm:"column:land_use_land_cover_required" json:"landUseLandCoverRequired"`
	SoilLimitationsRequired         bool                   `gorm:"column:soil_limitations_required" json:"soilLimitationsRequired"`
	PhotosRequired                  bool                   `gorm:"column:photos_required" json:"photosRequired"`
	NotesRequired                   bool                   `gorm:"column:notes_required" json:"notesRequired"`
	DepthIntervals                  []ProjectDepthInterval `gorm:"foreignKey:ProjectSoilSettingsID" json:"depthIntervals"`
}

func (ProjectSoilSettings) TableName() string {
	return "project_soil_settings"
}

type ProjectDepthInterval struct {
	TimestampedModel
	ProjectSoilSettingsID uuid.UUID `gorm:"column:project_soil_settings_id;type:uuid" json:"-"`
	Label                 string    `gorm:"column:label" json:"label" validate:"max=10"`
	DepthInterval
}

func (ProjectDepthInterval) TableName() string {
	return "project_depth_intervals"
}

// History kinds recorded by offline pushes.
const (
	HistorySoilData     = "soil_data"
	HistorySoilMetadata = "soil_metadata"
)

type SoilDataHistory struct {
	TimestampedModel
	Kind                string     `gorm:"column:kind" json:"kind"`
	SiteID              *uuid.UUID `gorm:"column:site_id;type:uuid" json:"siteId,omitempty"`
	ChangedByID         uuid.UUID  `gorm:"column:changed_by_id;type:uuid" json:"changedById"`
	UpdateSucceeded     bool       `gorm:"column:update_succeeded" json:"updateSucceeded"`
	UpdateFailureReason *string    `gorm:"column:update_failure_reason" json:"updateFailureReason,omitempty"`
	SoilDataChanges     JSON       `gorm:"column:soil_data_changes;type:jsonb" json:"soilDataChanges"`
}

func (SoilDataHistory) TableName() string {
	return "soil_data_histories"
}

// UserRatings maps soil match ids to the user's rating.
type UserRatings map[string]UserRating

func (r UserRatings) Value() (driver.Value, error) {
	if r == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]UserRating(r))
	return string(b), err
}

func (r *UserRatings) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*r = UserRatings{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into UserRatings", value)
	}
	m := map[string]UserRating{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*r = m
	return nil
}

type SoilMetadata struct {
	TimestampedModel
	SiteID         uuid.UUID   `gorm:"column:site_id;type:uuid" json:"siteId"`
	SelectedSoilID *string     `gorm:"column:selected_soil_id" json:"selectedSoilId"`
	UserRatings    UserRatings `gorm:"column:user_ratings;type:jsonb" json:"userRatings"`
}

func (SoilMetadata) TableName() string {
	return "soil_metadata"
}

type SoilIDCache struct {
	TimestampedModel
	Latitude                float64 `gorm:"column:latitude" json:"latitude"`
	Longitude               float64 `gorm:"column:longitude" json:"longitude"`
	FailureReason           *string `gorm:"column:failure_reason" json:"failureReason,omitempty"`
	SoilListJSON            JSON    `gorm:"column:soil_list_json;type:jsonb" json:"soilListJson,omitempty"`
	RankDataCSV             *string `gorm:"column:rank_data_csv" json:"rankDataCsv,omitempty"`
	MapUnitComponentDataCSV *string `gorm:"column:map_unit_component_data_csv" json:"mapUnitComponentDataCsv,omitempty"`
}

func (SoilIDCache) TableName() string {
	return "soil_id_caches"
}
