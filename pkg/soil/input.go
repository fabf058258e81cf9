package soil

import (
	"github.com/techmatters/terraso-go/pkg/model"
)

// SoilDataInput is a partial update of a site's soil data. Nil fields are
// left unchanged.
type SoilDataInput struct {
	DepthIntervalPreset    *model.DepthIntervalPreset `json:"depthIntervalPreset,omitempty" validate:"omitempty,choice=depth_preset"`
	DownSlope              *string                    `json:"downSlope,omitempty" validate:"omitempty,choice=slope_shape"`
	CrossSlope             *string                    `json:"crossSlope,omitempty" validate:"omitempty,choice=slope_shape"`
	Bedrock                *int                       `json:"bedrock,omitempty" validate:"omitempty,gte=0"`
	SlopeLandscapePosition *string                    `json:"slopeLandscapePosition,omitempty" validate:"omitempty,choice=landscape_position"`
	SlopeAspect            *int                       `json:"slopeAspect,omitempty" validate:"omitempty,gte=0,lte=359"`
	SlopeSteepnessSelect   *string                    `json:"slopeSteepnessSelect,omitempty" validate:"omitempty,choice=slope_steepness"`
	SlopeSteepnessPercent  *int                       `json:"slopeSteepnessPercent,omitempty" validate:"omitempty,gte=0"`
	SlopeSteepnessDegree   *int                       `json:"slopeSteepnessDegree,omitempty" validate:"omitempty,gte=0,lte=90"`
	SurfaceCracksSelect    *string                    `json:"surfaceCracksSelect,omitempty" validate:"omitempty,choice=surface_cracks"`
	SurfaceSaltSelect      *string                    `json:"surfaceSaltSelect,omitempty" validate:"omitempty,max=32"`
	FloodingSelect         *string                    `json:"floodingSelect,omitempty" validate:"omitempty,max=32"`
	LimeRequirementsSelect *string                    `json:"limeRequirementsSelect,omitempty" validate:"omitempty,max=32"`
	SurfaceStoninessSelect *string                    `json:"surfaceStoninessSelect,omitempty" validate:"omitempty,max=32"`
	WaterTableDepthSelect  *string                    `json:"waterTableDepthSelect,omitempty" validate:"omitempty,max=32"`
	SoilDepthSelect        *string                    `json:"soilDepthSelect,omitempty" validate:"omitempty,max=32"`
	LandCoverSelect        *string                    `json:"landCoverSelect,omitempty" validate:"omitempty,max=32"`
	GrazingSelect          *string                    `json:"grazingSelect,omitempty" validate:"omitempty,max=32"`
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

// Apply copies every set field onto d. The preset is handled by the caller
// since changing it deletes intervals.
func (in *SoilDataInput) Apply(d *model.SoilData) {
	setString(&d.DownSlope, in.DownSlope)
	setString(&d.CrossSlope, in.CrossSlope)
	setPtr(&d.Bedrock, in.Bedrock)
	setString(&d.SlopeLandscapePosition, in.SlopeLandscapePosition)
	setPtr(&d.SlopeAspect, in.SlopeAspect)
	setString(&d.SlopeSteepnessSelect, in.SlopeSteepnessSelect)
	setPtr(&d.SlopeSteepnessPercent, in.SlopeSteepnessPercent)
	setPtr(&d.SlopeSteepnessDegree, in.SlopeSteepnessDegree)
	setString(&d.SurfaceCracksSelect, in.SurfaceCracksSelect)
	setString(&d.SurfaceSaltSelect, in.SurfaceSaltSelect)
	setString(&d.FloodingSelect, in.FloodingSelect)
	setString(&d.LimeRequirementsSelect, in.LimeRequirementsSelect)
	setString(&d.SurfaceStoninessSelect, in.SurfaceStoninessSelect)
	setString(&d.WaterTableDepthSelect, in.WaterTableDepthSelect)
	setString(&d.SoilDepthSelect, in.SoilDepthSelect)
	setString(&d.LandCoverSelect, in.LandCoverSelect)
	setString(&d.GrazingSelect, in.GrazingSelect)
}

// presetChange reports the new preset when in changes it.
func (in *SoilDataInput) presetChange(d *model.SoilData) (model.DepthIntervalPreset, bool) {
	if in.DepthIntervalPreset == nil || *in.DepthIntervalPreset == d.DepthIntervalPreset {
		return "", false
	}
	return *in.DepthIntervalPreset, true
}

// DepthDependentInput updates the measurements of one depth interval.
type DepthDependentInput struct {
	DepthInterval            model.DepthInterval `json:"depthInterval"`
	Texture                  *string             `json:"texture,omitempty" validate:"omitempty,choice=texture"`
	ClayPercent              *int                `json:"clayPercent,omitempty" validate:"omitempty,gte=0,lte=100"`
	RockFragmentVolume       *string             `json:"rockFragmentVolume,omitempty" validate:"omitempty,choice=rock_fragment_volume"`
	ColorHueSubstep          *string             `json:"colorHueSubstep,omitempty" validate:"omitempty,choice=color_hue_substep"`
	ColorHue                 *string             `json:"colorHue,omitempty" validate:"omitempty,choice=color_hue"`
	ColorValue               *string             `json:"colorValue,omitempty" validate:"omitempty,choice=color_value"`
	ColorChroma              *string             `json:"colorChroma,omitempty" validate:"omitempty,choice=color_chroma"`
	ColorPhotoUsed           *bool               `json:"colorPhotoUsed,omitempty"`
	Conductivity             *float64            `json:"conductivity,omitempty" validate:"omitempty,gte=0"`
	ConductivityTest         *string             `json:"conductivityTest,omitempty" validate:"omitempty,choice=conductivity_test"`
	ConductivityUnit         *string             `json:"conductivityUnit,omitempty" validate:"omitempty,choice=conductivity_unit"`
	Structure                *string             `json:"structure,omitempty" validate:"omitempty,choice=structure"`
	Ph                       *float64            `json:"ph,omitempty" validate:"omitempty,gte=0,lte=14"`
	PhTestingSolution        *string             `json:"phTestingSolution,omitempty" validate:"omitempty,choice=ph_testing_solution"`
	PhTestingMethod          *string             `json:"phTestingMethod,omitempty" validate:"omitempty,choice=ph_testing_method"`
	SoilOrganicCarbon        *float64            `json:"soilOrganicCarbon,omitempty" validate:"omitempty,gte=0,lte=100"`
	SoilOrganicMatter        *float64            `json:"soilOrganicMatter,omitempty" validate:"omitempty,gte=0,lte=100"`
	SoilOrganicCarbonTesting *string             `json:"soilOrganicCarbonTesting,omitempty" validate:"omitempty,choice=soil_testing_method"`
	SoilOrganicMatterTesting *string             `json:"soilOrganicMatterTesting,omitempty" validate:"omitempty,choice=soil_testing_method"`
	SodiumAbsorptionRatio    *float64            `json:"sodiumAbsorptionRatio,omitempty" validate:"omitempty,gte=0"`
	Carbonates               *string             `json:"carbonates,omitempty" validate:"omitempty,choice=carbonates"`
}

func setPtr[T any](dst **T, src *T) {
	if src != nil {
		v := *src
		*dst = &v
	}
}

// Apply copies every set measurement onto d.
func (in *DepthDependentInput) Apply(d *model.DepthDependentData) {
	setPtr(&d.Texture, in.Texture)
	setPtr(&d.ClayPercent, in.ClayPercent)
	setPtr(&d.RockFragmentVolume, in.RockFragmentVolume)
	setPtr(&d.ColorHueSubstep, in.ColorHueSubstep)
	setPtr(&d.ColorHue, in.ColorHue)
	setPtr(&d.ColorValue, in.ColorValue)
	setPtr(&d.ColorChroma, in.ColorChroma)
	setPtr(&d.ColorPhotoUsed, in.ColorPhotoUsed)
	setPtr(&d.Conductivity, in.Conductivity)
	setPtr(&d.ConductivityTest, in.ConductivityTest)
	setPtr(&d.ConductivityUnit, in.ConductivityUnit)
	setPtr(&d.Structure, in.Structure)
	setPtr(&d.Ph, in.Ph)
	setPtr(&d.PhTestingSolution, in.PhTestingSolution)
	setPtr(&d.PhTestingMethod, in.PhTestingMethod)
	setPtr(&d.SoilOrganicCarbon, in.SoilOrganicCarbon)
	setPtr(&d.SoilOrganicMatter, in.SoilOrganicMatter)
	setPtr(&d.SoilOrganicCarbonTesting, in.SoilOrganicCarbonTesting)
	setPtr(&d.SoilOrganicMatterTesting, in.SoilOrganicMatterTesting)
	setPtr(&d.SodiumAbsorptionRatio, in.SodiumAbsorptionRatio)
	setPtr(&d.Carbonates, in.Carbonates)
}

// DepthIntervalInput configures one site depth interval. ApplyToIntervals
// copies the enabled flags onto other existing intervals.
type DepthIntervalInput struct {
	DepthInterval                  model.DepthInterval   `json:"depthInterval"`
	Label                          *string               `json:"label,omitempty" validate:"omitempty,max=10"`
	SoilTextureEnabled             *bool                 `json:"soilTextureEnabled,omitempty"`
	SoilColorEnabled               *bool                 `json:"soilColorEnabled,omitempty"`
	CarbonatesEnabled              *bool                 `json:"carbonatesEnabled,omitempty"`
	PhEnabled                      *bool                 `json:"phEnabled,omitempty"`
	SoilOrganicCarbonMatterEnabled *bool                 `json:"soilOrganicCarbonMatterEnabled,omitempty"`
	ElectricalConductivityEnabled  *bool                 `json:"electricalConductivityEnabled,omitempty"`
	SodiumAdsorptionRatioEnabled   *bool                 `json:"sodiumAdsorptionRatioEnabled,omitempty"`
	SoilStructureEnabled           *bool                 `json:"soilStructureEnabled,omitempty"`
	ApplyToIntervals               []model.DepthInterval `json:"applyToIntervals,omitempty"`
}

func (in *DepthIntervalInput) applyFlags(i *model.SoilDataDepthInterval) {
	setPtr(&i.SoilTextureEnabled, in.SoilTextureEnabled)
	setPtr(&i.SoilColorEnabled, in.SoilColorEnabled)
	setPtr(&i.CarbonatesEnabled, in.CarbonatesEnabled)
	setPtr(&i.PhEnabled, in.PhEnabled)
	setPtr(&i.SoilOrganicCarbonMatterEnabled, in.SoilOrganicCarbonMatterEnabled)
	setPtr(&i.ElectricalConductivityEnabled, in.ElectricalConductivityEnabled)
	setPtr(&i.SodiumAdsorptionRatioEnabled, in.SodiumAdsorptionRatioEnabled)
	setPtr(&i.SoilStructureEnabled, in.SoilStructureEnabled)
}

// Apply sets the label and enabled flags on i.
func (in *DepthIntervalInput) Apply(i *model.SoilDataDepthInterval) {
	if in.Label != nil {
		i.Label = *in.Label
	}
	in.applyFlags(i)
}

// SoilMetadataInput updates soil match ratings. SelectedSoilID is the
// older single-selection form.
type SoilMetadataInput struct {
	SelectedSoilID *string           `json:"selectedSoilId,omitempty"`
	UserRatings    []UserRatingInput `json:"userRatings,omitempty" validate:"omitempty,dive"`
}

type UserRatingInput struct {
	SoilMatchID string           `json:"soilMatchId" validate:"required"`
	Rating      model.UserRating `json:"rating" validate:"required,choice=user_rating"`
}

// ProjectSoilSettingsInput is a partial update of project soil settings.
type ProjectSoilSettingsInput struct {
	MeasurementUnits                *model.MeasurementUnits    `json:"measurementUnits,omitempty" validate:"omitempty,choice=measurement_units"`
	DepthIntervalPreset             *model.DepthIntervalPreset `json:"depthIntervalPreset,omitempty" validate:"omitempty,choice=depth_preset"`
	SoilPitRequired                 *bool                      `json:"soilPitRequired,omitempty"`
	SlopeRequired                   *bool                      `json:"slopeRequired,omitempty"`
	SoilTextureRequired             *bool                      `json:"soilTextureRequired,omitempty"`
	SoilColorRequired               *bool                      `json:"soilColorRequired,omitempty"`
	VerticalCrackingRequired        *bool                      `json:"verticalCrackingRequired,omitempty"`
	CarbonatesRequired              *bool                      `json:"carbonatesRequired,omitempty"`
	PhRequired                      *bool                      `json:"phRequired,omitempty"`
	SoilOrganicCarbonMatterRequired *bool                      `json:"soilOrganicCarbonMatterRequired,omitempty"`
	ElectricalConductivityRequired  *bool                      `json:"electricalConductivityRequired,omitempty"`
	SodiumAdsorptionRatioRequired   *bool                      `json:"sodiumAdsorptionRatioRequired,omitempty"`
	SoilStructureRequired           *bool                      `json:"soilStructureRequired,omitempty"`
	LandUseLandCoverRequired        *bool                      `json:"landUseLandCoverRequired,omitempty"`
	SoilLimitationsRequired         *bool                      `json:"soilLimitationsRequired,omitempty"`
	PhotosRequired                  *bool                      `json:"photosRequired,omitempty"`
	NotesRequired                   *bool                      `json:"notesRequired,omitempty"`
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

// Apply copies the set requirement flags and units onto s.
func (in *ProjectSoilSettingsInput) Apply(s *model.ProjectSoilSettings) {
	setPtr(&s.MeasurementUnits, in.MeasurementUnits)
	setBool(&s.SoilPitRequired, in.SoilPitRequired)
	setBool(&s.SlopeRequired, in.SlopeRequired)
	setBool(&s.SoilTextureRequired, in.SoilTextureRequired)
	setBool(&s.SoilColorRequired, in.SoilColorRequired)
	setBool(&s.VerticalCrackingRequired, in.VerticalCrackingRequired)
	setBool(&s.CarbonatesRequired, in.CarbonatesRequired)
	setBool(&s.PhRequired, in.PhRequired)
	setBool(&s.SoilOrganicCarbonMatterRequired, in.SoilOrganicCarbonMatterRequired)
	setBool(&s.ElectricalConductivityRequired, in.ElectricalConductivityRequired)
	setBool(&s.SodiumAdsorptionRatioRequired, in.SodiumAdsorptionRatioRequired)
	setBool(&s.SoilStructureRequired, in.SoilStructureRequired)
	setBool(&s.LandUseLandCoverRequired, in.LandUseLandCoverRequired)
	setBool(&s.SoilLimitationsRequired, in.SoilLimitationsRequired)
	setBool(&s.PhotosRequired, in.PhotosRequired)
	setBool(&s.NotesRequired, in.NotesRequired)
}

// ProjectDepthIntervalInput creates or relabels a custom project interval.
type ProjectDepthIntervalInput struct {
	DepthInterval model.DepthInterval `json:"depthInterval"`
	Label         *string             `json:"label,omitempty" validate:"omitempty,max=10"`
}
