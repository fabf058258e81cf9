package model

type DepthIntervalPreset string

const (
	PresetLandPKS DepthIntervalPreset = "LANDPKS"
	PresetNRCS    DepthIntervalPreset = "NRCS"
	PresetNone    DepthIntervalPreset = "NONE"
	PresetCustom  DepthIntervalPreset = "CUSTOM"
)

func (p DepthIntervalPreset) Valid() bool {
	switch p {
	case PresetLandPKS, PresetNRCS, PresetNone, PresetCustom:
		return true
	}
	return false
}

type UserRating string

const (
	RatingSelected UserRating = "SELECTED"
	RatingRejected UserRating = "REJECTED"
	RatingUnsure   UserRating = "UNSURE"
)

func (r UserRating) Valid() bool {
	return r == RatingSelected || r == RatingRejected || r == RatingUnsure
}

// Choice lists for soil fields. They back validator oneof tags and API docs.
var (
	SlopeShapes = []string{"CONCAVE", "CONVEX", "LINEAR"}

	LandscapePositions = []string{
		"HILLS_MOUNTAINS", "HILLS_MOUNTAINS_SUMMIT", "HILLS_MOUNTAINS_SHOULDER",
		"HILLS_MOUNTAINS_BACKSLOPE", "ALLUVIAL_FAN", "FLOODPLAIN_BASIN", "TERRACE",
		"TERRACE_TREAD", "TERRACE_RISER", "FLAT_LOW_ROLLING_PLAIN", "PLAYA", "DUNES",
	}

	SlopeSteepnesses = []string{
		"FLAT", "GENTLE", "MODERATE", "ROLLING", "HILLY", "STEEP",
		"MODERATELY_STEEP", "VERY_STEEP", "STEEPEST",
	}

	Textures = []string{
		"SAND", "LOAMY_SAND", "SANDY_LOAM", "SILT_LOAM", "SILT", "LOAM",
		"SANDY_CLAY_LOAM", "SILTY_CLAY_LOAM", "CLAY_LOAM", "SANDY_CLAY",
		"SILTY_CLAY", "CLAY",
	}

	RockFragmentVolumes = []string{
		"VOLUME_0_1", "VOLUME_1_15", "VOLUME_15_35", "VOLUME_35_60", "VOLUME_60",
	}

	ColorHueSubsteps = []string{"SUBSTEP_2_5", "SUBSTEP_5", "SUBSTEP_7_5", "SUBSTEP_10"}
	ColorHues        = []string{"R", "YR", "Y", "GY", "G", "B", "BG"}
	ColorValues      = []string{
		"VALUE_2_5", "VALUE_3", "VALUE_4", "VALUE_5", "VALUE_6", "VALUE_7",
		"VALUE_8", "VALUE_8_5", "VALUE_9", "VALUE_9_5",
	}
	ColorChromas = []string{
		"CHROMA_1", "CHROMA_2", "CHROMA_3", "CHROMA_4",
		"CHROMA_5", "CHROMA_6", "CHROMA_7", "CHROMA_8",
	}

	ConductivityTests = []string{
		"SATURATED_PASTE", "SOIL_WATER_1_1", "SOIL_WATER_1_2", "SOIL_CONTACT_PROBE", "OTHER",
	}
	ConductivityUnits = []string{
		"MILLISIEMENS_CENTIMETER", "MILLIMHOS_CENTIMETER", "MICROSIEMENS_METER",
		"MILLISIEMENS_METER", "DECISIEMENS_METER", "OTHER",
	}

	SoilStructures = []string{
		"GRANULAR", "SUBANGULAR_BLOCKY", "ANGULAR_BLOCKY", "LENTICULAR", "PLAY",
		"WEDGE", "PRISMATIC", "COLUMNAR", "SINGLE_GRAIN", "MASSIVE",
	}

	PhTestingSolutions = []string{
		"SOIL_WATER_1_1", "SOIL_WATER_1_2", "SOIL_WATER_1_2_5", "SOIL_WATER_1_5",
		"SOIL_CACL2_1_1", "SOIL_CACL2_1_2", "SOIL_CACL2_1_5", "SOIL_KCL_1_1",
		"SOIL_KCL_1_2_5", "SOIL_KCL_1_5", "SATURATED_PASTE_EXTRACT", "OTHER",
	}
	PhTestingMethods = []string{"INDICATOR_STRIP", "INDICATOR_SOLUTION", "METER", "OTHER"}

	SoilTestingMethods = []string{
		"DRY_COMBUSTION", "WET_OXIDATION", "LOSS_ON_IGNITION",
		"REFLECTANCE_SPECTROSCOPY", "FIELD_REFLECTOMETER", "OTHER",
	}

	CarbonateResponses = []string{
		"NONEFFERVESCENT", "VERY_SLIGHTLY_EFFERVESCENT", "SLIGHTLY_EFFERVESCENT",
		"STRONGLY_EFFERVESCENT", "VIOLENTLY_EFFERVESCENT",
	}

	SurfaceCracks = []string{"NO_CRACKING", "SURFACE_CRACKING_ONLY", "DEEP_VERTICAL_CRACKS"}
)

// OneOf reports whether v is one of choices.
func OneOf(v string, choices []string) bool {
	for _, c := range choices {
		if v == c {
			return true
		}
	}
	return false
}
