package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/techmatters/terraso-go/pkg/model"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// choices backs the `choice=<name>` tag.
var choices = map[string][]string{
	"slope_shape":          model.SlopeShapes,
	"landscape_position":   model.LandscapePositions,
	"slope_steepness":      model.SlopeSteepnesses,
	"surface_cracks":       model.SurfaceCracks,
	"texture":              model.Textures,
	"rock_fragment_volume": model.RockFragmentVolumes,
	"color_hue_substep":    model.ColorHueSubsteps,
	"color_hue":            model.ColorHues,
	"color_value":          model.ColorValues,
	"color_chroma":         model.ColorChromas,
	"conductivity_test":    model.ConductivityTests,
	"conductivity_unit":    model.ConductivityUnits,
	"structure":            model.SoilStructures,
	"ph_testing_solution":  model.PhTestingSolutions,
	"ph_testing_method":    model.PhTestingMethods,
	"soil_testing_method":  model.SoilTestingMethods,
	"carbonates":           model.CarbonateResponses,
	"depth_preset":         {"LANDPKS", "NRCS", "NONE", "CUSTOM"},
	"user_rating":          {"SELECTED", "REJECTED", "UNSURE"},
	"project_role":         {"manager", "contributor", "viewer"},
	"group_role":           {"manager", "member"},
	"privacy":              {"PRIVATE", "PUBLIC"},
	"measurement_units":    {"ENGLISH", "IMPERIAL", "METRIC"},
}

// FieldError is one failed rule on one field.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return e.Message
}

// RequestValidationError collects every FieldError of a validated struct.
type RequestValidationError struct {
	Fields []FieldError
}

func (ve *RequestValidationError) Error() string {
	if len(ve.Fields) == 0 {
		return "validation failed"
	}
	messages := make([]string, len(ve.Fields))
	for i, f := range ve.Fields {
		messages[i] = f.Message
	}
	return strings.Join(messages, "; ")
}

// Get returns the shared validator.
func Get() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		_ = validate.RegisterValidation("choice", validateChoice)
	})
	return validate
}

func validateChoice(fl validator.FieldLevel) bool {
	list, ok := choices[fl.Param()]
	if !ok {
		return false
	}
	field := fl.Field()
	for field.Kind() == reflect.Ptr {
		if field.IsNil() {
			return true
		}
		field = field.Elem()
	}
	if field.Kind() != reflect.String {
		return false
	}
	if field.String() == "" {
		return true
	}
	return model.OneOf(field.String(), list)
}

// Choices returns the allowed values behind a `choice=` tag.
func Choices(name string) []string {
	return choices[name]
}

// Validate checks s against its validate tags. It returns nil or a
// *RequestValidationError.
func Validate(s interface{}) error {
	err := Get().Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return &RequestValidationError{Fields: []FieldError{{Field: "unknown", Tag: "unknown", Message: err.Error()}}}
	}

	fields := make([]FieldError, len(validationErrs))
	for i, fe := range validationErrs {
		fields[i] = FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Message: translate(fe),
		}
	}
	return &RequestValidationError{Fields: fields}
}

var plainMessages = map[string]string{
	"required": "%s is required",
	"email":    "%s must be a valid email address",
	"url":      "%s must be a valid URL",
	"uuid":     "%s must be a valid UUID",
}

var paramMessages = map[string]string{
	"oneof":   "%s must be one of: %s",
	"gte":     "%s must be greater than or equal to %s",
	"lte":     "%s must be less than or equal to %s",
	"gt":      "%s must be greater than %s",
	"lt":      "%s must be less than %s",
	"ltfield": "%s must be less than %s",
}

func translate(fe validator.FieldError) string {
	field, tag, param := fe.Field(), fe.Tag(), fe.Param()

	if tmpl, ok := plainMessages[tag]; ok {
		return fmt.Sprintf(tmpl, field)
	}
	if tmpl, ok := paramMessages[tag]; ok {
		return fmt.Sprintf(tmpl, field, param)
	}
	if tag == "choice" {
		return fmt.Sprintf("%s must be one of: %s", field, strings.Join(choices[param], " "))
	}

	isString := fe.Kind() == reflect.String
	switch tag {
	case "min":
		if isString {
			return fmt.Sprintf("%s must be at least %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		if isString {
			return fmt.Sprintf("%s must be at most %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at most %s", field, param)
	}
	return fmt.Sprintf("%s failed %s validation", field, tag)
}
