package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name    string   `json:"name" validate:"required,max=5"`
	Texture *string  `json:"texture" validate:"omitempty,choice=texture"`
	Ph      *float64 `json:"ph" validate:"omitempty,gte=0,lte=14"`
	Role    string   `json:"role" validate:"choice=project_role"`
}

func strPtr(s string) *string { return &s }
func fPtr(f float64) *float64 { return &f }

func TestValidatePasses(t *testing.T) {
	assert.NoError(t, Validate(&sample{Name: "ok", Texture: strPtr("CLAY"), Ph: fPtr(7), Role: "viewer"}))
	assert.NoError(t, Validate(&sample{Name: "ok"}))
}

func TestValidateCollectsFieldErrors(t *testing.T) {
	err := Validate(&sample{Name: "too long", Texture: strPtr("MUD"), Ph: fPtr(15), Role: "owner"})
	require.Error(t, err)

	var ve *RequestValidationError
	require.True(t, errors.As(err, &ve))

	byField := map[string]FieldError{}
	for _, f := range ve.Fields {
		byField[f.Field] = f
	}
	assert.Equal(t, "name must be at most 5 characters", byField["name"].Message)
	assert.Equal(t, "choice", byField["texture"].Tag)
	assert.Equal(t, "ph must be less than or equal to 14", byField["ph"].Message)
	assert.Contains(t, byField["role"].Message, "manager contributor viewer")
}

func TestRequired(t *testing.T) {
	err := Validate(&sample{})
	require.Error(t, err)
	assert.Equal(t, "name is required", err.Error())
}
