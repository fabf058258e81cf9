// Package validation wraps go-playground/validator with a shared instance.
//
// Field names in errors come from json tags. The custom `choice=<name>` tag
// checks string fields against the soil and membership choice lists. Pair it
// with omitempty on pointer fields.
package validation
