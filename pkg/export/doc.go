// Package export renders site data for download.
//
// Exports are addressed either by a long lived token, which anyone holding
// the link may use, or by resource id for a signed in user. Both produce the
// same JSON document or a flattened CSV with one row per depth interval.
package export
