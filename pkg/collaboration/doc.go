// Package collaboration implements the membership rules shared by groups,
// landscapes, projects and story maps.
package collaboration
