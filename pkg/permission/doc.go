// Package permission maps project and site actions to named predicates and
// holds the access rules for groups, landscapes, shared data, story maps and
// export tokens.
//
// Predicates read roles from preloaded membership lists unless the Checker
// is built with another RoleLookup.
package permission
