// Package soilid proxies the external soil identification algorithm.
//
// Soil lists are cached per coordinate, rounded to six decimals, including
// lookups the algorithm could not answer. Ranked results are recomputed on
// every request since they depend on the user's data.
package soilid
