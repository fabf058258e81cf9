// Package soil holds site soil data, depth intervals, soil match ratings,
// project soil settings and the offline push of all of them.
package soil
