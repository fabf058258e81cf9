// Package metrics holds the process-wide Prometheus collectors.
//
// Collectors register on the default registry through promauto, so
// promhttp.Handler() in the server exposes them at /metrics.
package metrics
