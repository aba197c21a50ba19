// Package metric manages Prometheus metric registration and the HTTP
// endpoint exposing them.
//
// Components create their own counters and gauges and register them
// here under a component name; the Server serves the shared registry
// on /metrics.
package metric
