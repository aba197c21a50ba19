// Package config loads and validates the board's YAML configuration:
// which log files or NATS subjects to ingest, how long closed cases
// are kept, and where the gateway and metrics endpoints listen.
package config
