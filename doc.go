// Package UberSpatchBoard is a dispatch board for Fuel Rats rescue
// operations. It tails IRC chat logs, classifies each line into semantic
// events (new case, command, jump call, status report) and applies those
// events to an in-memory registry of open and recently closed cases.
//
// # Architecture
//
// Data flows through a single pipeline:
//
//	Source -> Message -> Consumer queue -> Parser -> Handler -> CaseManager
//
// Any number of sources (log file tails, NATS subjects) feed a single
// bounded queue owned by the ingest.Consumer. Exactly one dispatcher
// goroutine drains the queue, so all domain-model mutation is
// single-writer even though production is concurrent. Readers observe the
// model through CaseManager snapshots or its change-event subscription;
// the gateway package exposes both over HTTP and WebSocket.
//
// Package overview:
//
//   - message: the immutable IRC message record
//   - marshal: raw log line -> message decoding (Hexchat format)
//   - ingest: sources, the bounded queue and the dispatcher
//   - parse: the line grammar, command model and event handler
//   - data: Case, Rat, Client, CaseManager and change events
//   - gateway: HTTP/WebSocket read surface over the case registry
//   - config: YAML configuration
//   - metric: Prometheus metrics registry
//   - errors: error classification and wrapping helpers
package usb
