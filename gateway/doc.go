// Package gateway exposes the dispatch board over HTTP.
//
// It is a read-only surface: REST endpoints serve JSON snapshots of
// the open and closed cases, and a WebSocket endpoint streams case
// change events to connected boards as they happen. All state comes
// from the CaseManager; the gateway never mutates it.
package gateway
