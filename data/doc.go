// Package data holds the domain model of the dispatch board: rescue
// cases, their clients, the rats working them and the case registry.
//
// All mutation is expected to happen on a single dispatcher goroutine
// (see the ingest package). Readers obtain consistent views through the
// accessor methods, which take a short-lived lock only to publish a
// consistent snapshot, and may subscribe to change events on the
// CaseManager instead of polling.
//
// Identity of users is composition based: both Client and Rat embed an
// Identity value carrying IRC nickname, CMDR name and platform. Two
// users are considered the same iff their IRC nicknames match.
package data
