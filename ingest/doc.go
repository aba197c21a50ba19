// Package ingest moves chat lines from their sources into the parser.
//
// A Source is a long-lived line producer (a live log file, a NATS
// subject). The Consumer owns a small bounded queue: every attached
// Source runs on its own goroutine and pushes marshalled messages into
// the queue, while a single dispatcher goroutine drains it into the
// parser. All domain-model mutation therefore happens on exactly one
// goroutine, regardless of how many sources feed the board.
package ingest
