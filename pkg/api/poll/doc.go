// Package poll provides an HTTP API handler for triggering watch cycles on demand.
// It shares the scheduler's lock so that API-triggered and scheduled cycles never overlap.
//
// Usage example:
//
//	handler := poll.New(runCycle, lock)
//	server.RegisterFunc(handler.Pattern, handler.Handle)
package poll
