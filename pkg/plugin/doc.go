// Package plugin adapts GoCD package material plugin requests to a poller.Poller.
//
// Each request name maps to one handler in a fixed dispatch table. Handlers decode the
// GoCD JSON envelope, call the poller and return a value ready to be encoded as the
// response body.
package plugin
