// Package events provides the in-process publish/subscribe event bus.
//
// Services emit events without knowing which handlers will process them,
// enabling loose coupling between the request path and background work.
// Handler failures are contained at the bus: an error or panic in one
// handler is logged and never reaches the emitter or the remaining
// handlers for the event.
//
// The primary components are:
// - Event: an immutable record that something happened
// - Bus: the dispatcher with per-name handler lists and a bounded history
// - Handler: the function type handlers implement
package events
