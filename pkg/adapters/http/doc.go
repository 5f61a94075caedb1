// Package http exposes intake sessions over a JSON API built on chi.
//
// Callers identify themselves with the X-User-Email header; the profile is
// resolved through an access.Directory and its capabilities decide what the
// caller may do. Session events are streamed with Server-Sent Events.
package http
