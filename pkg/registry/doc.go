// Package registry holds the ordered, immutable list of intake steps.
//
// A Registry is built once, either directly from step definitions or through
// the fluent Builder, and is then shared read-only by every workflow session.
package registry
