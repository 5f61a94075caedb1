/*
Package observability turns workflow lifecycle events into Prometheus metrics
and structured log lines.

Both are plain domain.LifecycleHooks values, so they can be merged with
Combine and handed to intake.WithLifecycleHooks.
*/
package observability
