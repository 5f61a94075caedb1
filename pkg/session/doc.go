/*
Package session hosts many intake workflows at once, keyed by session id.

Each operation on a session runs under a per-session lock. The lock is a
try-lock: a second caller is turned away with domain.ErrConcurrentOperation
rather than queued, matching the behaviour of a single Workflow. Locks are
reference counted and dropped once no caller holds them. When a
ports.DistributedLocker is configured the same exclusion holds across
replicas.
*/
package session
