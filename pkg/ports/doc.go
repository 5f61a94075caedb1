/*
Package ports defines the driven ports (interfaces) of the intake engine.

These interfaces decouple the workflow from storage, the system of record and
identity, so the same engine runs against memory, files, redis, sqlite or
postgres.

# Key Interfaces

  - DraftStore: persists recoverable drafts of unfinished intakes.
  - SubmissionGateway: commits a completed intake to the system of record.
  - CompanyDirectory: answers uniqueness questions during validation.
  - PermissionOracle: tells transports what the current user may do.
  - DistributedLocker: coordinates session access across replicas.
*/
package ports
