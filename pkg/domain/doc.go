/*
Package domain contains the core domain models of the intake engine.

It defines the form data carried through a multi-step intake, the step
definitions that describe it, the draft records that make it recoverable and
the error taxonomy shared by every adapter. The package is kept pure and free
of I/O so that stores, gateways and transports can all depend on it.

# Key Entities

  - StepData / FormState: the opaque field bags collected per step.
  - StepDefinition: one ordered step with its Validator.
  - DraftRecord: the recoverable snapshot of an unfinished intake.
  - Snapshot: the read-only view of a running workflow session.
  - SnapshotDiff: the partial update between two snapshots.
  - CompanyRecord: what a Submission Gateway commits.
*/
package domain
