// Package validation runs step validators and provides the stock ones.
//
// A Validator either checks data locally (Func, Schema, Required) or performs
// remote I/O (AsyncFunc, Unique). The Gate is the single entry point the
// workflow uses: it hands the validator only the active step's slice and
// turns validator failures into *domain.ValidationInfrastructureError so they
// never read as invalid data.
package validation
