package ports

import (
	"context"

	"github.com/aretw0/intake/pkg/domain"
)

// SubmissionGateway commits a completed intake to the system of record,
// placing the company at the next workflow stage.
//
// Failures should wrap domain.ErrGatewayRejected when the record was refused
// (invalid or duplicate data) and domain.ErrGatewayUnavailable when the
// system of record could not be reached.
type SubmissionGateway interface {
	Submit(ctx context.Context, form domain.FormState) (recordID string, err error)
}

// CompanyDirectory answers lookups against already committed companies.
type CompanyDirectory interface {
	TaxIDExists(ctx context.Context, taxID string) (bool, error)
}
