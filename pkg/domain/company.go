package domain

import (
	"strings"
	"time"
)

// Stage is the workflow area a committed company currently sits in.
type Stage string

const (
	StageComercial  Stage = "COMERCIAL"
	StageOnboarding Stage = "ONBOARDING"
	StageSAC        Stage = "SAC"
	StageCompletada Stage = "COMPLETADA"
)

// Stages lists every stage in workflow order.
var Stages = []Stage{StageComercial, StageOnboarding, StageSAC, StageCompletada}

// CompanyRecord is what a Submission Gateway commits.
type CompanyRecord struct {
	ID        string    `json:"id"`
	TaxID     string    `json:"tax_id"`
	Name      string    `json:"name"`
	Stage     Stage     `json:"stage"`
	Payload   FormState `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

// CompanyKeys are the identifying fields a gateway extracts from a form.
type CompanyKeys struct {
	TaxID string
	Name  string
}

// KeyExtractor pulls the identifying fields out of a submitted form.
type KeyExtractor func(FormState) CompanyKeys

// NormalizeTaxID strips separators and upper-cases a tax id so that
// "76.086.428-5" and "760864285" compare equal.
func NormalizeTaxID(s string) string {
	return strings.ToUpper(strings.NewReplacer(".", "", "-", "", " ", "").Replace(strings.TrimSpace(s)))
}
