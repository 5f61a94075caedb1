package catalog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/intake/pkg/adapters/memory"
	"github.com/aretw0/intake/pkg/catalog"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckDigit(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{"76086428", "5"},
		{"11111111", "1"},
		{"1", "9"},
		{"12345678", "5"},
		{"6", "K"},
		{"14", "0"},
	}
	for _, tt := range tests {
		got, err := catalog.CheckDigit(tt.body)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.body)
	}

	_, err := catalog.CheckDigit("12a4")
	assert.ErrorIs(t, err, catalog.ErrInvalidRUT)
}

func TestRUTFormatting(t *testing.T) {
	norm, err := catalog.NormalizeRUT("76.086.428-5")
	require.NoError(t, err)
	assert.Equal(t, "76086428-5", norm)

	formatted, err := catalog.FormatRUT("760864285")
	require.NoError(t, err)
	assert.Equal(t, "76.086.428-5", formatted)

	formatted, err = catalog.FormatRUT("6-k")
	require.NoError(t, err)
	assert.Equal(t, "6-K", formatted)

	assert.True(t, catalog.ValidRUT("11.111.111-1"))
	assert.False(t, catalog.ValidRUT("11.111.111-2"))
	assert.False(t, catalog.ValidRUT(""))
	assert.False(t, catalog.ValidRUT("1234567890-1"))
}

func TestNew_Layout(t *testing.T) {
	reg, err := catalog.New()
	require.NoError(t, err)

	assert.Equal(t, []string{
		"datos_generales", "datos_contacto", "actividades_economicas",
		"representantes_legales", "documentos_tributarios", "contrapartes",
		"usuarios_plataforma", "configuracion_notificaciones", "informacion_plan",
	}, reg.IDs())
	assert.Equal(t, reg.IDs(), catalog.StepIDs())
	assert.NotContains(t, reg.Required(), catalog.StepContrapartes)
	assert.NotContains(t, reg.Required(), catalog.StepNotificaciones)
	assert.Len(t, reg.Required(), 7)
	assert.Len(t, catalog.Schemas(), 9)
}

func general() domain.StepData {
	return domain.StepData{
		"rut":          "76.086.428-5",
		"nombre":       "Andes SpA",
		"giro":         "Software",
		"fecha_inicio": "2020-01-15",
	}
}

func TestGeneralStep(t *testing.T) {
	ctx := context.Background()
	reg, err := catalog.New()
	require.NoError(t, err)
	step, _ := reg.Lookup(catalog.StepDatosGenerales)
	gate := validation.NewGate()

	res, err := gate.Run(ctx, step, general())
	require.NoError(t, err)
	assert.True(t, res.OK(), res.Errors)

	bad := general()
	bad["rut"] = "76.086.428-4"
	delete(bad, "giro")
	res, err = gate.Run(ctx, step, bad)
	require.NoError(t, err)
	assert.False(t, res.OK())
	assert.Contains(t, res.Errors, "rut")
	assert.Equal(t, "required", res.Errors["giro"])
}

func TestGeneralStep_DuplicateRUT(t *testing.T) {
	ctx := context.Background()
	gw := memory.NewGateway(memory.WithKeyExtractor(catalog.Keys))
	_, err := gw.Submit(ctx, domain.FormState{catalog.StepDatosGenerales: general()})
	require.NoError(t, err)

	reg, err := catalog.New(catalog.WithDirectory(gw))
	require.NoError(t, err)
	step, _ := reg.Lookup(catalog.StepDatosGenerales)

	again := general()
	again["rut"] = "760864285"
	res, err := validation.NewGate().Run(ctx, step, again)
	require.NoError(t, err)
	assert.Equal(t, catalog.DuplicateRUTMessage, res.Errors["rut"])

	other := general()
	other["rut"] = "11.111.111-1"
	res, err = validation.NewGate().Run(ctx, step, other)
	require.NoError(t, err)
	assert.True(t, res.OK(), res.Errors)
}

type downDirectory struct{}

func (downDirectory) TaxIDExists(context.Context, string) (bool, error) {
	return false, errors.New("timeout")
}

func TestGeneralStep_DirectoryDown(t *testing.T) {
	reg, err := catalog.New(catalog.WithDirectory(downDirectory{}))
	require.NoError(t, err)
	step, _ := reg.Lookup(catalog.StepDatosGenerales)

	_, err = validation.NewGate().Run(context.Background(), step, general())
	var infra *domain.ValidationInfrastructureError
	assert.ErrorAs(t, err, &infra)
}

func TestListSteps(t *testing.T) {
	ctx := context.Background()
	reg, err := catalog.New()
	require.NoError(t, err)
	gate := validation.NewGate()

	reps, _ := reg.Lookup(catalog.StepRepresentantes)
	res, err := gate.Run(ctx, reps, domain.StepData{"representantes": []any{}})
	require.NoError(t, err)
	assert.Contains(t, res.Errors, "representantes")

	res, err = gate.Run(ctx, reps, domain.StepData{"representantes": []any{
		map[string]any{"rut": "11.111.111-1", "nombre": "Ana", "correo": "ana@andes.cl"},
	}})
	require.NoError(t, err)
	assert.True(t, res.OK(), res.Errors)

	contrapartes, _ := reg.Lookup(catalog.StepContrapartes)
	res, err = gate.Run(ctx, contrapartes, domain.StepData{})
	require.NoError(t, err)
	assert.True(t, res.OK(), res.Errors)
}

func TestPlanStep(t *testing.T) {
	reg, err := catalog.New()
	require.NoError(t, err)
	plan, _ := reg.Lookup(catalog.StepInformacionPlan)

	res, err := validation.NewGate().Run(context.Background(), plan, domain.StepData{"producto": "OTRO", "codigo_plan": "P1"})
	require.NoError(t, err)
	assert.Contains(t, res.Errors, "producto")
}

func TestKeys(t *testing.T) {
	keys := catalog.Keys(domain.FormState{catalog.StepDatosGenerales: general()})
	assert.Equal(t, domain.CompanyKeys{TaxID: "76086428-5", Name: "Andes SpA"}, keys)

	assert.Equal(t, domain.CompanyKeys{}, catalog.Keys(domain.FormState{}))
}
