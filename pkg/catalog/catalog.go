package catalog

import (
	"context"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/ports"
	"github.com/aretw0/intake/pkg/registry"
	"github.com/aretw0/intake/pkg/schema"
	"github.com/aretw0/intake/pkg/validation"
)

// Step ids, in intake order.
const (
	StepDatosGenerales  = "datos_generales"
	StepDatosContacto   = "datos_contacto"
	StepActividades     = "actividades_economicas"
	StepRepresentantes  = "representantes_legales"
	StepDocumentos      = "documentos_tributarios"
	StepContrapartes    = "contrapartes"
	StepUsuarios        = "usuarios_plataforma"
	StepNotificaciones  = "configuracion_notificaciones"
	StepInformacionPlan = "informacion_plan"
)

// Products that can be contracted.
const (
	ProductEnterfac = "ENTERFAC"
	ProductAndespos = "ANDESPOS"
)

// DuplicateRUTMessage is the field error shown when the company already exists.
const DuplicateRUTMessage = "a company with this RUT is already registered"

type stepSpec struct {
	id       string
	title    string
	optional bool
	schema   schema.Schema
}

func person() schema.Schema {
	return schema.Schema{
		"rut":    RUT(),
		"nombre": schema.Text(),
		"correo": schema.Email(),
	}
}

func steps() []stepSpec {
	return []stepSpec{
		{id: StepDatosGenerales, title: "Datos Generales", schema: schema.Schema{
			"rut":             RUT(),
			"nombre":          schema.Text(),
			"nombre_fantasia": schema.Optional(schema.String()),
			"giro":            schema.Text(),
			"fecha_inicio":    schema.Date(""),
			"logo":            schema.Optional(schema.String()),
		}},
		{id: StepDatosContacto, title: "Datos de Contacto", schema: schema.Schema{
			"domicilio": schema.Text(),
			"comuna":    schema.Text(),
			"telefono":  schema.Text(),
			"correo":    schema.Email(),
		}},
		{id: StepActividades, title: "Actividades Económicas", schema: schema.Schema{
			"actividades": schema.NonEmptySlice(schema.Object(schema.Schema{
				"codigo":      schema.Text(),
				"descripcion": schema.Optional(schema.String()),
			})),
		}},
		{id: StepRepresentantes, title: "Representantes Legales", schema: schema.Schema{
			"representantes": schema.NonEmptySlice(schema.Object(person())),
		}},
		{id: StepDocumentos, title: "Documentos Tributarios", schema: schema.Schema{
			"documentos":        schema.NonEmptySlice(schema.Text()),
			"numero_resolucion": schema.Int(),
			"fecha_resolucion":  schema.Date(""),
		}},
		{id: StepContrapartes, title: "Contrapartes", optional: true, schema: schema.Schema{
			"contrapartes": schema.Optional(schema.Slice(schema.Object(schema.Schema{
				"nombre":   schema.Text(),
				"correo":   schema.Email(),
				"telefono": schema.Optional(schema.String()),
				"area":     schema.Optional(schema.String()),
			}))),
		}},
		{id: StepUsuarios, title: "Usuarios de Plataforma", schema: schema.Schema{
			"usuarios": schema.NonEmptySlice(schema.Object(person())),
		}},
		{id: StepNotificaciones, title: "Configuración de Notificaciones", optional: true, schema: schema.Schema{
			"correo_notificaciones": schema.Optional(schema.Email()),
			"frecuencia":            schema.Optional(schema.Enum("inmediata", "diaria", "semanal")),
			"activar":               schema.Optional(schema.Bool()),
		}},
		{id: StepInformacionPlan, title: "Información del Plan", schema: schema.Schema{
			"producto":              schema.Enum(ProductEnterfac, ProductAndespos),
			"codigo_plan":           schema.Text(),
			"fecha_inicio_servicio": schema.Optional(schema.Date("")),
		}},
	}
}

// Option configures the catalog.
type Option func(*config)

type config struct {
	directory ports.CompanyDirectory
}

// WithDirectory makes the first step reject RUTs of companies that are
// already registered.
func WithDirectory(d ports.CompanyDirectory) Option {
	return func(c *config) { c.directory = d }
}

// New builds the company intake registry.
func New(opts ...Option) (*registry.Registry, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	b := registry.NewBuilder()
	for _, s := range steps() {
		var v domain.Validator = validation.Schema(s.schema)
		if s.id == StepDatosGenerales && cfg.directory != nil {
			dir := cfg.directory
			v = validation.All(v, validation.Unique("rut", func(ctx context.Context, rut string) (bool, error) {
				norm, err := NormalizeRUT(rut)
				if err != nil {
					return false, nil
				}
				return dir.TaxIDExists(ctx, norm)
			}, DuplicateRUTMessage))
		}
		sb := b.Add(s.id).Title(s.title).Validate(v)
		if s.optional {
			sb.Optional()
		}
	}
	return b.Build()
}

// Schemas returns the field schema of every step, keyed by step id.
func Schemas() map[string]schema.Schema {
	out := make(map[string]schema.Schema)
	for _, s := range steps() {
		out[s.id] = s.schema
	}
	return out
}

// StepIDs returns the catalog step ids in order.
func StepIDs() []string {
	specs := steps()
	ids := make([]string, len(specs))
	for i, s := range specs {
		ids[i] = s.id
	}
	return ids
}

// Keys extracts the company RUT and name from the general data step.
// Valid RUTs come back normalized.
func Keys(form domain.FormState) domain.CompanyKeys {
	general := form.Step(StepDatosGenerales)
	rut, _ := general["rut"].(string)
	name, _ := general["nombre"].(string)
	if norm, err := NormalizeRUT(rut); err == nil {
		rut = norm
	}
	return domain.CompanyKeys{TaxID: rut, Name: name}
}
