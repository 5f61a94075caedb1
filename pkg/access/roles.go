package access

import (
	"slices"

	"github.com/aretw0/intake/pkg/domain"
)

// Role is a portal profile name.
type Role string

const (
	RoleComercial       Role = "COM"
	RoleOnboarding      Role = "OB"
	RoleOnboardingAdmin Role = "OB_ADMIN"
	RoleSAC             Role = "SAC"
	RoleSACAdmin        Role = "SAC_ADMIN"
)

// Permission names.
const (
	PermEditComercial  = "edit_comercial"
	PermViewHistorial  = "view_historial"
	PermAssignTasks    = "assign_tasks"
	PermEditOnboarding = "edit_onboarding"
	PermEditSAC        = "edit_sac"
	PermAdmin          = "admin"
)

// MenuItem is one navigation entry.
type MenuItem struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Path  string `json:"path"`
}

type roleSpec struct {
	area         string
	permissions  []string
	menu         []MenuItem
	quickActions []MenuItem
	stages       []domain.Stage
}

var allStages = domain.Stages

var onboardingStages = []domain.Stage{domain.StageOnboarding, domain.StageSAC, domain.StageCompletada}

var sacStages = []domain.Stage{domain.StageSAC, domain.StageCompletada}

var roles = map[Role]roleSpec{
	RoleComercial: {
		area:        "Comercial",
		permissions: []string{PermEditComercial, PermViewHistorial, PermAssignTasks},
		menu: []MenuItem{
			{ID: "nueva-empresa", Label: "Nueva Empresa", Path: "/comercial/nueva-empresa"},
			{ID: "empresas-proceso", Label: "Empresas en Proceso", Path: "/comercial/empresas-proceso"},
			{ID: "historial", Label: "Historial de Empresas", Path: "/comercial/historial"},
			{ID: "notificaciones", Label: "Notificaciones", Path: "/comercial/notificaciones"},
		},
		quickActions: []MenuItem{
			{ID: "agregar-representante", Label: "Agregar Representante", Path: "/comercial/acciones/representante"},
		},
		stages: allStages,
	},
	RoleOnboardingAdmin: {
		area:        "Onboarding",
		permissions: []string{PermEditOnboarding, PermViewHistorial, PermAssignTasks, PermAdmin},
		menu: []MenuItem{
			{ID: "solicitudes-pendientes", Label: "Solicitudes Pendientes", Path: "/onboarding/solicitudes-pendientes"},
			{ID: "empresas-proceso", Label: "Empresas en Proceso", Path: "/onboarding/empresas-proceso"},
			{ID: "historial", Label: "Historial de Empresas", Path: "/onboarding/historial"},
			{ID: "notificaciones", Label: "Notificaciones", Path: "/onboarding/notificaciones"},
		},
		quickActions: []MenuItem{
			{ID: "asignar-ejecutivo", Label: "Asignar Ejecutivo", Path: "/onboarding/acciones/asignar"},
			{ID: "marcar-revisado", Label: "Marcar como Revisado", Path: "/onboarding/acciones/revisar"},
		},
		stages: onboardingStages,
	},
	RoleOnboarding: {
		area:        "Onboarding",
		permissions: []string{PermEditOnboarding, PermViewHistorial},
		menu: []MenuItem{
			{ID: "mis-empresas", Label: "Mis Empresas", Path: "/onboarding/mis-empresas"},
			{ID: "solicitudes-nuevas", Label: "Solicitudes Nuevas", Path: "/onboarding/solicitudes-nuevas"},
		},
		quickActions: []MenuItem{
			{ID: "completar-onboarding", Label: "Marcar Completado", Path: "/onboarding/acciones/completar"},
		},
		stages: onboardingStages,
	},
	RoleSACAdmin: {
		area:        "SAC",
		permissions: []string{PermEditSAC, PermViewHistorial, PermAdmin},
		menu: []MenuItem{
			{ID: "solicitudes-pendientes", Label: "Solicitudes Pendientes", Path: "/sac/solicitudes-pendientes"},
			{ID: "empresas-sac", Label: "Empresas en SAC", Path: "/sac/empresas-sac"},
			{ID: "historial", Label: "Historial de Empresas", Path: "/sac/historial"},
		},
		quickActions: []MenuItem{
			{ID: "asignar-ejecutivo-sac", Label: "Asignar Ejecutivo SAC", Path: "/sac/acciones/asignar"},
			{ID: "revisar-pap", Label: "Revisar PAP", Path: "/sac/acciones/revisar-pap"},
		},
		stages: sacStages,
	},
	RoleSAC: {
		area:        "SAC",
		permissions: []string{PermEditSAC, PermViewHistorial},
		menu: []MenuItem{
			{ID: "mis-empresas", Label: "Mis Empresas", Path: "/sac/mis-empresas"},
			{ID: "empresas-pendientes", Label: "Empresas Pendientes", Path: "/sac/empresas-pendientes"},
		},
		quickActions: []MenuItem{
			{ID: "completar-pap", Label: "Completar PAP", Path: "/sac/acciones/completar-pap"},
			{ID: "solicitar-revision", Label: "Solicitar Revisión", Path: "/sac/acciones/solicitar-revision"},
		},
		stages: sacStages,
	},
}

// Roles returns every known role, sorted.
func Roles() []Role {
	out := make([]Role, 0, len(roles))
	for r := range roles {
		out = append(out, r)
	}
	slices.Sort(out)
	return out
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := roles[r]
	return ok
}
