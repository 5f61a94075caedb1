package access

import (
	"slices"

	"github.com/aretw0/intake/pkg/domain"
)

// Profile is an authenticated portal user.
type Profile struct {
	RUT   string `json:"rut" mapstructure:"rut" yaml:"rut"`
	Email string `json:"email" mapstructure:"email" yaml:"email"`
	Name  string `json:"name" mapstructure:"name" yaml:"name"`
	Role  Role   `json:"role" mapstructure:"role" yaml:"role"`
}

// Capabilities is what one profile may do. It implements ports.PermissionOracle.
// The zero value (no profile) may do nothing.
type Capabilities struct {
	profile Profile
	spec    roleSpec
}

// For builds the capabilities of p. Unknown roles get none.
func For(p Profile) Capabilities {
	return Capabilities{profile: p, spec: roles[p.Role]}
}

// Profile returns the profile the capabilities were built for.
func (c Capabilities) Profile() Profile { return c.profile }

// HasRole reports whether the profile has exactly role.
func (c Capabilities) HasRole(role string) bool {
	return c.profile.Role != "" && string(c.profile.Role) == role
}

// HasPermission reports whether the profile's role grants permission.
func (c Capabilities) HasPermission(permission string) bool {
	return slices.Contains(c.spec.permissions, permission)
}

// Permissions returns the granted permissions.
func (c Capabilities) Permissions() []string { return slices.Clone(c.spec.permissions) }

// Area returns the display name of the role's area, or "".
func (c Capabilities) Area() string { return c.spec.area }

// Menu returns the sidebar entries for the role.
func (c Capabilities) Menu() []MenuItem { return slices.Clone(c.spec.menu) }

// QuickActions returns the shortcut entries for the role.
func (c Capabilities) QuickActions() []MenuItem { return slices.Clone(c.spec.quickActions) }

// VisibleStages returns the company stages the role may browse.
func (c Capabilities) VisibleStages() []domain.Stage { return slices.Clone(c.spec.stages) }

// CanView reports whether companies at stage are visible to the role.
func (c Capabilities) CanView(stage domain.Stage) bool {
	return slices.Contains(c.spec.stages, stage)
}

// CanStartIntake reports whether the profile may register new companies.
func (c Capabilities) CanStartIntake() bool {
	return c.HasPermission(PermEditComercial)
}

// IsAdmin reports whether the role is the administrative one of its area.
func (c Capabilities) IsAdmin() bool {
	return c.HasPermission(PermAdmin)
}
