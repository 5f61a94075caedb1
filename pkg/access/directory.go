package access

import (
	"fmt"
	"strings"
	"sync"

	"github.com/aretw0/intake/pkg/domain"
)

// Directory resolves e-mail addresses to portal profiles.
type Directory struct {
	mu      sync.RWMutex
	byEmail map[string]Profile
}

// NewDirectory builds a directory from a fixed user list. Every profile needs
// an e-mail and a known role.
func NewDirectory(users ...Profile) (*Directory, error) {
	d := &Directory{byEmail: make(map[string]Profile, len(users))}
	for _, u := range users {
		if err := d.Add(u); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Add registers or replaces a profile.
func (d *Directory) Add(p Profile) error {
	key := normalizeEmail(p.Email)
	if key == "" {
		return fmt.Errorf("profile %q has no email", p.Name)
	}
	if !p.Role.Valid() {
		return fmt.Errorf("profile %s: unknown role %q", p.Email, p.Role)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byEmail[key] = p
	return nil
}

// Lookup returns the profile registered for email.
func (d *Directory) Lookup(email string) (Profile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.byEmail[normalizeEmail(email)]
	if !ok {
		return Profile{}, fmt.Errorf("%s: %w", email, domain.ErrForbidden)
	}
	return p, nil
}

// Len returns the number of profiles.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byEmail)
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
