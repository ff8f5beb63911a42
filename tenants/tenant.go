package tenants

import (
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Tenant represents an isolated customer organisation. Users and their roles
// may be scoped to a single tenant.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"` // URL-safe unique handle (e.g., "acme-corp")
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Slugify derives a slug from a tenant name
func Slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// Validate checks the user-editable fields
func (t *Tenant) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return errors.New("tenant name is required")
	}
	if len(t.Name) > 100 {
		return errors.New("tenant name must be at most 100 characters")
	}
	if !slugPattern.MatchString(t.Slug) {
		return errors.Errorf("invalid tenant slug %q", t.Slug)
	}
	return nil
}
