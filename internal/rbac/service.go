package rbac

import (
	"sort"
	"strings"

	"github.com/nou-pos/nou/internal/shared"
)

// Service resolves permissions from the static role matrix.
type Service struct {
	matrix map[shared.Role][]string
}

// NewService constructs a Service with the default matrix.
func NewService() *Service {
	return &Service{matrix: defaultMatrix()}
}

// EffectivePermissions returns the sorted permission set granted to role.
func (s *Service) EffectivePermissions(role shared.Role) []string {
	if s == nil {
		return nil
	}
	granted := append([]string(nil), s.matrix[role]...)
	sort.Strings(granted)
	return granted
}

// Can reports whether role holds perm.
func (s *Service) Can(role shared.Role, perm string) bool {
	perm = strings.ToLower(strings.TrimSpace(perm))
	for _, p := range s.EffectivePermissions(role) {
		if p == perm {
			return true
		}
	}
	return false
}

// ListPermissions returns the permission catalog.
func (s *Service) ListPermissions() []Permission {
	return append([]Permission(nil), catalog...)
}
