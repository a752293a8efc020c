package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nou-pos/nou/internal/shared"
)

func TestCatalogCoversEveryScope(t *testing.T) {
	names := make([]string, 0, len(catalog))
	for _, p := range catalog {
		names = append(names, p.Name)
	}
	all := append(shared.CoreScopes(), shared.WarrantyScopes()...)
	all = append(all, shared.ClosingScopes()...)

	assert.ElementsMatch(t, all, names)
}

func TestCashierCannotReviewWarranties(t *testing.T) {
	svc := NewService()

	assert.True(t, svc.Can(shared.RoleCashier, shared.PermWarrantyCreate))
	assert.True(t, svc.Can(shared.RoleCashier, " Closing.Create "))
	assert.False(t, svc.Can(shared.RoleCashier, shared.PermWarrantyApprove))
	assert.False(t, svc.Can(shared.RoleDelivery, shared.PermClosingCreate))
	assert.True(t, svc.Can(shared.RoleAdmin, shared.PermWarrantyProcess))
	assert.Empty(t, svc.EffectivePermissions(shared.Role("auditor")))
}
