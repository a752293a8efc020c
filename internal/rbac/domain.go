package rbac

import "github.com/nou-pos/nou/internal/shared"

// Permission represents an atomic capability.
type Permission struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// catalog describes every permission the API enforces.
var catalog = []Permission{
	{Name: shared.PermBranchView, Description: "List branches of the organization"},
	{Name: shared.PermBranchManage, Description: "Create branches and upload logos"},
	{Name: shared.PermActivityView, Description: "Read the activity timeline"},
	{Name: shared.PermWarrantyView, Description: "List and read warranties"},
	{Name: shared.PermWarrantyCreate, Description: "Open warranty claims"},
	{Name: shared.PermWarrantyApprove, Description: "Approve or reject pending warranties"},
	{Name: shared.PermWarrantyProcess, Description: "Mark approved warranties as processed"},
	{Name: shared.PermClosingView, Description: "Read cash closings"},
	{Name: shared.PermClosingCreate, Description: "Submit cash closings"},
}

// defaultMatrix is the fixed role to permission assignment.
func defaultMatrix() map[shared.Role][]string {
	all := append(shared.CoreScopes(), shared.WarrantyScopes()...)
	all = append(all, shared.ClosingScopes()...)
	return map[shared.Role][]string{
		shared.RoleOwner: all,
		shared.RoleAdmin: all,
		shared.RoleCashier: {
			shared.PermBranchView,
			shared.PermWarrantyView,
			shared.PermWarrantyCreate,
			shared.PermClosingView,
			shared.PermClosingCreate,
		},
		shared.RoleDelivery: {
			shared.PermBranchView,
			shared.PermWarrantyView,
		},
	}
}
