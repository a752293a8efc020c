package shared

// Point-of-sale permissions for warranties and cash closings.
const (
	PermWarrantyView    = "warranty.view"
	PermWarrantyCreate  = "warranty.create"
	PermWarrantyApprove = "warranty.approve"
	PermWarrantyProcess = "warranty.process"

	PermClosingView   = "closing.view"
	PermClosingCreate = "closing.create"
)

// WarrantyScopes lists permissions used by the warranty module.
func WarrantyScopes() []string {
	return []string{
		PermWarrantyView,
		PermWarrantyCreate,
		PermWarrantyApprove,
		PermWarrantyProcess,
	}
}

// ClosingScopes lists permissions used by the cash closing module.
func ClosingScopes() []string {
	return []string{
		PermClosingView,
		PermClosingCreate,
	}
}
