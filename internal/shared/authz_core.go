package shared

// Core platform permissions.
const (
	PermBranchView   = "branch.view"
	PermBranchManage = "branch.manage"

	PermActivityView = "activity.view"
)

// CoreScopes lists all permissions related to the core platform.
func CoreScopes() []string {
	return []string{
		PermBranchView,
		PermBranchManage,
		PermActivityView,
	}
}
