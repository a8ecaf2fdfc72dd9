package shared

// Resources the product gates access to. Open vocabulary: features may gate
// on resources outside this list, these constants only keep the call sites
// and the role defaults table spelling things the same way.
const (
	ResourceAppointments     = "appointments"
	ResourceBilling          = "billing"
	ResourceInventory        = "inventory"
	ResourceReviews          = "reviews"
	ResourceReferrals        = "referrals"
	ResourcePayouts          = "payouts"
	ResourceReports          = "reports"
	ResourceStaff            = "staff"
	ResourceStaffPermissions = "staff_permissions"
)

// Common actions.
const (
	ActionView    = "view"
	ActionEdit    = "edit"
	ActionRefund  = "refund"
	ActionRespond = "respond"
	ActionRequest = "request"
	ActionExport  = "export"
)
