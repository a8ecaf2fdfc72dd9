package authz

import "context"

type staffContextKey struct{}

// ContextWithStaff stores the resolved staff member in context.
func ContextWithStaff(ctx context.Context, staff StaffMember) context.Context {
	return context.WithValue(ctx, staffContextKey{}, staff)
}

// StaffFromContext extracts the staff member placed by the resolution
// middleware. The second return is false when no staff was resolved.
func StaffFromContext(ctx context.Context) (StaffMember, bool) {
	staff, ok := ctx.Value(staffContextKey{}).(StaffMember)
	return staff, ok
}
