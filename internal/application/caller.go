package application

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Caller identifies who issues a request. Every use case receives it explicitly.
type Caller struct {
	UserID string
	Role   Role
}

func (c Caller) Elevated() bool { return c.Role == RoleAdmin }

// CanAccess reports whether the caller may act on a resource owned by ownerID.
func (c Caller) CanAccess(ownerID string) bool {
	return c.Elevated() || (c.UserID != "" && c.UserID == ownerID)
}

// RequireCaller rejects anonymous requests.
func RequireCaller(c Caller) error {
	if c.UserID == "" {
		return Unauthorized("caller identity is required")
	}
	return nil
}
