package domain

// Trust-propagation header contract between the edge and internal services.
const (
	HeaderAuthorization = "Authorization"
	HeaderRequestID     = "X-Request-Id"
	HeaderUserID        = "X-User-Id"
	HeaderUserName      = "X-User-Name"
	HeaderUserRole      = "X-User-Role"
	HeaderInternalCall  = "X-Internal-Call"
)

// TrustHeaders are the headers only the edge may set.
var TrustHeaders = []string{HeaderUserID, HeaderUserName, HeaderUserRole, HeaderInternalCall}

// Principal is the authenticated caller for the lifetime of one request.
// Role always carries RolePrefix.
type Principal struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// NewPrincipal builds a principal with a normalized role.
func NewPrincipal(id, username, role string) Principal {
	return Principal{ID: id, Username: username, Role: NormalizeRole(role)}
}

// HasRole reports whether p holds role, compared in normalized form.
func (p Principal) HasRole(role string) bool {
	return p.Role == NormalizeRole(role)
}
