package types

// Authority lists the roles held by an organization or user.
type Authority struct {
	ActiveRoles []string `json:"active_roles"`
}

// OrgPolicies carries organization-level settings.
type OrgPolicies struct {
	IDQuota int `json:"id_quota"`
}

// Org is a CVE Services organization (CNA, root, secretariat, ...).
type Org struct {
	UUID      string      `json:"UUID"`
	ShortName string      `json:"short_name"`
	Name      string      `json:"name"`
	Authority Authority   `json:"authority"`
	Policies  OrgPolicies `json:"policies"`
	Time      Timestamps  `json:"time"`
}

// Name is a user's name as stored by CVE Services.
type Name struct {
	First  string `json:"first,omitempty"`
	Last   string `json:"last,omitempty"`
	Middle string `json:"middle,omitempty"`
	Suffix string `json:"suffix,omitempty"`
}

// Full joins the non-empty name parts in display order.
func (n Name) Full() string {
	out := ""
	for _, part := range []string{n.First, n.Middle, n.Last, n.Suffix} {
		if part == "" {
			continue
		}
		if out != "" {
			out += " "
		}
		out += part
	}
	return out
}

// User is a CVE Services user account.
type User struct {
	Username  string     `json:"username"`
	OrgUUID   string     `json:"org_UUID"`
	UUID      string     `json:"UUID"`
	Name      Name       `json:"name"`
	Authority Authority  `json:"authority"`
	Active    bool       `json:"active"`
	Time      Timestamps `json:"time"`
	// Secret is only populated by user creation and key reset responses.
	Secret string `json:"secret,omitempty"`
}

// IsAdmin reports whether the user holds the ADMIN role.
func (u User) IsAdmin() bool {
	for _, r := range u.Authority.ActiveRoles {
		if Role(r) == RoleAdmin {
			return true
		}
	}
	return false
}

// NewUser is the request body for creating a user.
type NewUser struct {
	Username  string    `json:"username"`
	Name      Name      `json:"name"`
	Authority Authority `json:"authority"`
}

// UserUpdate lists the changes to apply to an existing user. Nil or empty
// fields are left untouched.
type UserUpdate struct {
	NewUsername string
	Name        Name
	Active      *bool
	AddRoles    []Role
	RemoveRoles []Role
}

// IsEmpty reports whether the update carries no changes.
func (u UserUpdate) IsEmpty() bool {
	return u.NewUsername == "" && u.Name == (Name{}) && u.Active == nil &&
		len(u.AddRoles) == 0 && len(u.RemoveRoles) == 0
}

// UserChange is the response of a user update.
type UserChange struct {
	Message string `json:"message"`
	Updated User   `json:"updated"`
}

// NewUserResult is the response of a user creation.
type NewUserResult struct {
	Message string `json:"message"`
	Created User   `json:"created"`
}

// KeyReset is the response of an API key reset.
type KeyReset struct {
	APISecret string `json:"API-secret"`
}
