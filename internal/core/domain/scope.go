package domain

import "slices"

type Role string

const (
	RoleCEO           Role = "CEO"
	RoleAdmin         Role = "ADMIN"
	RoleCOO           Role = "COO"
	RoleVentureHead   Role = "VENTURE_HEAD"
	RoleOfficeManager Role = "OFFICE_MANAGER"
	RoleTeamLead      Role = "TEAM_LEAD"
	RoleDispatcher    Role = "DISPATCHER"
	RoleCSR           Role = "CSR"
	RoleEmployee      Role = "EMPLOYEE"
	RoleContractor    Role = "CONTRACTOR"
)

// ScopeLevel says how wide a role's venture/office visibility is.
type ScopeLevel string

const (
	ScopeAll      ScopeLevel = "all"
	ScopeAssigned ScopeLevel = "assigned"
)

type RoleConfig struct {
	Label        string
	VentureScope ScopeLevel
	OfficeScope  ScopeLevel
	AdminPanel   bool
	ManageUsers  bool
}

var roleConfig = map[Role]RoleConfig{
	RoleCEO:           {Label: "CEO", VentureScope: ScopeAll, OfficeScope: ScopeAll, AdminPanel: true, ManageUsers: true},
	RoleAdmin:         {Label: "Admin", VentureScope: ScopeAll, OfficeScope: ScopeAll, AdminPanel: true, ManageUsers: true},
	RoleCOO:           {Label: "COO / Director", VentureScope: ScopeAll, OfficeScope: ScopeAll},
	RoleVentureHead:   {Label: "Venture Head", VentureScope: ScopeAssigned, OfficeScope: ScopeAll},
	RoleOfficeManager: {Label: "Office Manager", VentureScope: ScopeAssigned, OfficeScope: ScopeAssigned},
	RoleTeamLead:      {Label: "Team Lead", VentureScope: ScopeAssigned, OfficeScope: ScopeAssigned},
	RoleDispatcher:    {Label: "Dispatcher", VentureScope: ScopeAssigned, OfficeScope: ScopeAssigned},
	RoleCSR:           {Label: "CSR", VentureScope: ScopeAssigned, OfficeScope: ScopeAssigned},
	RoleEmployee:      {Label: "Employee", VentureScope: ScopeAssigned, OfficeScope: ScopeAssigned},
	RoleContractor:    {Label: "Contractor", VentureScope: ScopeAssigned, OfficeScope: ScopeAssigned},
}

// GetRoleConfig returns the config for a role; unknown roles get the most
// restrictive (employee) scope.
func GetRoleConfig(r Role) RoleConfig {
	if cfg, ok := roleConfig[r]; ok {
		return cfg
	}
	return roleConfig[RoleEmployee]
}

// UserScope is the resolved data-visibility filter for one user. Empty ID
// slices with the All flags unset mean "nothing assigned".
type UserScope struct {
	AllVentures bool
	AllOffices  bool
	VentureIDs  []int64
	OfficeIDs   []int64
}

// ScopeFor resolves the visibility scope for a session user from their role.
func ScopeFor(u SessionUser) UserScope {
	cfg := GetRoleConfig(u.Role)
	s := UserScope{
		AllVentures: cfg.VentureScope == ScopeAll,
		AllOffices:  cfg.OfficeScope == ScopeAll,
	}
	if !s.AllVentures {
		s.VentureIDs = u.VentureIDs
	}
	if !s.AllOffices {
		s.OfficeIDs = u.OfficeIDs
	}
	return s
}

func (s UserScope) CanAccessVenture(ventureID int64) bool {
	return s.AllVentures || slices.Contains(s.VentureIDs, ventureID)
}

func (s UserScope) CanAccessOffice(officeID int64) bool {
	return s.AllOffices || slices.Contains(s.OfficeIDs, officeID)
}

func IsGlobalAdmin(r Role) bool {
	return r == RoleCEO || r == RoleAdmin
}

func IsLeadership(r Role) bool {
	switch r {
	case RoleCEO, RoleAdmin, RoleCOO, RoleVentureHead:
		return true
	}
	return false
}

func IsManagerLike(r Role) bool {
	return IsLeadership(r) || r == RoleOfficeManager || r == RoleTeamLead
}

// IsEmployeeLike marks roles whose incident visibility is limited to tickets
// they reported or are assigned to.
func IsEmployeeLike(r Role) bool {
	switch r {
	case RoleEmployee, RoleContractor, RoleCSR, RoleDispatcher:
		return true
	}
	return false
}
