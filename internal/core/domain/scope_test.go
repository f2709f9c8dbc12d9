package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScopeForLeadershipSeesEverything(t *testing.T) {
	t.Parallel()
	for _, role := range []Role{RoleCEO, RoleAdmin, RoleCOO} {
		scope := ScopeFor(SessionUser{ID: 1, Role: role})
		assert.True(t, scope.AllVentures, "role %s", role)
		assert.True(t, scope.AllOffices, "role %s", role)
		assert.True(t, scope.CanAccessVenture(999))
	}
}

func TestScopeForVentureHeadIsVentureBound(t *testing.T) {
	t.Parallel()
	scope := ScopeFor(SessionUser{ID: 1, Role: RoleVentureHead, VentureIDs: []int64{2, 5}})
	assert.False(t, scope.AllVentures)
	assert.True(t, scope.AllOffices)
	assert.True(t, scope.CanAccessVenture(5))
	assert.False(t, scope.CanAccessVenture(3))
}

func TestScopeForAssignedRolesAreFullyBound(t *testing.T) {
	t.Parallel()
	u := SessionUser{ID: 1, Role: RoleDispatcher, VentureIDs: []int64{1}, OfficeIDs: []int64{10}}
	scope := ScopeFor(u)
	assert.False(t, scope.AllVentures)
	assert.False(t, scope.AllOffices)
	assert.True(t, scope.CanAccessVenture(1))
	assert.False(t, scope.CanAccessVenture(2))
	assert.True(t, scope.CanAccessOffice(10))
	assert.False(t, scope.CanAccessOffice(11))
}

func TestScopeForNothingAssigned(t *testing.T) {
	t.Parallel()
	scope := ScopeFor(SessionUser{ID: 1, Role: RoleEmployee})
	assert.False(t, scope.CanAccessVenture(1))
	assert.False(t, scope.CanAccessOffice(1))
}

func TestGetRoleConfigUnknownRoleIsRestrictive(t *testing.T) {
	t.Parallel()
	cfg := GetRoleConfig(Role("SOMETHING_NEW"))
	assert.Equal(t, ScopeAssigned, cfg.VentureScope)
	assert.Equal(t, ScopeAssigned, cfg.OfficeScope)
	assert.False(t, cfg.AdminPanel)
}

func TestRoleHelpers(t *testing.T) {
	t.Parallel()
	assert.True(t, IsGlobalAdmin(RoleCEO))
	assert.False(t, IsGlobalAdmin(RoleCOO))
	assert.True(t, IsLeadership(RoleVentureHead))
	assert.False(t, IsLeadership(RoleOfficeManager))
	assert.True(t, IsManagerLike(RoleTeamLead))
	assert.False(t, IsManagerLike(RoleCSR))
	assert.True(t, IsEmployeeLike(RoleContractor))
	assert.False(t, IsEmployeeLike(RoleOfficeManager))
}
