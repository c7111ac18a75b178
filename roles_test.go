package accounts_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	accounts "github.com/goliatone/go-accounts"
)

func TestRole_IsAtLeast(t *testing.T) {
	tests := []struct {
		role     accounts.Role
		min      accounts.Role
		expected bool
	}{
		{accounts.RoleUser, accounts.RoleUser, true},
		{accounts.RoleUser, accounts.RoleCreator, false},
		{accounts.RoleCreator, accounts.RoleUser, true},
		{accounts.RoleCreator, accounts.RoleAdmin, false},
		{accounts.RoleAdmin, accounts.RoleCreator, true},
		{accounts.Role("owner"), accounts.RoleUser, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+">="+string(tt.min), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.role.IsAtLeast(tt.min))
		})
	}
}

func TestParseRole(t *testing.T) {
	role, err := accounts.ParseRole("  Creator ")
	require.NoError(t, err)
	assert.Equal(t, accounts.RoleCreator, role)

	_, err = accounts.ParseRole("superuser")
	assert.ErrorIs(t, err, accounts.ErrInvalidRole)

	_, err = accounts.ParseRole("")
	assert.ErrorIs(t, err, accounts.ErrInvalidRole)
}

func TestAccountStatus(t *testing.T) {
	assert.True(t, accounts.StatusActive.CanLogin())
	assert.False(t, accounts.StatusSuspended.CanLogin())
	assert.False(t, accounts.StatusBlocked.CanLogin())
	assert.False(t, accounts.AccountStatus("deleted").CanLogin())

	status, err := accounts.ParseAccountStatus("BLOCKED")
	require.NoError(t, err)
	assert.Equal(t, accounts.StatusBlocked, status)

	_, err = accounts.ParseAccountStatus("pending")
	assert.ErrorIs(t, err, accounts.ErrInvalidStatus)
}

func TestApplicationStatus_IsTerminal(t *testing.T) {
	assert.False(t, accounts.ApplicationNone.IsTerminal())
	assert.False(t, accounts.ApplicationPending.IsTerminal())
	assert.True(t, accounts.ApplicationApproved.IsTerminal())
	assert.True(t, accounts.ApplicationRejected.IsTerminal())
	assert.False(t, accounts.ApplicationStatus("unknown").IsValid())
}

func TestAccount_EnsureDefaults(t *testing.T) {
	account := &accounts.Account{}
	account.EnsureDefaults()

	assert.Equal(t, accounts.RoleUser, account.Role)
	assert.Equal(t, accounts.StatusActive, account.Status)
	assert.Equal(t, accounts.ApplicationNone, account.CreatorApplicationStatus)
	assert.False(t, account.EmailVerified)
}
