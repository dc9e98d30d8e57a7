package auth_test

import (
	"testing"

	auth "github.com/imAdityaSharma/doc-auth"
	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  auth.Role
		ok    bool
	}{
		{"patient", "patient", auth.RolePatient, true},
		{"doctor", "doctor", auth.RoleDoctor, true},
		{"paramedic", "paramedic", auth.RoleParamedic, true},
		{"admin", "admin", auth.RoleAdmin, true},
		{"mixed case", "Doctor", auth.RoleDoctor, true},
		{"padded", "  patient ", auth.RolePatient, true},
		{"unknown", "nurse", auth.Role(""), false},
		{"empty", "", auth.Role(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			role, ok := auth.ParseRole(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, role)
		})
	}
}

func TestDashboardPath(t *testing.T) {
	tests := []struct {
		role auth.Role
		path string
		ok   bool
	}{
		{auth.RolePatient, "/puser/dashboard", true},
		{auth.RoleDoctor, "/duser/dashboard", true},
		{auth.RoleParamedic, "/parauser/dashboard", true},
		{auth.RoleAdmin, "", false},
		{auth.Role("nurse"), "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			path, ok := tt.role.DashboardPath()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.path, path)
		})
	}
}

func TestRoleIsValid(t *testing.T) {
	assert.True(t, auth.RolePatient.IsValid())
	assert.True(t, auth.RoleAdmin.IsValid())
	assert.False(t, auth.Role("nurse").IsValid())
	assert.False(t, auth.Role("").IsValid())
}
