package identity_test

import (
	"testing"
	"time"

	"campusflow/internal/apperr"
	"campusflow/internal/identity"
	"campusflow/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifier_RoundTrip(t *testing.T) {
	principal := model.Principal{UserID: uuid.New(), Role: model.UserRoleAdmin, ProfileComplete: true}

	token, err := identity.NewIssuer("secret", "campusflow").Issue(principal, time.Hour)
	require.NoError(t, err)

	got, err := identity.NewVerifier("secret", "campusflow").Verify(token)
	require.NoError(t, err)
	assert.Equal(t, principal, got)
}

func TestVerifier_Rejects(t *testing.T) {
	principal := model.Principal{UserID: uuid.New(), Role: model.UserRoleStudent}
	valid, err := identity.NewIssuer("secret", "campusflow").Issue(principal, time.Hour)
	require.NoError(t, err)
	expired, err := identity.NewIssuer("secret", "campusflow").Issue(principal, -time.Hour)
	require.NoError(t, err)
	badRole, err := identity.NewIssuer("secret", "campusflow").Issue(model.Principal{UserID: uuid.New(), Role: "root"}, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name     string
		verifier *identity.Verifier
		token    string
		expected error
	}{
		{name: "empty", verifier: identity.NewVerifier("secret", "campusflow"), token: " ", expected: identity.ErrMissingToken},
		{name: "garbage", verifier: identity.NewVerifier("secret", "campusflow"), token: "abc.def", expected: identity.ErrInvalidToken},
		{name: "wrong_secret", verifier: identity.NewVerifier("other", "campusflow"), token: valid, expected: identity.ErrInvalidToken},
		{name: "wrong_issuer", verifier: identity.NewVerifier("secret", "elsewhere"), token: valid, expected: identity.ErrInvalidToken},
		{name: "expired", verifier: identity.NewVerifier("secret", "campusflow"), token: expired, expected: identity.ErrInvalidToken},
		{name: "unknown_role", verifier: identity.NewVerifier("secret", "campusflow"), token: badRole, expected: identity.ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.verifier.Verify(tt.token)
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestPredicates(t *testing.T) {
	student := model.Principal{UserID: uuid.New(), Role: model.UserRoleStudent}
	admin := model.Principal{UserID: uuid.New(), Role: model.UserRoleAdmin}
	superAdmin := model.Principal{UserID: uuid.New(), Role: model.UserRoleSuperAdmin}
	anonymous := model.Principal{}

	owned := model.Event{OrganizerID: admin.UserID}
	reg := model.Registration{UserID: student.UserID}

	tests := []struct {
		name     string
		err      error
		expected apperr.Kind
	}{
		{name: "authenticated_student", err: identity.RequireAuthenticated(student)},
		{name: "authenticated_anonymous", err: identity.RequireAuthenticated(anonymous), expected: apperr.KindUnauthorized},
		{name: "admin_student", err: identity.RequireAdmin(student), expected: apperr.KindForbidden},
		{name: "admin_super", err: identity.RequireAdmin(superAdmin)},
		{name: "participant_admin", err: identity.RequireParticipant(admin), expected: apperr.KindForbidden},
		{name: "participant_student", err: identity.RequireParticipant(student)},
		{name: "manage_organizer", err: identity.CanManageEvent(admin, owned)},
		{name: "manage_super", err: identity.CanManageEvent(superAdmin, owned)},
		{name: "manage_other_admin", err: identity.CanManageEvent(model.Principal{UserID: uuid.New(), Role: model.UserRoleAdmin}, owned), expected: apperr.KindForbidden},
		{name: "view_owner", err: identity.CanViewRegistration(student, reg)},
		{name: "view_admin", err: identity.CanViewRegistration(admin, reg)},
		{name: "view_other_student", err: identity.CanViewRegistration(model.Principal{UserID: uuid.New(), Role: model.UserRoleStudent}, reg), expected: apperr.KindForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.expected == "" {
				assert.NoError(t, tt.err)
				return
			}
			assert.Equal(t, tt.expected, apperr.KindOf(tt.err))
		})
	}
}
