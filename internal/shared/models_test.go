package shared

import (
	"testing"
	"time"
)

func TestRegistrationStatus_CanTransition(t *testing.T) {
	cases := []struct {
		from RegistrationStatus
		to   RegistrationStatus
		want bool
	}{
		{StatusRegistered, StatusCompleted, true},
		{StatusRegistered, StatusDropped, true},
		{StatusRegistered, StatusRegistered, false},
		{StatusCompleted, StatusCompleted, true}, // re-upload overwrites in place
		{StatusCompleted, StatusDropped, false},
		{StatusCompleted, StatusRegistered, false},
		{StatusDropped, StatusRegistered, false},
		{StatusDropped, StatusCompleted, false},
		{StatusDropped, StatusDropped, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.want {
			t.Errorf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.want, got)
		}
	}
}

func TestRegistrationStatus_Valid(t *testing.T) {
	for _, s := range []RegistrationStatus{StatusRegistered, StatusCompleted, StatusDropped} {
		if !s.Valid() {
			t.Errorf("%s should be valid", s)
		}
	}
	for _, s := range []RegistrationStatus{"", "pending", "REGISTERED"} {
		if s.Valid() {
			t.Errorf("%q should not be valid", s)
		}
	}
}

func TestIsValidRole(t *testing.T) {
	for _, role := range []string{RoleStudent, RoleLecturer, RoleAdmin} {
		if !IsValidRole(role) {
			t.Errorf("%s should be a valid role", role)
		}
	}
	for _, role := range []string{"", "superuser", "Student"} {
		if IsValidRole(role) {
			t.Errorf("%q should not be a valid role", role)
		}
	}
}

func TestSession_IsExpired(t *testing.T) {
	live := Session{ExpiresAt: time.Now().Add(time.Hour)}
	if live.IsExpired() {
		t.Error("session expiring in an hour should not be expired")
	}

	dead := Session{ExpiresAt: time.Now().Add(-time.Minute)}
	if !dead.IsExpired() {
		t.Error("session that expired a minute ago should be expired")
	}
}
