package utils

import (
	"testing"

	"compareeconomize/backend/models"
)

func TestIsAdmin(t *testing.T) {
	admins := []string{"boss@x.com"}
	cases := []struct {
		name string
		user models.User
		want bool
	}{
		{"plain user", models.User{Email: "a@x.com", Role: models.RoleUser, AccountType: models.AccountUser}, false},
		{"role", models.User{Role: models.RoleAdmin}, true},
		{"account type", models.User{AccountType: models.AccountAdmin}, true},
		{"flag", models.User{IsAdmin: true}, true},
		{"plan", models.User{Plan: "admin"}, true},
		{"email list", models.User{Email: " Boss@X.com"}, true},
	}
	for _, tc := range cases {
		if got := IsAdmin(tc.user, admins); got != tc.want {
			t.Errorf("%s: got %v want %v", tc.name, got, tc.want)
		}
	}
}
