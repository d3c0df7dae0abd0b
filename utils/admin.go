package utils

import (
	"strings"

	"compareeconomize/backend/models"
)

func IsAdmin(u models.User, adminEmails []string) bool {
	if u.IsAdmin || u.Role == models.RoleAdmin || u.AccountType == models.AccountAdmin || u.Plan == "admin" {
		return true
	}
	email := strings.ToLower(strings.TrimSpace(u.Email))
	for _, e := range adminEmails {
		if e == email {
			return true
		}
	}
	return false
}
