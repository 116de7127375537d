package services

import (
	"strings"

	"campusparking/authprovider"
	"campusparking/models"
)

// IsAdmin metadata 中的 role 為 admin，或 email 在 ADMIN_EMAILS 名單內
func IsAdmin(user *authprovider.User, adminEmails []string) bool {
	if user == nil {
		return false
	}
	if roleIsAdmin(user.AppMetadata) || roleIsAdmin(user.UserMetadata) {
		return true
	}
	email := strings.ToLower(strings.TrimSpace(user.Email))
	if email == "" {
		return false
	}
	for _, allowed := range adminEmails {
		if strings.EqualFold(strings.TrimSpace(allowed), email) {
			return true
		}
	}
	return false
}

func roleIsAdmin(meta map[string]any) bool {
	role, ok := meta["role"].(string)
	return ok && strings.EqualFold(strings.TrimSpace(role), "admin")
}

// PrincipalFor 每次請求重新計算 admin 旗標
func PrincipalFor(user *authprovider.User, adminEmails []string) models.Principal {
	if user == nil {
		return models.Principal{}
	}
	role := ""
	if r, ok := user.AppMetadata["role"].(string); ok {
		role = r
	}
	return models.Principal{
		UserID:  user.ID,
		Email:   user.Email,
		Role:    role,
		IsAdmin: IsAdmin(user, adminEmails),
	}
}
