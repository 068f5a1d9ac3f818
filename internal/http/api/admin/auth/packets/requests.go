// Package packets holds the request and response bodies of the editor
// account endpoints.
package packets

import "strings"

// SignupRequest registers an editor. Publish capability is never granted
// here; it is set on the account by a superuser.
type SignupRequest struct {
	Email    string  `json:"email" binding:"required,email"`
	Password string  `json:"password" binding:"required,min=8,max=72"` // bcrypt ignores bytes past 72
	Name     *string `json:"name" binding:"omitempty,max=120"`
}

func (r *SignupRequest) Normalize() {
	r.Email = normalizeEmail(r.Email)
	r.Name = normalizeName(r.Name)
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (r *LoginRequest) Normalize() {
	r.Email = normalizeEmail(r.Email)
}

type UpdateCurrentProfileRequest struct {
	Email string  `json:"email" binding:"required,email"`
	Name  *string `json:"name" binding:"omitempty,max=120"`
}

func (r *UpdateCurrentProfileRequest) Normalize() {
	r.Email = normalizeEmail(r.Email)
	r.Name = normalizeName(r.Name)
}

// emails are matched case-insensitively at login
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeName(name *string) *string {
	if name == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*name)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
