package handler

import "github.com/userhub/identity-service/internal/core/domain"

// --- Request types ---
//
// Forms and JSON bodies are both accepted.

type registerRequest struct {
	Username  string `json:"username"  form:"username"`
	Password1 string `json:"password1" form:"password1"`
	Password2 string `json:"password2" form:"password2"`
	Email     string `json:"email"     form:"email"`
	Language  string `json:"language"  form:"language"`
	Lang      string `json:"lang"      form:"lang"`
}

func (r registerRequest) language() string {
	if r.Language != "" {
		return r.Language
	}
	return r.Lang
}

type loginRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

type updateMeRequest struct {
	OldPassword string `json:"old_password" form:"old_password"`
	Password1   string `json:"password1"    form:"password1"`
	Password2   string `json:"password2"    form:"password2"`
	Language    string `json:"language"     form:"language"`
}

type spamRequest struct {
	Count int `query:"count" validate:"omitempty,min=1,max=1000"`
}

// --- Response types ---

// Response is the envelope of every answer, errors included.
type Response struct {
	Message string `json:"message"`
	Content any    `json:"content,omitempty"`
}

// loginContent merges the user projection with every field the token
// service returned.
func loginContent(v domain.UserView, token map[string]any) map[string]any {
	content := map[string]any{
		"id":                v.ID,
		"role_id":           v.RoleID,
		"username":          v.Username,
		"email":             v.Email,
		"language":          v.Language,
		"registration_date": v.RegistrationDate,
	}
	for k, val := range token {
		content[k] = val
	}
	return content
}

func usernames(users []*domain.User) []string {
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.Username)
	}
	return names
}

func views(users []*domain.User) []domain.UserView {
	out := make([]domain.UserView, 0, len(users))
	for _, u := range users {
		out = append(out, u.View())
	}
	return out
}
