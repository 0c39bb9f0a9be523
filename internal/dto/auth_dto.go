package dto

import "github.com/loopflow/cadenza/internal/models"

type AppleSignInRequest struct {
	IDToken      string `json:"id_token"`
	IDTokenCamel string `json:"idToken"`
}

// Token returns the identity token from either accepted field name.
func (r *AppleSignInRequest) Token() string {
	if r.IDToken != "" {
		return r.IDToken
	}
	return r.IDTokenCamel
}

type DevLoginRequest struct {
	Email string `query:"email" validate:"required,email"`
}

type AuthResponse struct {
	AccessToken string       `json:"access_token"`
	User        *models.User `json:"user"`
}

type ErrorResponse struct {
	Error   bool   `json:"error"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
}
