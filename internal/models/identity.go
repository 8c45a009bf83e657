package models

// Identity is the signed-in user as reported by an authentication provider.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Provider    string `json:"provider"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
