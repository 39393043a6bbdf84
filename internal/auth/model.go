// File: internal/auth/model.go
package auth

import "firebase_auth_session/internal/user"

// LoginRequest defines the structure for login requests.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Result is the uniform outcome of every auth operation. A failure carries Error and no User.
type Result struct {
	Success   bool          `json:"success"`
	User      *user.Profile `json:"user,omitempty"`
	IsNewUser *bool         `json:"isNewUser,omitempty"`
	Error     string        `json:"error,omitempty"`
	Message   string        `json:"message,omitempty"`
}

// Success builds a successful result.
func Success(p *user.Profile, message string) *Result {
	return &Result{Success: true, User: p, Message: message}
}

// Failure builds a failed result carrying a user-facing sentence.
func Failure(message string) *Result {
	return &Result{Success: false, Error: message}
}

func (r *Result) withNewUser(isNew bool) *Result {
	r.IsNewUser = &isNew
	return r
}
