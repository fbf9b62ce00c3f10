package apimodel

// LoginRequest is the body of the email/password login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignupRequest is the body of the signup endpoint.
type SignupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	FullName string `json:"full_name" validate:"required"`
}

// GoogleLoginRequest carries the Google Identity Services credential (an ID
// token). The backend verifies it; the client only forwards it.
type GoogleLoginRequest struct {
	Credential string `json:"credential" validate:"required"`
}
