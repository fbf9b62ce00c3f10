package auth

import (
	"fmt"
	"strings"

	"github.com/jrsteele09/go-imagen-client/apimodel"
	"github.com/jrsteele09/go-imagen-client/internal/validation"
)

// Validator checks auth payloads before they are sent.
type Validator struct {
	structs *validation.Validator
}

// NewValidator creates a new Validator instance
func NewValidator() *Validator {
	return &Validator{structs: validation.New()}
}

// ValidateLogin validates login credentials
func (v *Validator) ValidateLogin(req apimodel.LoginRequest) error {
	return v.structs.Struct(req)
}

// ValidateSignup validates a signup request and its password confirmation
func (v *Validator) ValidateSignup(req apimodel.SignupRequest, confirmPassword string) error {
	if err := v.structs.Struct(req); err != nil {
		return err
	}
	if confirmPassword != "" && confirmPassword != req.Password {
		return PasswordsDontMatchErr
	}
	return nil
}

// ValidateGoogleCredential checks the credential looks like a JWT. The
// backend verifies it; this only catches obviously wrong input.
func (v *Validator) ValidateGoogleCredential(credential string) error {
	credential = strings.TrimSpace(credential)
	if err := v.structs.Struct(apimodel.GoogleLoginRequest{Credential: credential}); err != nil {
		return err
	}

	parts := strings.Split(credential, ".")
	if len(parts) != 3 {
		return fmt.Errorf("%w: must be a JWT", InvalidCredentialErr)
	}
	for i, part := range parts {
		if len(part) == 0 {
			return fmt.Errorf("%w: part %d is empty", InvalidCredentialErr, i+1)
		}
	}
	return nil
}
