package auth

import "errors"

var (
	NotAuthenticatedErr   = errors.New("not authenticated")
	InvalidCredentialErr  = errors.New("invalid google credential")
	MissingUserErr        = errors.New("server returned no user")
	PasswordsDontMatchErr = errors.New("passwords do not match")
)
