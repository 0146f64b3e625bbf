package errors

import "fmt"

var (
	ErrMissingToken        = fmt.Errorf("token missing")
	ErrInvalidToken        = fmt.Errorf("invalid token")
	ErrInvalidPassword     = fmt.Errorf("password does not meet complexity requirements")
	ErrInvalidRegistration = fmt.Errorf("invalid registration details")
	ErrInvalidCredentials  = fmt.Errorf("invalid credentials")
	ErrTokenGeneration     = fmt.Errorf("token generation failed")
	ErrUserAlreadyExists   = fmt.Errorf("user already exists")
	ErrUsernameTaken       = fmt.Errorf("username already taken")
	ErrSinkFull            = fmt.Errorf("sink buffer full")
)
