package services

import (
	"chat-relay/auth"
	"chat-relay/errors"
	"chat-relay/repositories"
	"fmt"
)

type IAuthService interface {
	Register(username, email, password string) (Account, error)
	Login(email, password string) (Account, error)
}

// Account is what a successful register/login hands back to the HTTP layer:
// the identity plus the bearer token the realtime endpoint will verify.
type Account struct {
	ID       string
	Username string
	Email    string
	Token    string
}

type AuthService struct {
	userRepository repositories.IUserRepository
	tokens         *auth.TokenManager
}

func NewAuthService(repo repositories.IUserRepository, tokens *auth.TokenManager) IAuthService {
	return &AuthService{userRepository: repo, tokens: tokens}
}

func (s *AuthService) Register(username, email, password string) (Account, error) {
	request := auth.RegisterRequest{
		Username: username,
		Email:    email,
		Password: password,
	}

	// Business rules first, before any expensive cryptographic operation.
	// ValidateRegister already wraps the matching sentinel.
	if err := auth.ValidateRegister(request); err != nil {
		return Account{}, err
	}

	// Hash in the service layer so the repository never sees plain passwords.
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return Account{}, fmt.Errorf("hashing failed: %w", err)
	}

	userID, err := s.userRepository.CreateUser(username, email, hashedPassword)
	if err != nil {
		return Account{}, err // Propagates ErrUserAlreadyExists / ErrUsernameTaken
	}

	token, err := s.tokens.Generate(userID, username)
	if err != nil {
		return Account{}, errors.ErrTokenGeneration
	}
	return Account{ID: userID, Username: username, Email: email, Token: token}, nil
}

func (s *AuthService) Login(email, password string) (Account, error) {
	user, err := s.userRepository.GetUserByEmail(email)
	if err != nil {
		// Generic error to prevent user enumeration attacks.
		return Account{}, errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return Account{}, errors.ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user.ID, user.Username)
	if err != nil {
		return Account{}, errors.ErrTokenGeneration
	}
	return Account{ID: user.ID, Username: user.Username, Email: user.Email, Token: token}, nil
}
