package auth

import (
	"chat-relay/domain"
	"chat-relay/errors"
)

// Verifier is the credential gate of the realtime core. It runs before any
// session state is created; a rejected token means no presence entry and no
// subscriber-set membership ever existed for the connection.
type Verifier struct {
	tokens *TokenManager
}

func NewVerifier(tokens *TokenManager) *Verifier {
	return &Verifier{tokens: tokens}
}

// Verify validates an opaque bearer credential and yields a stable identity.
// The returned username is trusted for all subsequent routing; the router
// never re-derives identity from client-supplied fields.
func (v *Verifier) Verify(token string) (domain.Identity, error) {
	if token == "" {
		return domain.Identity{}, errors.ErrMissingToken
	}
	claims, err := v.tokens.Parse(token)
	if err != nil {
		return domain.Identity{}, errors.ErrInvalidToken
	}
	if claims.Username == "" {
		return domain.Identity{}, errors.ErrInvalidToken
	}
	return domain.Identity{ID: claims.UserID, Username: claims.Username}, nil
}
