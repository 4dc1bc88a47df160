// Package session resolves the local user's identity from configuration.
package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/playarena/chat-sync/internal/config"
	"github.com/playarena/chat-sync/internal/domain/chat"
)

// ErrNoIdentity is returned when no user id can be determined.
var ErrNoIdentity = errors.New("user id not configured and not present in token")

// FromConfig builds the session identity. When CHAT_USER_ID is empty the user
// id is read from the token's claims. The token is issued and verified by the
// auth service; it is only decoded here.
func FromConfig(cfg *config.Config) (chat.Identity, error) {
	return Resolve(cfg.UserID, cfg.APIToken)
}

// Resolve returns the identity for an explicit user id and bearer token.
func Resolve(userID, token string) (chat.Identity, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	userID = strings.TrimSpace(userID)

	if userID == "" && token != "" {
		id, err := UserIDFromToken(token)
		if err != nil {
			return chat.Identity{}, err
		}
		userID = id
	}
	if userID == "" {
		return chat.Identity{}, ErrNoIdentity
	}
	return chat.Identity{UserID: userID, Token: token}, nil
}

// UserIDFromToken extracts the user id claim (sub, id or _id) without
// verifying the signature.
func UserIDFromToken(token string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("decode token: %w", err)
	}
	for _, key := range []string{"sub", "id", "_id", "userId"} {
		if v, ok := claims[key].(string); ok && v != "" {
			return v, nil
		}
	}
	return "", ErrNoIdentity
}
