// Package session verifies the bearer tokens issued by the hub backend and
// carries the authenticated user through request contexts.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/emilythestrangee/reddit-clone/community/internal/models"
)

var (
	ErrMissingToken = errors.New("session token required")
	ErrInvalidToken = errors.New("invalid session token")
)

// Claims mirrors the tokens the backend signs on login and registration.
type Claims struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

type Verifier struct {
	secret []byte
	now    func() time.Time
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret), now: time.Now}
}

// Issue signs a token for user, valid for ttl.
func (v *Verifier) Issue(user models.User, ttl time.Duration) (string, error) {
	if len(v.secret) == 0 {
		return "", errors.New("jwt secret not configured")
	}
	now := v.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse validates raw and returns the user it was issued for.
func (v *Verifier) Parse(raw string) (models.User, error) {
	if raw == "" {
		return models.User{}, ErrMissingToken
	}
	if len(v.secret) == 0 {
		return models.User{}, fmt.Errorf("%w: jwt secret not configured", ErrInvalidToken)
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID <= 0 {
		return models.User{}, fmt.Errorf("%w: missing user_id", ErrInvalidToken)
	}

	return models.User{
		ID:       claims.UserID,
		Username: claims.Username,
		Email:    claims.Email,
	}, nil
}

type contextKey struct{}

func WithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(contextKey{}).(models.User)
	return user, ok && user.ID > 0
}

// ContextIdentity resolves the current user from the request context.
type ContextIdentity struct{}

func (ContextIdentity) CurrentUser(ctx context.Context) (models.User, bool) {
	return UserFromContext(ctx)
}

// StaticIdentity always reports the same user. The CLI uses it after
// verifying the token once.
type StaticIdentity struct {
	User models.User
}

func (s StaticIdentity) CurrentUser(context.Context) (models.User, bool) {
	return s.User, s.User.ID > 0
}
