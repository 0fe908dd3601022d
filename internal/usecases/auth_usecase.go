package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"promptbot/internal/entities"
	"promptbot/internal/repository"

	"github.com/golang-jwt/jwt/v5"
)

// Credentials identify the caller of one pipeline run. The first non-empty field wins:
// bearer token, then a channel-bound user id, then the sender's phone number.
type Credentials struct {
	BearerToken string
	UserID      int
	Phone       string
}

// UserLookup is the part of the user repository the authorizer needs.
type UserLookup interface {
	GetByID(ctx context.Context, id int) (*entities.User, error)
	GetByPhone(ctx context.Context, phone string) (*entities.User, error)
}

type AuthUsecase struct {
	users     UserLookup
	jwtSecret []byte
}

func NewAuthUsecase(users UserLookup, secret string) *AuthUsecase {
	return &AuthUsecase{
		users:     users,
		jwtSecret: []byte(secret),
	}
}

// Resolve maps credentials to an active user. Credential failures wrap ErrUnauthorized;
// storage failures are returned as they are.
func (uc *AuthUsecase) Resolve(ctx context.Context, cred Credentials) (*entities.User, error) {
	var (
		user *entities.User
		err  error
	)
	switch {
	case cred.BearerToken != "":
		id, perr := uc.ParseToken(cred.BearerToken)
		if perr != nil {
			return nil, perr
		}
		user, err = uc.users.GetByID(ctx, id)
	case cred.UserID > 0:
		user, err = uc.users.GetByID(ctx, cred.UserID)
	case cred.Phone != "":
		user, err = uc.users.GetByPhone(ctx, NormalizePhone(cred.Phone))
	default:
		return nil, fmt.Errorf("%w: no credentials", ErrUnauthorized)
	}

	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown caller", ErrUnauthorized)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve caller: %w", err)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: user %d is disabled", ErrUnauthorized, user.ID)
	}
	return user, nil
}

// ParseToken validates an HMAC-signed JWT and returns its user_id claim.
func (uc *AuthUsecase) ParseToken(tokenString string) (int, error) {
	if len(uc.jwtSecret) == 0 {
		return 0, fmt.Errorf("%w: bearer tokens are not configured", ErrUnauthorized)
	}
	tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, "Bearer "))

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return uc.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return 0, fmt.Errorf("%w: invalid token", ErrUnauthorized)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, fmt.Errorf("%w: invalid claims", ErrUnauthorized)
	}
	// JWT numbers decode as float64
	uid, ok := claims["user_id"].(float64)
	if !ok || uid <= 0 {
		return 0, fmt.Errorf("%w: missing user_id claim", ErrUnauthorized)
	}
	return int(uid), nil
}

// NormalizePhone strips the formatting providers and users add around a phone number.
func NormalizePhone(phone string) string {
	phone = strings.TrimSuffix(phone, "@s.whatsapp.net")
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
