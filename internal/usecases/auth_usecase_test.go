package usecases

import (
	"context"
	"testing"
	"time"

	"promptbot/internal/entities"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestAuthUsecase_Resolve(t *testing.T) {
	users := newFakeUsers(
		&entities.User{ID: 1, Username: "active", Phone: "393331234567", IsActive: true},
		&entities.User{ID: 2, Username: "disabled", Phone: "393339999999", IsActive: false},
	)
	uc := NewAuthUsecase(users, "secret")
	ctx := context.Background()

	valid := signToken(t, "secret", jwt.MapClaims{"user_id": 1, "exp": time.Now().Add(time.Hour).Unix()})
	expired := signToken(t, "secret", jwt.MapClaims{"user_id": 1, "exp": time.Now().Add(-time.Hour).Unix()})
	foreign := signToken(t, "other", jwt.MapClaims{"user_id": 1})
	noClaim := signToken(t, "secret", jwt.MapClaims{"sub": "1"})

	tests := []struct {
		name    string
		cred    Credentials
		wantID  int
		wantErr bool
	}{
		{name: "bearer", cred: Credentials{BearerToken: valid}, wantID: 1},
		{name: "bearer with prefix", cred: Credentials{BearerToken: "Bearer " + valid}, wantID: 1},
		{name: "user id", cred: Credentials{UserID: 1}, wantID: 1},
		{name: "phone", cred: Credentials{Phone: "+39 333 123 4567"}, wantID: 1},
		{name: "expired token", cred: Credentials{BearerToken: expired}, wantErr: true},
		{name: "foreign signature", cred: Credentials{BearerToken: foreign}, wantErr: true},
		{name: "missing claim", cred: Credentials{BearerToken: noClaim}, wantErr: true},
		{name: "invalid bearer does not fall back", cred: Credentials{BearerToken: "junk", Phone: "393331234567"}, wantErr: true},
		{name: "disabled user", cred: Credentials{Phone: "393339999999"}, wantErr: true},
		{name: "empty", cred: Credentials{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := uc.Resolve(ctx, tt.cred)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnauthorized)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, user.ID)
		})
	}
}

func TestAuthUsecase_StorageFailure(t *testing.T) {
	users := newFakeUsers()
	users.err = errDown

	_, err := NewAuthUsecase(users, "secret").Resolve(context.Background(), Credentials{UserID: 1})
	require.ErrorIs(t, err, errDown)
	assert.NotErrorIs(t, err, ErrUnauthorized)
}

func TestAuthUsecase_NoSecret(t *testing.T) {
	token := signToken(t, "secret", jwt.MapClaims{"user_id": 1})
	_, err := NewAuthUsecase(newFakeUsers(), "").ParseToken(token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "393331234567", NormalizePhone("393331234567@s.whatsapp.net"))
	assert.Equal(t, "393331234567", NormalizePhone("+39 333-123-4567"))
	assert.Equal(t, "", NormalizePhone("abc"))
}
