package auth

import (
	"testing"
	"time"

	"serwis-uzytkownikow/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndVerifyJWT(t *testing.T) {
	secret := "my_super_secret_key_for_testing"
	user := &models.User{
		ID:    123,
		Email: "test@example.com",
		Role:  models.RoleUser,
		Quota: 100,
	}

	tokenString, err := GenerateJWT(user, secret, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)

	claims, err := VerifyJWT(tokenString, secret)
	require.NoError(t, err)
	require.NotNil(t, claims)
	require.Equal(t, user.ID, claims.UserID)
	require.Equal(t, user.Email, claims.Email)
	require.Equal(t, user.Role, claims.Role)
	require.Equal(t, user.Quota, claims.Quota)
	require.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)

	_, err = VerifyJWT(tokenString, "wrong_secret")
	require.Error(t, err)
	require.ErrorIs(t, err, jwt.ErrSignatureInvalid)
}

func TestVerifyJWT_Expired(t *testing.T) {
	secret := "my_super_secret_key_for_testing"

	claimsExpired := &AppClaims{
		UserID: 123,
		Email:  "test@example.com",
		Role:   models.RoleUser,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-1 * time.Minute)),
		},
	}
	tokenExpired := jwt.NewWithClaims(jwt.SigningMethodHS256, claimsExpired)
	tokenStringExpired, err := tokenExpired.SignedString([]byte(secret))
	require.NoError(t, err)

	_, err = VerifyJWT(tokenStringExpired, secret)
	require.Error(t, err)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestVerifyJWT_MalformedClaims(t *testing.T) {
	secret := "my_super_secret_key_for_testing"

	// Signed with the right secret but missing the subject id and role.
	claims := &AppClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	require.NoError(t, err)

	_, err = VerifyJWT(tokenString, secret)
	require.Error(t, err)
}

func TestVerifyJWT_RoleSnapshotIsCarried(t *testing.T) {
	secret := "my_super_secret_key_for_testing"
	admin := &models.User{ID: 1, Email: "admin@example.com", Role: models.RoleAdmin, Quota: 1000}

	tokenString, err := GenerateJWT(admin, secret, time.Hour)
	require.NoError(t, err)

	// Role and quota are frozen at issuance; a later change to the user
	// record does not alter this token.
	admin.Role = models.RoleUser
	admin.Quota = 0

	claims, err := VerifyJWT(tokenString, secret)
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, claims.Role)
	require.Equal(t, int64(1000), claims.Quota)
}
