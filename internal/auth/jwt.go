package auth

import (
	"serwis-uzytkownikow/internal/models"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AppClaims is a snapshot of the user taken at login. Role and quota are not
// refreshed until the next login unless the server re-checks them per request.
type AppClaims struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Quota  int64  `json:"quota"`
	jwt.RegisteredClaims
}

func GenerateJWT(user *models.User, secret string, expiry time.Duration) (string, error) {
	expirationTime := time.Now().Add(expiry)

	claims := &AppClaims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		Quota:  user.Quota,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "user-service",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func VerifyJWT(tokenString, secret string) (*AppClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AppClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*AppClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrInvalidKey
	}

	if claims.UserID == 0 || !models.ValidRole(claims.Role) {
		return nil, jwt.ErrTokenInvalidClaims
	}

	return claims, nil
}
