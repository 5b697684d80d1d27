package accountsvc

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mkrupp/accountdash/internal/domain"
)

// Claims is the JWT payload of a session token. The subject is the user id.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// IssueToken creates an RS256 signed session token for the user valid for ttl.
func IssueToken(userID int64, username string, key *rsa.PrivateKey, now time.Time, ttl time.Duration) (string, error) {
	//nolint:exhaustruct
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// ParseToken verifies signature, algorithm and expiry of a session token.
// Every failure is reported as domain.ErrInvalidAuthToken joined with the cause.
func ParseToken(tokenString string, publicKey *rsa.PublicKey) (domain.AuthToken, error) {
	if tokenString == "" {
		return domain.AuthToken{}, errors.Join(domain.ErrInvalidAuthToken, domain.ErrNoAuthToken)
	}

	var claims Claims

	token, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return publicKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return domain.AuthToken{}, errors.Join(domain.ErrInvalidAuthToken, err)
	}

	if !token.Valid || claims.Username == "" {
		return domain.AuthToken{}, domain.ErrInvalidAuthToken
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return domain.AuthToken{}, fmt.Errorf("%w: bad subject %q", domain.ErrInvalidAuthToken, claims.Subject)
	}

	authToken := domain.AuthToken{
		UserID:    userID,
		Username:  claims.Username,
		ExpiresAt: claims.ExpiresAt.Unix(),
	}

	if claims.IssuedAt != nil {
		authToken.IssuedAt = claims.IssuedAt.Unix()
	}

	return authToken, nil
}
