package echoapi

import (
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
)

const tokenContextKey = "schoolToken"

var errNoSchool = echo.NewHTTPError(http.StatusForbidden, "token is not bound to a school")

// Claims are issued by the identity service; this API only verifies them.
type Claims struct {
	jwt.StandardClaims
	SchoolID string `json:"school_id,omitempty"`
}

func newJWTConfig(secretKey string) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(secretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    tokenContextKey,
		Claims:        new(Claims),
	}
}

// NewClaims returns claims for schoolID valid for ttl.
func NewClaims(schoolID, subject string, ttl time.Duration) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Subject:   subject,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		},
		SchoolID: schoolID,
	}
}

// GenerateToken signs claims with secretKey. Used by tests and the admin CLI.
func GenerateToken(secretKey string, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(tokenContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// contextSchoolID returns the tenant every request is scoped to.
func contextSchoolID(ctx echo.Context) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", err
	}
	if claims.SchoolID == "" {
		return "", errNoSchool
	}
	return claims.SchoolID, nil
}
