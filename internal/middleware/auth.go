package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"selectra/interview/internal/models"
	"selectra/interview/internal/utils"
)

const candidateIDKey contextKey = "candidate_id"

// Claims carried by candidate access tokens. The subject is the candidate ID.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// ParseToken validates an HS256 token and returns its claims.
func ParseToken(tokenString string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

// ExtractTokenFromHeader extracts the token from the Authorization header
func ExtractTokenFromHeader(authHeader string) (string, error) {
	if authHeader == "" {
		return "", errors.New("authorization header missing")
	}

	if len(authHeader) < 7 || !strings.EqualFold(authHeader[:7], "Bearer ") {
		return "", errors.New("invalid authorization header format")
	}

	return authHeader[7:], nil
}

// Authenticate requires a valid bearer token and stores the candidate ID in
// the request context. Browsers cannot set headers on websocket upgrades, so
// the access_token query parameter is accepted as well.
func Authenticate(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := ExtractTokenFromHeader(r.Header.Get("Authorization"))
			if err != nil {
				tokenString = r.URL.Query().Get("access_token")
			}
			if tokenString == "" {
				utils.JSON(w, http.StatusUnauthorized, models.ErrorResponse{
					Code:    "unauthorized",
					Message: "Missing access token",
				})
				return
			}

			claims, err := ParseToken(tokenString, secret)
			if err != nil {
				utils.JSON(w, http.StatusUnauthorized, models.ErrorResponse{
					Code:    "unauthorized",
					Message: "Invalid or expired access token",
				})
				return
			}

			next.ServeHTTP(w, r.WithContext(WithCandidateID(r.Context(), claims.Subject)))
		})
	}
}

func WithCandidateID(ctx context.Context, candidateID string) context.Context {
	return context.WithValue(ctx, candidateIDKey, candidateID)
}

func CandidateID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(candidateIDKey).(string)
	return id, ok && id != ""
}
