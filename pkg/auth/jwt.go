package auth

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/antibyte/retrosheet/pkg/configuration"
	"github.com/antibyte/retrosheet/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultJWTSecret = "fallback_secret_change_in_production"

// tokenCookieName is the cookie the browser sends the token back in.
const tokenCookieName = "retrosheet_token"

// getJWTSecret retrieves the JWT secret from environment variable or configuration
func getJWTSecret() string {
	// First try environment variable
	if envSecret := os.Getenv("RETROSHEET_JWT_SECRET"); envSecret != "" {
		return envSecret
	}

	// Fallback to configuration file
	secret := configuration.GetString("JWT", "secret_key", defaultJWTSecret)
	if secret == defaultJWTSecret {
		logger.SecurityWarn("Using fallback JWT secret - set RETROSHEET_JWT_SECRET environment variable for production!")
	}
	return secret
}

func getIssuer() string {
	return configuration.GetString("JWT", "issuer", "retrosheet")
}

// getUserTokenLifetime retrieves the user token lifetime from configuration
func getUserTokenLifetime() time.Duration {
	return configuration.GetDuration("JWT", "token_lifetime", 24*time.Hour)
}

// getGuestTokenLifetime returns the shorter lifetime for anonymous sessions
func getGuestTokenLifetime() time.Duration {
	return configuration.GetDuration("JWT", "guest_token_lifetime", 2*time.Hour)
}

// NewSessionID returns a fresh uuid v4 session identifier
func NewSessionID() string {
	return uuid.NewString()
}

// GuestClaims defines the claims of an anonymous session token
type GuestClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// UserClaims defines the claims of a logged-in user token
type UserClaims struct {
	SessionID string `json:"sid"`
	Username  string `json:"username"`
	jwt.RegisteredClaims
}

// GenerateGuestToken generates a JWT token for a guest session
func GenerateGuestToken(sessionID string) (string, error) {
	secretKey := getJWTSecret()
	now := time.Now()

	claims := GuestClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(getGuestTokenLifetime())),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    getIssuer(),
			Subject:   "guest",
			ID:        sessionID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", fmt.Errorf("token could not be signed: %v", err)
	}

	logger.AuthInfo("Guest token generated for session ID: %s", sessionID)
	return signedToken, nil
}

// GenerateUserToken generates a JWT token for a logged-in user session
func GenerateUserToken(sessionID, username string) (string, error) {
	secretKey := getJWTSecret()
	now := time.Now()

	claims := UserClaims{
		SessionID: sessionID,
		Username:  username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(getUserTokenLifetime())),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    getIssuer(),
			Subject:   username,
			ID:        sessionID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", fmt.Errorf("token could not be signed: %v", err)
	}

	logger.AuthInfo("User token generated for session ID: %s, username: %s", sessionID, username)
	return signedToken, nil
}

// ValidateGuestToken validates a JWT token for a guest session
func ValidateGuestToken(tokenString string) (*GuestClaims, error) {
	secretKey := getJWTSecret()

	token, err := jwt.ParseWithClaims(
		tokenString,
		&GuestClaims{},
		func(token *jwt.Token) (interface{}, error) {
			// Check signing algorithm
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing algorithm: %v", token.Header["alg"])
			}
			return []byte(secretKey), nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("token parsing failed: %v", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(*GuestClaims)
	if !ok {
		return nil, fmt.Errorf("could not extract token claims")
	}
	if claims.ExpiresAt.Time.Before(time.Now()) {
		return nil, fmt.Errorf("token has expired")
	}
	return claims, nil
}

// ValidateUserToken validates a JWT token for a logged-in user session
func ValidateUserToken(tokenString string) (*UserClaims, error) {
	secretKey := getJWTSecret()

	token, err := jwt.ParseWithClaims(
		tokenString,
		&UserClaims{},
		func(token *jwt.Token) (interface{}, error) {
			// Check signing algorithm
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing algorithm: %v", token.Header["alg"])
			}
			return []byte(secretKey), nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("token parsing failed: %v", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(*UserClaims)
	if !ok {
		return nil, fmt.Errorf("could not extract token claims")
	}
	if claims.ExpiresAt.Time.Before(time.Now()) {
		return nil, fmt.Errorf("token has expired")
	}
	return claims, nil
}

// Identity is the principal a validated token resolves to.
type Identity struct {
	SessionID string
	Username  string
	Guest     bool
}

// Owner returns the store owner key for this identity. Guest sheets are
// keyed by session so they vanish with the session.
func (id *Identity) Owner() string {
	if id.Guest {
		return "guest:" + id.SessionID
	}
	return id.Username
}

// NewGuestIdentity creates an identity for a brand new anonymous session.
func NewGuestIdentity() *Identity {
	return &Identity{SessionID: NewSessionID(), Guest: true}
}

// IdentityFromToken validates a token of either kind and resolves it.
// The token type is detected via the subject claim.
func IdentityFromToken(tokenString string) (*Identity, error) {
	secretKey := getJWTSecret()

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing algorithm: %v", token.Header["alg"])
		}
		return []byte(secretKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("token parsing failed: %v", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("could not extract claims from token")
	}
	subject, ok := claims["sub"].(string)
	if !ok {
		return nil, fmt.Errorf("no subject found in token")
	}

	if subject == "guest" {
		guestClaims, err := ValidateGuestToken(tokenString)
		if err != nil {
			return nil, err
		}
		return &Identity{SessionID: guestClaims.SessionID, Guest: true}, nil
	}

	userClaims, err := ValidateUserToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &Identity{SessionID: userClaims.SessionID, Username: userClaims.Username}, nil
}

// ExtractTokenFromRequest extracts the JWT token from the HTTP request.
// The token can be passed in the Authorization header (Bearer token), as
// a cookie, or as a URL query parameter (websocket handshakes cannot set
// headers from the browser).
func ExtractTokenFromRequest(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" { // Format: "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1], nil
		}
		return "", fmt.Errorf("invalid authorization header format")
	}

	cookie, err := r.Cookie(tokenCookieName)
	if err == nil {
		return cookie.Value, nil
	}

	token := r.URL.Query().Get("token")
	if token != "" {
		return token, nil
	}

	return "", fmt.Errorf("no token found in request")
}

// RequireSession resolves the request's token to an Identity and stores
// it in the request context. A missing or invalid token falls back to a
// fresh guest identity instead of rejecting, so stale clients reconnect
// as guests rather than being locked out.
func RequireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "OPTIONS" {
			next(w, r)
			return
		}

		var identity *Identity
		if tokenString, err := ExtractTokenFromRequest(r); err == nil {
			identity, err = IdentityFromToken(tokenString)
			if err != nil {
				logger.AuthWarn("Invalid token, continuing as guest: %v", err)
				identity = nil
			}
		}
		if identity == nil {
			identity = NewGuestIdentity()
			logger.AuthInfo("New guest session: %s", identity.SessionID)
		}

		next(w, r.WithContext(WithIdentity(r.Context(), identity)))
	}
}
