package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"

	"github.com/antibyte/retrosheet/pkg/configuration"
	"github.com/antibyte/retrosheet/pkg/logger"
	"github.com/antibyte/retrosheet/pkg/store"

	"golang.org/x/crypto/bcrypt"
)

// userStore is injected at startup; login and register need it.
var userStore store.Store

// SetStore sets the store used for account lookup and creation.
func SetStore(st store.Store) {
	userStore = st
}

var usernamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]{2,31}$`)

// LoginRequest carries the credentials for login and registration
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse is the JSON shape of every auth endpoint
type AuthResponse struct {
	Success   bool   `json:"success"`
	Token     string `json:"token,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Username  string `json:"username,omitempty"`
	Message   string `json:"message"`
}

// HandleCreateSession creates a new guest session and returns its token
func HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != "POST" {
		logger.AuthWarn("Invalid method for session creation: %s", r.Method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !configuration.GetBool("Authentication", "enable_guest_access", true) {
		logger.AuthWarn("Guest session rejected: guest access disabled")
		respondWithError(w, "Guest access is disabled", http.StatusForbidden)
		return
	}

	sessionID := NewSessionID()
	token, err := GenerateGuestToken(sessionID)
	if err != nil {
		logger.AuthError("Failed to generate guest JWT token for session %s: %v", sessionID, err)
		respondWithError(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	setTokenCookie(w, token, int(getGuestTokenLifetime().Seconds()))

	response := AuthResponse{
		Success:   true,
		Token:     token,
		SessionID: sessionID,
		Message:   "Session created successfully",
	}

	logger.AuthInfo("New guest session created: %s for IP: %s", sessionID, getClientIP(r))
	json.NewEncoder(w).Encode(response)
}

// HandleLogin verifies credentials against the store and issues a user token
func HandleLogin(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != "POST" {
		logger.AuthWarn("Invalid method for login: %s", r.Method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var loginReq LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&loginReq); err != nil {
		logger.AuthWarn("Invalid JSON in login request: %v", err)
		respondWithError(w, "Invalid request format", http.StatusBadRequest)
		return
	}
	if loginReq.Username == "" || loginReq.Password == "" {
		respondWithError(w, "Username and password required", http.StatusBadRequest)
		return
	}

	if userStore == nil {
		logger.AuthError("Login attempted without a configured store")
		respondWithError(w, "Login unavailable", http.StatusInternalServerError)
		return
	}

	user, err := userStore.User(loginReq.Username)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logger.AuthError("User lookup failed for %s: %v", loginReq.Username, err)
		}
		logger.AuthWarn("Failed login for %s from %s", loginReq.Username, getClientIP(r))
		respondWithError(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(loginReq.Password)); err != nil {
		logger.AuthWarn("Failed login for %s from %s", loginReq.Username, getClientIP(r))
		respondWithError(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	sessionID := NewSessionID()
	token, err := GenerateUserToken(sessionID, user.Username)
	if err != nil {
		logger.AuthError("Failed to generate user JWT token for %s: %v", user.Username, err)
		respondWithError(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	setTokenCookie(w, token, int(getUserTokenLifetime().Seconds()))

	response := AuthResponse{
		Success:   true,
		Token:     token,
		SessionID: sessionID,
		Username:  user.Username,
		Message:   "Login successful",
	}

	logger.AuthInfo("User %s logged in, session: %s", user.Username, sessionID)
	json.NewEncoder(w).Encode(response)
}

// HandleRegister creates a new account and logs it straight in
func HandleRegister(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != "POST" {
		logger.AuthWarn("Invalid method for registration: %s", r.Method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var registerReq LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&registerReq); err != nil {
		logger.AuthWarn("Invalid JSON in registration request: %v", err)
		respondWithError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	if !usernamePattern.MatchString(registerReq.Username) {
		respondWithError(w, "Username must be 3-32 characters, letters, digits or underscore, starting with a letter", http.StatusBadRequest)
		return
	}
	minLength := configuration.GetInt("Authentication", "min_password_length", 8)
	if len(registerReq.Password) < minLength {
		respondWithError(w, "Password too short", http.StatusBadRequest)
		return
	}

	if userStore == nil {
		logger.AuthError("Registration attempted without a configured store")
		respondWithError(w, "Registration unavailable", http.StatusInternalServerError)
		return
	}

	cost := configuration.GetInt("Authentication", "password_hash_cost", 12)
	hash, err := bcrypt.GenerateFromPassword([]byte(registerReq.Password), cost)
	if err != nil {
		logger.AuthError("Failed to hash password for %s: %v", registerReq.Username, err)
		respondWithError(w, "Registration failed", http.StatusInternalServerError)
		return
	}

	if err := userStore.CreateUser(registerReq.Username, string(hash)); err != nil {
		if errors.Is(err, store.ErrExists) {
			respondWithError(w, "Username already taken", http.StatusConflict)
			return
		}
		logger.AuthError("Failed to create user %s: %v", registerReq.Username, err)
		respondWithError(w, "Registration failed", http.StatusInternalServerError)
		return
	}

	sessionID := NewSessionID()
	token, err := GenerateUserToken(sessionID, registerReq.Username)
	if err != nil {
		logger.AuthError("Failed to generate token for new user %s: %v", registerReq.Username, err)
		respondWithError(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	setTokenCookie(w, token, int(getUserTokenLifetime().Seconds()))

	response := AuthResponse{
		Success:   true,
		Token:     token,
		SessionID: sessionID,
		Username:  registerReq.Username,
		Message:   "Registration successful",
	}

	logger.AuthInfo("User registered: %s from %s", registerReq.Username, getClientIP(r))
	json.NewEncoder(w).Encode(response)
}

// HandleTokenValidation validates a JWT token of either kind
func HandleTokenValidation(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	tokenString, err := ExtractTokenFromRequest(r)
	if err != nil {
		logger.AuthWarn("No token found in validation request: %v", err)
		respondWithError(w, "Token not found", http.StatusUnauthorized)
		return
	}

	identity, err := IdentityFromToken(tokenString)
	if err != nil {
		logger.AuthWarn("Token validation failed: %v", err)
		respondWithError(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	response := AuthResponse{
		Success:   true,
		SessionID: identity.SessionID,
		Username:  identity.Username,
		Message:   "Token valid",
	}

	logger.AuthInfo("Token validated for session: %s", identity.SessionID)
	json.NewEncoder(w).Encode(response)
}

// HandleRefresh re-issues a token for the session the current token
// names. The frontend calls this before expiry and re-sends the fresh
// token over its websocket so long-lived connections stay authenticated.
func HandleRefresh(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != "POST" {
		logger.AuthWarn("Invalid method for token refresh: %s", r.Method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	tokenString, err := ExtractTokenFromRequest(r)
	if err != nil {
		logger.AuthWarn("No token found in refresh request: %v", err)
		respondWithError(w, "Token not found", http.StatusUnauthorized)
		return
	}

	identity, err := IdentityFromToken(tokenString)
	if err != nil {
		logger.AuthWarn("Token refresh rejected: %v", err)
		respondWithError(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	var fresh string
	var lifetime int
	if identity.Guest {
		fresh, err = GenerateGuestToken(identity.SessionID)
		lifetime = int(getGuestTokenLifetime().Seconds())
	} else {
		fresh, err = GenerateUserToken(identity.SessionID, identity.Username)
		lifetime = int(getUserTokenLifetime().Seconds())
	}
	if err != nil {
		logger.AuthError("Failed to re-issue token for session %s: %v", identity.SessionID, err)
		respondWithError(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	setTokenCookie(w, fresh, lifetime)

	response := AuthResponse{
		Success:   true,
		Token:     fresh,
		SessionID: identity.SessionID,
		Username:  identity.Username,
		Message:   "Token refreshed",
	}

	logger.AuthInfo("Token refreshed for session: %s", identity.SessionID)
	json.NewEncoder(w).Encode(response)
}

// HandleLogout clears the token cookie
func HandleLogout(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	cookie := &http.Cookie{
		Name:     tokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   false,
		SameSite: http.SameSiteLaxMode,
	}
	http.SetCookie(w, cookie)

	response := AuthResponse{
		Success: true,
		Message: "Logout successful",
	}

	logger.AuthInfo("User logged out, token cookie cleared")
	json.NewEncoder(w).Encode(response)
}

// setTokenCookie attaches the token for automatic transmission
func setTokenCookie(w http.ResponseWriter, token string, maxAge int) {
	cookie := &http.Cookie{
		Name:     tokenCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,  // XSS protection
		Secure:   false, // set true in production behind HTTPS
		SameSite: http.SameSiteLaxMode,
	}
	http.SetCookie(w, cookie)
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header first (for load balancers/proxies)
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		return forwarded
	}

	realIP := r.Header.Get("X-Real-IP")
	if realIP != "" {
		return realIP
	}

	return r.RemoteAddr
}

// respondWithError sends an error response as JSON
func respondWithError(w http.ResponseWriter, message string, statusCode int) {
	w.WriteHeader(statusCode)
	response := AuthResponse{
		Success: false,
		Message: message,
	}
	json.NewEncoder(w).Encode(response)
}
