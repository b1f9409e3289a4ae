package core

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"
)

// AuthScheme is the credential scheme guarding the MCP HTTP endpoints
type AuthScheme string

// Supported schemes
const (
	AuthNone   AuthScheme = "none"
	AuthBearer AuthScheme = "bearer"
	AuthBasic  AuthScheme = "basic"
)

// ParseAuthScheme maps a flag value onto a scheme. Unknown values are
// reported so startup can fail loudly.
func ParseAuthScheme(s string) (AuthScheme, error) {
	switch scheme := AuthScheme(strings.ToLower(strings.TrimSpace(s))); scheme {
	case "", AuthNone:
		return AuthNone, nil
	case AuthBearer, AuthBasic:
		return scheme, nil
	default:
		return "", NewError(ErrInvalidParameter, "unknown auth type "+s).
			WithSuggestions(string(AuthNone), string(AuthBearer), string(AuthBasic))
	}
}

// SecureCompareString performs constant-time string comparison
func SecureCompareString(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

var weakTokens = []string{
	"password", "secret", "token", "admin", "test", "default",
	"12345", "123456", "password123", "secret123", "admin123",
	"water", "hydrate",
}

// ValidateAuthToken rejects empty, short and guessable tokens
func ValidateAuthToken(token string) error {
	if token == "" {
		return NewError(ErrInvalidParameter, "Authentication token cannot be empty").
			WithGuidance("Provide a valid authentication token for security.")
	}

	if len(token) < 16 {
		return NewError(ErrInvalidParameter, "Authentication token is too short").
			WithGuidance("Use a token with at least 16 characters for security.")
	}

	lowerToken := strings.ToLower(token)
	for _, weak := range weakTokens {
		if strings.Contains(lowerToken, weak) {
			return NewError(ErrInvalidParameter, "Authentication token appears to be weak").
				WithGuidance("Use a randomly generated, strong authentication token.")
		}
	}

	return nil
}

// AuthResult represents the result of authentication
type AuthResult struct {
	Authorized bool
	Error      string
	Duration   time.Duration
}

// Authenticator checks request credentials against a configured secret.
// For basic auth the secret is "user:password".
type Authenticator struct {
	Scheme AuthScheme
	Secret string
}

// Required reports whether requests must carry credentials
func (a Authenticator) Required() bool {
	return a.Scheme != AuthNone && a.Scheme != ""
}

// Authenticate inspects the request headers according to the scheme
func (a Authenticator) Authenticate(r *http.Request) AuthResult {
	switch a.Scheme {
	case "", AuthNone:
		return AuthResult{Authorized: true}
	case AuthBearer:
		return AuthenticateBearer(r.Header.Get("Authorization"), a.Secret)
	case AuthBasic:
		username, password, ok := r.BasicAuth()
		if !ok {
			return AuthResult{Error: "Missing basic auth credentials"}
		}
		return AuthenticateBasic(username, password, a.Secret)
	default:
		return AuthResult{Error: "Unknown auth type"}
	}
}

// Challenge returns the WWW-Authenticate header value for a rejected request
func (a Authenticator) Challenge() string {
	if a.Scheme == AuthBasic {
		return `Basic realm="arogyajal"`
	}
	return "Bearer"
}

// AuthenticateBearer checks an "Authorization: Bearer <token>" header
func AuthenticateBearer(authHeader, expectedToken string) AuthResult {
	start := time.Now()
	defer time.Sleep(time.Millisecond)

	if authHeader == "" {
		return AuthResult{Error: "Missing Authorization header", Duration: time.Since(start)}
	}

	scheme, token, found := strings.Cut(authHeader, " ")
	if !found || scheme != "Bearer" {
		return AuthResult{Error: "Invalid Authorization header format", Duration: time.Since(start)}
	}

	if !SecureCompareString(token, expectedToken) {
		return AuthResult{Error: "Invalid bearer token", Duration: time.Since(start)}
	}

	return AuthResult{Authorized: true, Duration: time.Since(start)}
}

// AuthenticateBasic checks basic auth credentials against "user:password"
func AuthenticateBasic(username, password, expectedCredentials string) AuthResult {
	start := time.Now()
	defer time.Sleep(time.Millisecond)

	if username == "" || password == "" {
		return AuthResult{Error: "Missing basic auth credentials", Duration: time.Since(start)}
	}

	if !SecureCompareString(username+":"+password, expectedCredentials) {
		return AuthResult{Error: "Invalid basic auth credentials", Duration: time.Since(start)}
	}

	return AuthResult{Authorized: true, Duration: time.Since(start)}
}
