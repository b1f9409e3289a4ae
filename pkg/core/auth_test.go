package core

import (
	"net/http/httptest"
	"testing"
)

func TestValidateAuthToken(t *testing.T) {
	tests := []struct {
		token   string
		wantErr bool
	}{
		{"a1b2c3d4e5f6g7h8", false},
		{"", true},
		{"short", true},
		{"password12345678", true},
		{"drinkwater9k2m4q7z", true},
	}

	for _, tt := range tests {
		err := ValidateAuthToken(tt.token)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateAuthToken(%q) error = %v, wantErr %v", tt.token, err, tt.wantErr)
		}
	}
}

func TestParseAuthScheme(t *testing.T) {
	tests := map[string]AuthScheme{
		"":        AuthNone,
		"none":    AuthNone,
		"Bearer":  AuthBearer,
		" basic ": AuthBasic,
	}
	for in, want := range tests {
		got, err := ParseAuthScheme(in)
		if err != nil || got != want {
			t.Errorf("ParseAuthScheme(%q) = %q, %v; want %q", in, got, err, want)
		}
	}

	if _, err := ParseAuthScheme("digest"); err == nil {
		t.Error("expected error for unknown scheme")
	}
}

func TestAuthenticateBearer(t *testing.T) {
	tests := []struct {
		header  string
		wantErr string
	}{
		{"Bearer validtokensecret", ""},
		{"", "Missing Authorization header"},
		{"Token validtokensecret", "Invalid Authorization header format"},
		{"Bearer wrong", "Invalid bearer token"},
	}

	for _, tt := range tests {
		result := AuthenticateBearer(tt.header, "validtokensecret")
		if result.Authorized != (tt.wantErr == "") || result.Error != tt.wantErr {
			t.Errorf("AuthenticateBearer(%q) = %+v, want error %q", tt.header, result, tt.wantErr)
		}
	}
}

func TestAuthenticateBasic(t *testing.T) {
	if result := AuthenticateBasic("user", "pass", "user:pass"); !result.Authorized {
		t.Fatalf("expected authorized, got error: %s", result.Error)
	}

	result := AuthenticateBasic("", "", "user:pass")
	if result.Authorized || result.Error != "Missing basic auth credentials" {
		t.Fatalf("expected missing credentials, got %+v", result)
	}

	result = AuthenticateBasic("user", "wrong", "user:pass")
	if result.Authorized || result.Error != "Invalid basic auth credentials" {
		t.Fatalf("expected invalid credentials, got %+v", result)
	}
}

func TestAuthenticator(t *testing.T) {
	none := Authenticator{Scheme: AuthNone}
	if none.Required() || !none.Authenticate(httptest.NewRequest("GET", "/sse", nil)).Authorized {
		t.Error("none scheme should admit every request")
	}

	bearer := Authenticator{Scheme: AuthBearer, Secret: "validtokensecret"}
	req := httptest.NewRequest("GET", "/sse", nil)
	if bearer.Authenticate(req).Authorized {
		t.Error("bearer scheme should reject a request without header")
	}
	req.Header.Set("Authorization", "Bearer validtokensecret")
	if !bearer.Authenticate(req).Authorized {
		t.Error("bearer scheme should accept the configured token")
	}

	basic := Authenticator{Scheme: AuthBasic, Secret: "nurse:clinic"}
	req = httptest.NewRequest("POST", "/message", nil)
	req.SetBasicAuth("nurse", "clinic")
	if !basic.Authenticate(req).Authorized {
		t.Error("basic scheme should accept matching credentials")
	}
	if basic.Challenge() != `Basic realm="arogyajal"` {
		t.Errorf("unexpected challenge %q", basic.Challenge())
	}
}
