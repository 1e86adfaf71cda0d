package transport

import (
	"testing"
)

func TestEndpoint_URL(t *testing.T) {
	tests := []struct {
		name     string
		endpoint Endpoint
		want     string
	}{
		{
			name:     "secure default port",
			endpoint: Endpoint{Host: "api.example.com", Secure: true},
			want:     "https://api.example.com",
		},
		{
			name:     "secure explicit default port elided",
			endpoint: Endpoint{Host: "api.example.com", Port: 443, Secure: true},
			want:     "https://api.example.com",
		},
		{
			name:     "insecure default port",
			endpoint: Endpoint{Host: "api.example.com"},
			want:     "http://api.example.com",
		},
		{
			name:     "insecure explicit default port elided",
			endpoint: Endpoint{Host: "api.example.com", Port: 80},
			want:     "http://api.example.com",
		},
		{
			name:     "alternate port included",
			endpoint: Endpoint{Host: "api.example.com", Port: 8080},
			want:     "http://api.example.com:8080",
		},
		{
			name:     "secure alternate port included",
			endpoint: Endpoint{Host: "api.example.com", Port: 8443, Secure: true},
			want:     "https://api.example.com:8443",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.endpoint.URL(); got != tt.want {
				t.Errorf("URL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEndpoint_GetPath(t *testing.T) {
	endpoint := Endpoint{Host: "mockservice.cc-zone-1.example.com", Secure: true}

	tests := []struct {
		in   string
		want string
	}{
		{"/", "/"},
		{"image.jpg", "/image.jpg"},
		{"folder/image.jpg", "/folder/image.jpg"},
		{"folder//image.jpg", "/folder//image.jpg"},

		// Leading slashes are never removed.
		{"/folder//image.jpg", "/folder//image.jpg"},
		{"/folder////image.jpg", "/folder////image.jpg"},
		{"///folder////image.jpg", "///folder////image.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := endpoint.GetPath(tt.in); got != tt.want {
				t.Errorf("GetPath(%q) = %q, want %q", tt.in, got, tt.want)
			}
			// Normalization is idempotent.
			if got := endpoint.GetPath(endpoint.GetPath(tt.in)); got != tt.want {
				t.Errorf("GetPath(GetPath(%q)) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEndpoint_GetPath_BasePath(t *testing.T) {
	tests := []struct {
		name     string
		basePath string
		in       string
		want     string
	}{
		{"empty base", "", "status", "/status"},
		{"slash base", "/", "status", "/status"},
		{"prefix base", "/v2", "status", "/v2/status"},
		{"prefix base trailing slash", "/v2/", "/status", "/v2/status"},
		{"prefix preserves extra slashes", "/v2", "//status", "/v2//status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			endpoint := Endpoint{Host: "api.example.com", BasePath: tt.basePath}
			if got := endpoint.GetPath(tt.in); got != tt.want {
				t.Errorf("GetPath(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEndpoint_Validate(t *testing.T) {
	if err := (Endpoint{}).Validate(); err == nil {
		t.Error("Validate() error = nil, want error for missing host")
	}
	if err := (Endpoint{Host: "h", Port: 70000}).Validate(); err == nil {
		t.Error("Validate() error = nil, want error for out-of-range port")
	}
	if err := (Endpoint{Host: "h", Port: 8080}).Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}
