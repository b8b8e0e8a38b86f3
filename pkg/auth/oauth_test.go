package auth

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRedirectURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"urn:ietf:wg:oauth:2.0:oob", "http://localhost:6789/oauth2callback"},
		{"http://localhost", "http://localhost:6789"},
		{"http://127.0.0.1:8080/cb", "http://127.0.0.1:6789/cb"},
		{"http://localhost:6789/cb", "http://localhost:6789/cb"},
		{"https://example.com/cb", "https://example.com/cb"},
	}
	for _, tt := range tests {
		if got := redirectURL(tt.in); got != tt.want {
			t.Errorf("redirectURL(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestResetToken(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if err := ResetToken(); err != nil {
		t.Fatalf("Expected no error without a token, got %v", err)
	}

	path, err := TokenPath()
	if err != nil {
		t.Fatalf("TokenPath: %v", err)
	}
	if filepath.Base(filepath.Dir(path)) != "hunt" {
		t.Errorf("Expected token under a hunt config directory, got %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(`{}`), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := ResetToken(); err != nil {
		t.Fatalf("ResetToken: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Expected token to be removed, got %v", err)
	}
}
