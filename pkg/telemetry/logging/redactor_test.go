package logging

import (
	"log/slog"
	"testing"
)

func TestRedactor_RedactString(t *testing.T) {
	r := NewRedactor(nil)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"openai key", "using sk-abc123XYZ now", "using sk-*** now"},
		{"bearer", "Authorization: Bearer abc.def-ghi", "Authorization: Bearer ***"},
		{"password", "password=hunter2 ok", "password: *** ok"},
		{"email", "notify ana@example.org", "notify a***@example.org"},
		{"ssn", "ssn 123-45-6789", "ssn ***-**-****"},
		{"card", "card 4111 1111 1111 1234", "card ****-****-****-1234"},
		{"plain", "delete user record", "delete user record"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.RedactString(tt.input); got != tt.want {
				t.Errorf("RedactString(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRedactor_RedactAttr(t *testing.T) {
	r := NewRedactor(nil)

	if got := r.RedactAttr(slog.String("Authorization", "Bearer xyz")); got.Value.String() != "Bear***" {
		t.Errorf("sensitive key = %q", got.Value.String())
	}
	if got := r.RedactAttr(slog.Int("access_token", 10)); got.Value.String() != "***" {
		t.Errorf("sensitive non-string = %q", got.Value.String())
	}
	if got := r.RedactAttr(slog.Int("tokens", 6500)); got.Value.Int64() != 6500 {
		t.Errorf("token count should pass through, got %v", got.Value)
	}
	if got := r.RedactAttr(slog.Int("risk_score", 65)); got.Value.Int64() != 65 {
		t.Errorf("plain int = %v", got.Value)
	}

	group := r.RedactAttr(slog.Group("request", slog.String("secret", "abcdefgh"), slog.String("path", "/x")))
	attrs := group.Value.Group()
	if attrs[0].Value.String() != "abcd***" || attrs[1].Value.String() != "/x" {
		t.Errorf("group = %v", attrs)
	}
}

func TestRedactHelpers(t *testing.T) {
	if got := RedactEmail("@example.com"); got != "***@example.com" {
		t.Errorf("RedactEmail() = %q", got)
	}
	if got := RedactEmail("not-an-email"); got != "not-an-email" {
		t.Errorf("RedactEmail() = %q", got)
	}
	if got := RedactAPIKey("abc"); got != "***" {
		t.Errorf("RedactAPIKey() = %q", got)
	}
	if got := RedactCreditCard("12"); got != "12" {
		t.Errorf("RedactCreditCard() = %q", got)
	}
}
