package logging

import (
	"log/slog"
	"regexp"
	"strings"

	"mercator-hq/overseer/pkg/config"
)

// Redactor removes secrets and personal data from log attributes.
type Redactor struct {
	patterns []*redactPattern
}

type redactPattern struct {
	name    string
	regex   *regexp.Regexp
	replace func(string) string
}

// Built-in pattern names.
const (
	PatternAPIKey      = "api_key"
	PatternBearerToken = "bearer_token"
	PatternPassword    = "password"
	PatternEmail       = "email"
	PatternSSN         = "ssn"
	PatternCreditCard  = "credit_card"
)

var sensitiveKeys = []string{
	"password", "passwd", "pwd",
	"secret", "api_key", "apikey",
	"access_token", "refresh_token", "auth_token", "session_token",
	"authorization",
	"ssn", "credit_card", "creditcard",
	"private_key", "privatekey",
}

// NewRedactor creates a redactor with the built-in patterns followed by the
// custom ones. Custom patterns that do not compile are skipped; config
// validation reports them.
func NewRedactor(custom []config.RedactPattern) *Redactor {
	r := &Redactor{}
	r.add(PatternAPIKey, `(sk-[a-zA-Z0-9]+|api[-_]?key[-_:]\s*[a-zA-Z0-9]+)`, literal("sk-***"))
	r.add(PatternBearerToken, `Bearer\s+[a-zA-Z0-9\-._~+/]+=*`, literal("Bearer ***"))
	r.add(PatternPassword, `(?i)(password|passwd|pwd)[:=]\s*[^\s]+`, nil)
	r.add(PatternEmail, `[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`, RedactEmail)
	r.add(PatternSSN, `\b\d{3}-\d{2}-\d{4}\b`, literal("***-**-****"))
	r.add(PatternCreditCard, `\b(?:\d{4}[ -]){3}\d{4}\b`, RedactCreditCard)

	for _, p := range custom {
		regex, err := regexp.Compile(p.Pattern)
		if err != nil {
			continue
		}
		r.patterns = append(r.patterns, &redactPattern{name: p.Name, regex: regex, replace: literal(p.Replacement)})
	}
	return r
}

func (r *Redactor) add(name, expr string, replace func(string) string) {
	p := &redactPattern{name: name, regex: regexp.MustCompile(expr), replace: replace}
	if replace == nil {
		re := p.regex
		p.replace = func(m string) string { return re.ReplaceAllString(m, "$1: ***") }
	}
	r.patterns = append(r.patterns, p)
}

func literal(s string) func(string) string {
	return func(string) string { return s }
}

// RedactString applies every pattern to value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}
	for _, p := range r.patterns {
		value = p.regex.ReplaceAllStringFunc(value, p.replace)
	}
	return value
}

// RedactAttr redacts one attribute. Values under sensitive keys are masked
// entirely; other string values pass through the patterns. Groups are
// redacted recursively.
func (r *Redactor) RedactAttr(a slog.Attr) slog.Attr {
	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindGroup:
		attrs := v.Group()
		out := make([]any, len(attrs))
		for i, ga := range attrs {
			out[i] = r.RedactAttr(ga)
		}
		return slog.Group(a.Key, out...)
	case slog.KindString:
		if isSensitiveKey(a.Key) {
			return slog.String(a.Key, maskValue(v.String()))
		}
		return slog.String(a.Key, r.RedactString(v.String()))
	default:
		if isSensitiveKey(a.Key) {
			return slog.String(a.Key, "***")
		}
		return slog.Attr{Key: a.Key, Value: v}
	}
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	if lower == "token" {
		return true
	}
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// maskValue keeps a four character hint of longer values.
func maskValue(v string) string {
	switch {
	case v == "":
		return ""
	case len(v) <= 4:
		return "***"
	default:
		return v[:4] + "***"
	}
}

// RedactEmail keeps the first character of the local part and the domain.
func RedactEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	if at == 0 {
		return "***" + email[at:]
	}
	return email[:1] + "***" + email[at:]
}

// RedactAPIKey keeps the first four characters of a key.
func RedactAPIKey(apiKey string) string {
	return maskValue(apiKey)
}

// RedactCreditCard keeps the last four digits of a card number.
func RedactCreditCard(cc string) string {
	cleaned := strings.NewReplacer(" ", "", "-", "").Replace(cc)
	if len(cleaned) < 13 || len(cleaned) > 16 {
		return cc
	}
	return "****-****-****-" + cleaned[len(cleaned)-4:]
}
