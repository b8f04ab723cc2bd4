// Package sanitize neutralizes script-capable content in outbound request
// bodies before they reach the wire. Values under credential and
// access-control fields are passed through untouched so hashes, tokens, and
// role flags survive byte-for-byte.
package sanitize

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/agrisetu/go-agriclient/core"
)

// Field keys whose values are never rewritten. Matching is case-insensitive
// and applies at any depth.
var defaultExcludedFields = []string{
	"password",
	"current_password",
	"new_password",
	"token",
	"access_token",
	"refresh_token",
	"api_key",
	"secret",
	"authorization",
	"otp",
	"pin",
	"role",
	"is_admin",
}

// Paths that carry credentials end-to-end and skip sanitization entirely.
var defaultSkipPaths = []string{
	"/auth/login",
	"/auth/register",
	"/auth/refresh",
	"/auth/otp",
}

type Sanitizer struct {
	policy    *bluemonday.Policy
	excluded  map[string]struct{}
	skipPaths []string
	disabled  bool
}

func New(cfg core.SanitizeConfig) *Sanitizer {
	excluded := map[string]struct{}{}
	for _, field := range defaultExcludedFields {
		excluded[strings.ToLower(field)] = struct{}{}
	}
	for _, field := range cfg.ExcludedFields {
		field = strings.ToLower(strings.TrimSpace(field))
		if field == "" {
			continue
		}
		excluded[field] = struct{}{}
	}

	skipPaths := append([]string(nil), defaultSkipPaths...)
	for _, path := range cfg.SkipPaths {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		skipPaths = append(skipPaths, path)
	}

	return &Sanitizer{
		policy:    bluemonday.StrictPolicy(),
		excluded:  excluded,
		skipPaths: skipPaths,
		disabled:  cfg.Disabled,
	}
}

// SanitizeBody rewrites string values in JSON bodies through the strict
// policy. Non-JSON payloads (multipart uploads, binary content) and
// credential paths pass through unchanged.
func (s *Sanitizer) SanitizeBody(method string, path string, contentType string, body []byte) ([]byte, error) {
	if s == nil || s.disabled || len(body) == 0 {
		return body, nil
	}
	switch strings.ToUpper(strings.TrimSpace(method)) {
	case http.MethodGet, http.MethodHead:
		return body, nil
	}
	if !isJSONContentType(contentType) {
		return body, nil
	}
	if s.shouldSkipPath(path) {
		return body, nil
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		// Bodies that claim JSON but do not parse are sent verbatim; the
		// backend rejects them with its own validation error.
		return body, nil
	}
	cleaned := s.sanitizeValue(decoded, false)
	encoded, err := json.Marshal(cleaned)
	if err != nil {
		return nil, err
	}
	return encoded, nil
}

func (s *Sanitizer) shouldSkipPath(path string) bool {
	path = strings.TrimSpace(path)
	if path == "" {
		return false
	}
	for _, skip := range s.skipPaths {
		if strings.Contains(path, skip) {
			return true
		}
	}
	return false
}

func (s *Sanitizer) sanitizeValue(value any, excluded bool) any {
	switch typed := value.(type) {
	case string:
		if excluded {
			return typed
		}
		return s.policy.Sanitize(typed)
	case map[string]any:
		cleaned := make(map[string]any, len(typed))
		for key, item := range typed {
			_, skip := s.excluded[strings.ToLower(key)]
			cleaned[key] = s.sanitizeValue(item, excluded || skip)
		}
		return cleaned
	case []any:
		cleaned := make([]any, len(typed))
		for i, item := range typed {
			cleaned[i] = s.sanitizeValue(item, excluded)
		}
		return cleaned
	default:
		return typed
	}
}

func isJSONContentType(contentType string) bool {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if contentType == "" {
		return true
	}
	return strings.Contains(contentType, "application/json") ||
		strings.Contains(contentType, "+json")
}

var _ core.RequestSanitizer = (*Sanitizer)(nil)
