package core

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ClientErrorBadInput       = "CLIENT_BAD_INPUT"
	ClientErrorNetwork        = "CLIENT_NETWORK_ERROR"
	ClientErrorUnauthorized   = "CLIENT_AUTH_ERROR"
	ClientErrorSessionExpired = "CLIENT_SESSION_EXPIRED"
	ClientErrorRateLimited    = "CLIENT_RATE_LIMITED"
	ClientErrorServerFailure  = "CLIENT_SERVER_ERROR"
	ClientErrorValidation     = "CLIENT_VALIDATION_ERROR"
	ClientErrorNotFound       = "CLIENT_NOT_FOUND"
	ClientErrorRequestFailed  = "CLIENT_REQUEST_FAILED"
	ClientErrorInternal       = "CLIENT_INTERNAL_ERROR"
)

type ErrorMapper func(err error) *goerrors.Error

func clientErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureClientErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "session expired"), strings.Contains(msg, "refresh token"):
		return newClientError(err.Error(), goerrors.CategoryAuth, ClientErrorSessionExpired)
	case strings.Contains(msg, "no stored credential"):
		return newClientError(err.Error(), goerrors.CategoryAuth, ClientErrorUnauthorized)
	case strings.Contains(msg, "throttl"), strings.Contains(msg, "rate limit"):
		return newClientError(err.Error(), goerrors.CategoryRateLimit, ClientErrorRateLimited)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return newClientError(err.Error(), goerrors.CategoryBadInput, ClientErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureClientErrorEnvelope(mapped)
}

func newClientError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureClientErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureClientErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = clientHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultClientTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultClientTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput:
		return ClientErrorBadInput
	case goerrors.CategoryValidation:
		return ClientErrorValidation
	case goerrors.CategoryNotFound:
		return ClientErrorNotFound
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return ClientErrorUnauthorized
	case goerrors.CategoryRateLimit:
		return ClientErrorRateLimited
	case goerrors.CategoryExternal:
		return ClientErrorNetwork
	case goerrors.CategoryOperation:
		return ClientErrorServerFailure
	default:
		return ClientErrorInternal
	}
}

func clientHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// networkError normalizes a transport failure where no response was obtained.
// This class never triggers a token refresh; it is eligible for transient
// retry.
func networkError(source error, method string, url string) *goerrors.Error {
	return goerrors.Wrap(source, goerrors.CategoryExternal, "core: no response received").
		WithCode(http.StatusBadGateway).
		WithTextCode(ClientErrorNetwork).
		WithMetadata(map[string]any{
			"method": method,
			"url":    url,
		})
}

// ClassifyResponse maps a non-2xx backend response into the normalized error
// envelope. The message is extracted from the body by an ordered list of
// extractors; the first non-empty match wins.
func ClassifyResponse(res TransportResponse) *goerrors.Error {
	message := ExtractErrorMessage(res.Body)
	if message == "" {
		message = http.StatusText(res.StatusCode)
	}
	if message == "" {
		message = fmt.Sprintf("request failed with status %d", res.StatusCode)
	}

	category := goerrors.CategoryOperation
	textCode := ClientErrorServerFailure
	switch {
	case res.StatusCode == http.StatusUnauthorized:
		category = goerrors.CategoryAuth
		textCode = ClientErrorUnauthorized
	case res.StatusCode == http.StatusForbidden:
		category = goerrors.CategoryAuthz
		textCode = ClientErrorUnauthorized
	case res.StatusCode == http.StatusNotFound:
		category = goerrors.CategoryNotFound
		textCode = ClientErrorNotFound
	case res.StatusCode == http.StatusTooManyRequests:
		category = goerrors.CategoryRateLimit
		textCode = ClientErrorRateLimited
	case res.StatusCode == http.StatusUnprocessableEntity:
		category = goerrors.CategoryValidation
		textCode = ClientErrorValidation
	case res.StatusCode >= http.StatusInternalServerError:
		category = goerrors.CategoryOperation
		textCode = ClientErrorServerFailure
	case res.StatusCode >= http.StatusBadRequest:
		category = goerrors.CategoryBadInput
		textCode = ClientErrorRequestFailed
	}

	metadata := map[string]any{"status": res.StatusCode}
	if data := decodeBodyObject(res.Body); data != nil {
		metadata["data"] = data
	}
	return goerrors.New(message, category).
		WithCode(res.StatusCode).
		WithTextCode(textCode).
		WithMetadata(metadata)
}

// messageExtractor returns a human-readable message from a decoded error
// body, or "" when the shape it understands is absent.
type messageExtractor func(body map[string]any) string

// Ordered by specificity; the backend emits several error shapes and the
// first non-empty match wins.
var bodyMessageExtractors = []messageExtractor{
	extractStructuredError,
	extractValidationErrors,
	extractStringDetail,
	extractGenericMessage,
	extractDetailObject,
}

// ExtractErrorMessage resolves the most specific message available in a
// backend error body. Returns "" when the body is empty or carries no
// recognizable error shape.
func ExtractErrorMessage(body []byte) string {
	decoded := decodeBodyObject(body)
	if decoded == nil {
		return strings.TrimSpace(string(body))
	}
	for _, extract := range bodyMessageExtractors {
		if message := strings.TrimSpace(extract(decoded)); message != "" {
			return message
		}
	}
	return ""
}

func extractStructuredError(body map[string]any) string {
	switch typed := body["error"].(type) {
	case string:
		return typed
	case map[string]any:
		if message, ok := typed["message"].(string); ok {
			return message
		}
	}
	return ""
}

func extractValidationErrors(body map[string]any) string {
	items, ok := body["errors"].([]any)
	if !ok || len(items) == 0 {
		return ""
	}
	parts := make([]string, 0, len(items))
	for _, item := range items {
		switch typed := item.(type) {
		case string:
			parts = append(parts, typed)
		case map[string]any:
			field, _ := typed["field"].(string)
			message, _ := typed["message"].(string)
			if message == "" {
				if message, _ = typed["msg"].(string); message == "" {
					continue
				}
			}
			if strings.TrimSpace(field) != "" {
				parts = append(parts, fmt.Sprintf("%s: %s", field, message))
				continue
			}
			parts = append(parts, message)
		}
	}
	return strings.Join(parts, "; ")
}

func extractStringDetail(body map[string]any) string {
	if detail, ok := body["detail"].(string); ok {
		return detail
	}
	return ""
}

func extractGenericMessage(body map[string]any) string {
	if message, ok := body["message"].(string); ok {
		return message
	}
	return ""
}

func extractDetailObject(body map[string]any) string {
	detail, ok := body["detail"].(map[string]any)
	if !ok || len(detail) == 0 {
		return ""
	}
	if message, ok := detail["message"].(string); ok && strings.TrimSpace(message) != "" {
		return message
	}
	keys := make([]string, 0, len(detail))
	for key := range detail {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s: %v", key, detail[key]))
	}
	return strings.Join(parts, "; ")
}

func decodeBodyObject(body []byte) map[string]any {
	if len(body) == 0 {
		return nil
	}
	decoded := map[string]any{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil
	}
	return decoded
}
