package core

import (
	"context"
	"sort"
	"strings"
	"time"
)

func (c *Client) observeRequest(
	ctx context.Context,
	startedAt time.Time,
	method string,
	path string,
	status int,
	err error,
	fields map[string]any,
) {
	if c == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}

	contextFields := cloneFields(fields)
	contextFields["method"] = method
	contextFields["path"] = path
	contextFields["outcome"] = outcome
	contextFields["duration_ms"] = time.Since(startedAt).Milliseconds()
	if status > 0 {
		contextFields["status"] = status
	}
	if err != nil {
		contextFields["error"] = err.Error()
	}

	tags := map[string]string{
		"method":  strings.ToUpper(strings.TrimSpace(method)),
		"outcome": outcome,
	}
	c.recordCounter(ctx, "agriclient.request.total", 1, tags)
	c.recordHistogram(ctx, "agriclient.request.duration_ms", float64(time.Since(startedAt).Milliseconds()), tags)

	if err != nil {
		c.logError(ctx, "request failed", contextFields)
		return
	}
	c.logInfo(ctx, "request completed", contextFields)
}

func (c *Client) logInfo(ctx context.Context, message string, fields map[string]any) {
	c.logWithLevel(ctx, "info", message, fields)
}

func (c *Client) logError(ctx context.Context, message string, fields map[string]any) {
	c.logWithLevel(ctx, "error", message, fields)
}

func (c *Client) logWithLevel(ctx context.Context, level string, message string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logger := c.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	if fieldsLogger, ok := logger.(FieldsLogger); ok {
		logger = fieldsLogger.WithFields(cloneFields(fields))
	}
	args := flattenFields(fields)
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "error":
		logger.Error(message, args...)
	default:
		logger.Info(message, args...)
	}
}

func (c *Client) recordCounter(ctx context.Context, name string, value int64, tags map[string]string) {
	if c == nil || c.metrics == nil {
		return
	}
	c.metrics.IncCounter(ctx, strings.TrimSpace(name), value, cloneTags(tags))
}

func (c *Client) recordHistogram(ctx context.Context, name string, value float64, tags map[string]string) {
	if c == nil || c.metrics == nil {
		return
	}
	c.metrics.ObserveHistogram(ctx, strings.TrimSpace(name), value, cloneTags(tags))
}

func cloneFields(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return map[string]any{}
	}
	copied := make(map[string]any, len(fields))
	for key, value := range fields {
		copied[key] = value
	}
	return copied
}

func flattenFields(fields map[string]any) []any {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	args := make([]any, 0, len(keys)*2)
	for _, key := range keys {
		args = append(args, key, fields[key])
	}
	return args
}
