package transport

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// FilePart is one file attachment in a multipart upload.
type FilePart struct {
	FieldName string
	FileName  string
	Content   []byte
}

// BuildMultipartBody encodes form fields and file parts into a multipart
// body and returns it with the boundary-qualified content type. Multipart
// bodies bypass the JSON sanitizer, so callers own the safety of binary
// payloads.
func BuildMultipartBody(fields map[string]string, files []FilePart) ([]byte, string, error) {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)

	for key, value := range fields {
		if strings.TrimSpace(key) == "" {
			continue
		}
		if err := writer.WriteField(key, value); err != nil {
			return nil, "", transportWrapError(
				err,
				goerrors.CategoryInternal,
				"transport: write multipart field",
				http.StatusInternalServerError,
				map[string]any{"field": key},
			)
		}
	}
	for _, file := range files {
		if strings.TrimSpace(file.FieldName) == "" {
			return nil, "", transportError(
				"transport: multipart file field name is required",
				goerrors.CategoryBadInput,
				http.StatusBadRequest,
				nil,
			)
		}
		part, err := writer.CreateFormFile(file.FieldName, file.FileName)
		if err != nil {
			return nil, "", transportWrapError(
				err,
				goerrors.CategoryInternal,
				"transport: create multipart file part",
				http.StatusInternalServerError,
				map[string]any{"field": file.FieldName, "file": file.FileName},
			)
		}
		if _, err := part.Write(file.Content); err != nil {
			return nil, "", transportWrapError(
				err,
				goerrors.CategoryInternal,
				"transport: write multipart file content",
				http.StatusInternalServerError,
				map[string]any{"field": file.FieldName, "file": file.FileName},
			)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", transportWrapError(
			err,
			goerrors.CategoryInternal,
			"transport: finalize multipart body",
			http.StatusInternalServerError,
			nil,
		)
	}
	return buf.Bytes(), writer.FormDataContentType(), nil
}
