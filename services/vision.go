package services

import (
	"context"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/agrisetu/go-agriclient/core"
	"github.com/agrisetu/go-agriclient/transport"
)

type VisionService struct {
	client *core.Client
}

func NewVisionService(client *core.Client) *VisionService {
	return &VisionService{client: client}
}

type DiagnoseInput struct {
	Image    []byte
	FileName string
	CropName string
	Language string
}

type Diagnosis struct {
	Disease     string   `json:"disease"`
	Confidence  float64  `json:"confidence"`
	Severity    string   `json:"severity"`
	Treatment   string   `json:"treatment"`
	Precautions []string `json:"precautions"`
}

// DiagnoseCrop uploads a crop photo for disease detection. The multipart
// body is sent verbatim; sanitization applies only to JSON payloads.
func (s *VisionService) DiagnoseCrop(ctx context.Context, input DiagnoseInput) (Diagnosis, error) {
	if s == nil || s.client == nil {
		return Diagnosis{}, serviceNotConfigured("vision")
	}
	if len(input.Image) == 0 {
		return Diagnosis{}, goerrors.New("services: crop image is required", goerrors.CategoryBadInput).
			WithTextCode(core.ClientErrorBadInput)
	}
	fileName := strings.TrimSpace(input.FileName)
	if fileName == "" {
		fileName = "crop.jpg"
	}

	fields := map[string]string{}
	if strings.TrimSpace(input.CropName) != "" {
		fields["crop_name"] = strings.TrimSpace(input.CropName)
	}
	if strings.TrimSpace(input.Language) != "" {
		fields["language"] = strings.TrimSpace(input.Language)
	}
	body, contentType, err := transport.BuildMultipartBody(fields, []transport.FilePart{
		{FieldName: "image", FileName: fileName, Content: input.Image},
	})
	if err != nil {
		return Diagnosis{}, err
	}

	res, err := s.client.Do(ctx, core.Request{
		Method:      http.MethodPost,
		Path:        "/api/v1/vision/diagnose",
		RawBody:     body,
		ContentType: contentType,
	})
	if err != nil {
		return Diagnosis{}, err
	}
	var diagnosis Diagnosis
	if err := res.Decode(&diagnosis); err != nil {
		return Diagnosis{}, err
	}
	return diagnosis, nil
}
