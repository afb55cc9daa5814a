// internal/pumpportal/upload.go
package pumpportal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"

	"go.uber.org/zap"
)

// MetadataForm is the token description sent to the IPFS upload endpoint.
type MetadataForm struct {
	Name        string
	Symbol      string
	Description string
	Twitter     string
	Telegram    string
	Website     string

	ImageName        string
	ImageContentType string
	Image            []byte
}

type uploadResponse struct {
	MetadataURI string `json:"metadataUri"`
	Metadata    struct {
		Name   string `json:"name"`
		Symbol string `json:"symbol"`
		Image  string `json:"image"`
	} `json:"metadata"`
}

// UploadMetadata uploads the image and metadata and returns the metadata URI.
// It is attempted once: a failed upload aborts the launch that needed it.
func (c *Client) UploadMetadata(ctx context.Context, form MetadataForm) (string, error) {
	body, contentType, err := encodeMetadataForm(form)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.IPFSURL, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)

	raw, err := c.do(req)
	if err != nil {
		return "", unwrapPermanent(err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", ErrEmptyResponse
	}

	var resp uploadResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}
	if resp.MetadataURI == "" {
		return "", ErrMissingMetadataURI
	}

	c.logger.Info("Metadata uploaded",
		zap.String("name", form.Name),
		zap.String("symbol", form.Symbol),
		zap.String("metadata_uri", resp.MetadataURI))
	return resp.MetadataURI, nil
}

func encodeMetadataForm(form MetadataForm) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := []struct{ key, value string }{
		{"name", form.Name},
		{"symbol", form.Symbol},
		{"description", form.Description},
		{"twitter", form.Twitter},
		{"telegram", form.Telegram},
		{"website", form.Website},
		{"showName", "true"},
	}
	for _, f := range fields {
		if err := w.WriteField(f.key, f.value); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", f.key, err)
		}
	}

	name := form.ImageName
	if name == "" {
		name = "image.png"
	}
	contentType := form.ImageContentType
	if contentType == "" {
		contentType = http.DetectContentType(form.Image)
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filepath.Base(name)))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := part.Write(form.Image); err != nil {
		return nil, "", fmt.Errorf("failed to write image: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
