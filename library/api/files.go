package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"
)

type FilesAPI struct{ c *Client }

// rawBody receives the undecoded response body.
type rawBody []byte

var errEmptyUpload = errors.New("upload response carried no image url")

// Upload sends r as the multipart field "file" and returns the backend-relative
// URL of the stored image.
func (f *FilesAPI) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(filepath.Base(filename))))
	ctype := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	if ctype == "" {
		ctype = "application/octet-stream"
	}
	h.Set("Content-Type", ctype)

	part, err := mw.CreatePart(h)
	if err != nil {
		return "", fmt.Errorf("create form part: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("copy upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart: %w", err)
	}

	const path = "/files/upload"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.c.url(path, nil), &buf)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var body rawBody
	if err := f.c.send(req, path, &body); err != nil {
		return "", err
	}
	return parseUploadURL(body)
}

// parseUploadURL accepts a JSON string, a JSON object with url or imageUrl,
// or plain text.
func parseUploadURL(body []byte) (string, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return "", errEmptyUpload
	}

	var s string
	if err := json.Unmarshal(body, &s); err == nil {
		return nonEmpty(s)
	}
	var obj struct {
		URL      string `json:"url"`
		ImageURL string `json:"imageUrl"`
	}
	if err := json.Unmarshal(body, &obj); err == nil {
		if obj.ImageURL != "" {
			return obj.ImageURL, nil
		}
		return nonEmpty(obj.URL)
	}
	return nonEmpty(string(body))
}

func nonEmpty(s string) (string, error) {
	if s = strings.TrimSpace(s); s == "" {
		return "", errEmptyUpload
	}
	return s, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string { return quoteEscaper.Replace(s) }
