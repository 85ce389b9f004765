package client

import (
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	domain "fileconv/internal/domain/conversion"
	"github.com/gabriel-vasile/mimetype"
)

// SubmitRequest is one batch to convert.
type SubmitRequest struct {
	SessionID string
	Category  string
	Format    string
	Files     []string
}

// Submit uploads the files of req as one batch and saves the returned
// download into dir under the name the server offered. It returns the path
// of the saved file.
func (c *Client) Submit(ctx context.Context, req SubmitRequest, dir string) (string, error) {
	body, contentType := multipartBody(req)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/convert", body)
	if err != nil {
		_ = body.Close()
		return "", err
	}
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &StatusError{Code: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}

	name := "download"
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		name = params["filename"]
	}
	target := filepath.Join(dir, domain.SanitizeName(name))

	out, err := os.Create(target)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		_ = os.Remove(target)
		return "", fmt.Errorf("save %s: %w", target, err)
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return target, nil
}

// multipartBody streams the form through a pipe so files are never held in
// memory.
func multipartBody(req SubmitRequest) (io.ReadCloser, string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeForm(mw, req))
	}()
	return pr, mw.FormDataContentType()
}

func writeForm(mw *multipart.Writer, req SubmitRequest) error {
	fields := [][2]string{{"sessionId", req.SessionID}, {"category", req.Category}, {"format", req.Format}}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return err
		}
	}
	for _, path := range req.Files {
		if err := writeFile(mw, path); err != nil {
			return err
		}
	}
	return mw.Close()
}

func writeFile(mw *multipart.Writer, path string) error {
	contentType := "application/octet-stream"
	if detected, err := mimetype.DetectFile(path); err == nil {
		contentType = detected.String()
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
		"name":     "files",
		"filename": filepath.Base(path),
	}))
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(part, f)
	return err
}
