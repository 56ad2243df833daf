package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type uploadURLResponse struct {
	UploadURL  string `json:"uploadUrl"`
	StorageKey string `json:"storageKey"`
}

type confirmResponse struct {
	Success bool `json:"success"`
	Images  []struct {
		ID uint `json:"id"`
	} `json:"images"`
}

// uploadOne runs the three-step pipeline for a single file, retrying
// network/server failures with exponential backoff. Cancellation is
// never retried.
func (m *Manager) uploadOne(ctx context.Context, f *File) ([]uint, error) {
	for {
		m.setStatus(f, StatusUploading, "")

		ids, err := m.attempt(ctx, f)
		if err == nil {
			m.setStatus(f, StatusSuccess, "")
			return ids, nil
		}

		code := statusOf(err)
		if code == CodeCancelled {
			m.setStatus(f, StatusCancelled, "")
			return nil, err
		}

		retryable := code == CodeNetwork || code == CodeServer
		if !retryable || m.retryCount(f) >= m.opts.MaxRetries {
			m.setStatus(f, StatusError, err.Error())
			return nil, err
		}

		retries := m.bumpRetries(f)
		m.resetFileBytes(f)
		m.setStatus(f, StatusPending, "")

		// exponential backoff: base, base*2, base*4...
		backoff := m.opts.BackoffBase * (1 << (retries - 1))
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			m.setStatus(f, StatusCancelled, "")
			return nil, &UploadError{Code: CodeCancelled, Msg: "upload cancelled during backoff"}
		}
	}
}

// attempt performs one pass of upload-URL, transfer, confirm.
func (m *Manager) attempt(ctx context.Context, f *File) ([]uint, error) {
	urlResp, err := m.requestUploadURL(ctx, f)
	if err != nil {
		return nil, err
	}

	if err := m.transfer(ctx, f, urlResp.UploadURL); err != nil {
		return nil, err
	}

	return m.confirm(ctx, f, urlResp.StorageKey)
}

func (m *Manager) requestUploadURL(ctx context.Context, f *File) (*uploadURLResponse, error) {
	body := map[string]interface{}{
		"filename": f.Name,
		"context":  m.opts.Context,
		"fileSize": f.Size,
	}
	var resp uploadURLResponse
	if err := m.postJSON(ctx, "/images/upload-url", body, &resp); err != nil {
		return nil, err
	}
	if resp.UploadURL == "" || resp.StorageKey == "" {
		return nil, &UploadError{Code: CodeServer, Msg: "upload-url response missing fields"}
	}
	return &resp, nil
}

// transfer PUTs the file bytes to the presigned URL, reporting progress
// per read.
func (m *Manager) transfer(ctx context.Context, f *File, uploadURL string) error {
	rc, err := f.input.Open()
	if err != nil {
		return &UploadError{Code: CodeValidation, Msg: fmt.Sprintf("failed to open %s", f.Name), Err: err}
	}
	defer rc.Close()

	reader := &progressReader{r: rc, onRead: func(total int64) { m.addBytes(f, total) }}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, reader)
	if err != nil {
		return &UploadError{Code: CodeValidation, Msg: "failed to build transfer request", Err: err}
	}
	req.ContentLength = f.Size
	req.Header.Set("Content-Type", f.input.ContentType)

	resp, err := m.opts.HTTPClient.Do(req)
	if err != nil {
		return classifyTransportError(ctx, err, "transfer failed")
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &UploadError{Code: CodeServer, Msg: fmt.Sprintf("transfer failed with status %d", resp.StatusCode)}
	}
	return nil
}

func (m *Manager) confirm(ctx context.Context, f *File, storageKey string) ([]uint, error) {
	body := map[string]interface{}{
		"storageKey": storageKey,
		"filename":   f.Name,
		"context":    m.opts.Context,
		"alt":        "",
	}
	var resp confirmResponse
	if err := m.postJSON(ctx, "/images/confirm", body, &resp); err != nil {
		return nil, err
	}
	ids := make([]uint, len(resp.Images))
	for i, img := range resp.Images {
		ids[i] = img.ID
	}
	return ids, nil
}

// postJSON posts a JSON body to the API and decodes the response,
// classifying failures for the retry policy: 5xx is a server error
// (retryable), other non-2xx are validation (terminal).
func (m *Manager) postJSON(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &UploadError{Code: CodeValidation, Msg: "failed to encode request", Err: err}
	}

	url := strings.TrimRight(m.opts.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return &UploadError{Code: CodeValidation, Msg: "failed to build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if m.opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+m.opts.Token)
	}

	resp, err := m.opts.HTTPClient.Do(req)
	if err != nil {
		return classifyTransportError(ctx, err, "request to "+path+" failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return &UploadError{Code: CodeServer, Msg: fmt.Sprintf("%s returned status %d", path, resp.StatusCode)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &UploadError{Code: CodeValidation, Msg: fmt.Sprintf("%s returned status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(data)))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &UploadError{Code: CodeServer, Msg: "failed to decode response from " + path, Err: err}
	}
	return nil
}

func classifyTransportError(ctx context.Context, err error, msg string) error {
	if ctx.Err() != nil {
		return &UploadError{Code: CodeCancelled, Msg: "upload cancelled", Err: err}
	}
	return &UploadError{Code: CodeNetwork, Msg: msg, Err: err}
}

// progressReader reports the cumulative bytes read after every Read.
type progressReader struct {
	r      io.Reader
	total  int64
	onRead func(total int64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.total += int64(n)
		p.onRead(p.total)
	}
	return n, err
}
