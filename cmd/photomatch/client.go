package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"photomatch/internal/api"
)

// apiClient talks to the daemon's JSON API.
type apiClient struct {
	base string
	http *http.Client
}

func newAPIClient(base string) *apiClient {
	return &apiClient{
		base: base,
		http: &http.Client{Timeout: 5 * time.Minute},
	}
}

func (c *apiClient) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return wrapConnError(err, c.base)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr api.ErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("daemon returned %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *apiClient) getJSON(path string, out any) error {
	req, err := http.NewRequest(http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *apiClient) postJSON(path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(http.MethodPost, c.base+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *apiClient) postMultipart(path, field string, files []string, out any) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, file := range files {
		part, err := writer.CreateFormFile(field, filepath.Base(file))
		if err != nil {
			return err
		}
		f, err := os.Open(file)
		if err != nil {
			return fmt.Errorf("open %q: %w", file, err)
		}
		_, copyErr := io.Copy(part, f)
		f.Close()
		if copyErr != nil {
			return fmt.Errorf("read %q: %w", file, copyErr)
		}
	}
	if err := writer.Close(); err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, c.base+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return c.do(req, out)
}

func (c *apiClient) status() (api.DaemonStatus, error) {
	var out api.DaemonStatus
	err := c.getJSON("/api/status", &out)
	return out, err
}

func (c *apiClient) mappings() (api.MappingListResponse, error) {
	var out api.MappingListResponse
	err := c.getJSON("/api/mappings", &out)
	return out, err
}

func (c *apiClient) uploadMapping(path string) (api.IngestResponse, error) {
	var out api.IngestResponse
	err := c.postMultipart("/api/mappings", "workbook", []string{path}, &out)
	return out, err
}

func (c *apiClient) refreshMapping() (api.RefreshResponse, error) {
	var out api.RefreshResponse
	err := c.postJSON("/api/mappings/refresh", nil, &out)
	return out, err
}

func (c *apiClient) submitCodes(codes []string) (api.SubmitResponse, error) {
	var out api.SubmitResponse
	err := c.postJSON("/api/tasks", api.SubmitRequest{Codes: codes}, &out)
	return out, err
}

func (c *apiClient) submitFiles(files []string) (api.SubmitResponse, error) {
	var out api.SubmitResponse
	err := c.postMultipart("/api/tasks", "images", files, &out)
	return out, err
}

func (c *apiClient) poll(id string) (api.TaskStatus, error) {
	var out api.TaskStatus
	err := c.getJSON("/api/tasks/"+id, &out)
	return out, err
}

func (c *apiClient) runs() (api.RunListResponse, error) {
	var out api.RunListResponse
	err := c.getJSON("/api/runs", &out)
	return out, err
}

// download streams a session archive into destDir and returns the written
// file path.
func (c *apiClient) download(sessionID, destDir string) (string, error) {
	resp, err := c.http.Get(c.base + "/api/download/" + sessionID)
	if err != nil {
		return "", wrapConnError(err, c.base)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr api.ErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return "", fmt.Errorf("download failed (%d): %s", resp.StatusCode, apiErr.Error)
		}
		return "", fmt.Errorf("download failed (%d)", resp.StatusCode)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create destination directory: %w", err)
	}
	target := filepath.Join(destDir, "photomatch-"+sessionID+".zip")
	out, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("create archive file: %w", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		_ = os.Remove(target)
		return "", fmt.Errorf("write archive: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return target, nil
}

func wrapConnError(err error, base string) error {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("connect to daemon at %s: connection refused; verify photomatchd is running", base)
	}
	return fmt.Errorf("connect to daemon at %s: %w", base, err)
}
