package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"photomatch/internal/api"
)

// fakeDaemon serves canned API responses for CLI tests.
func fakeDaemon(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for pattern, handler := range handlers {
		mux.HandleFunc(pattern, handler)
	}
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func runCLI(t *testing.T, server *httptest.Server, args ...string) (string, error) {
	t.Helper()
	missingConfig := filepath.Join(t.TempDir(), "absent.toml")
	full := append([]string{"--server", server.URL, "--config", missingConfig}, args...)

	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(full)
	err := cmd.Execute()
	return buf.String(), err
}

func writeJSONResponse(t *testing.T, w http.ResponseWriter, payload any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Errorf("encode payload: %v", err)
	}
}

func TestMappingsListRendersTable(t *testing.T) {
	server := fakeDaemon(t, map[string]http.HandlerFunc{
		"/api/mappings": func(w http.ResponseWriter, r *http.Request) {
			writeJSONResponse(t, w, api.MappingListResponse{
				Entries: []api.MappingEntry{{Source: "ABC123", Target: "P-001"}},
				Total:   1,
			})
		},
	})

	out, err := runCLI(t, server, "mappings", "list")
	if err != nil {
		t.Fatalf("mappings list: %v", err)
	}
	if !strings.Contains(out, "ABC123") || !strings.Contains(out, "P-001") {
		t.Fatalf("expected mapping row in output:\n%s", out)
	}
	if !strings.Contains(out, "1 mappings") {
		t.Fatalf("expected total line in output:\n%s", out)
	}
}

func TestMappingsListEmpty(t *testing.T) {
	server := fakeDaemon(t, map[string]http.HandlerFunc{
		"/api/mappings": func(w http.ResponseWriter, r *http.Request) {
			writeJSONResponse(t, w, api.MappingListResponse{})
		},
	})

	out, err := runCLI(t, server, "mappings", "list")
	if err != nil {
		t.Fatalf("mappings list: %v", err)
	}
	if !strings.Contains(out, "No mapping loaded") {
		t.Fatalf("expected empty-mapping hint:\n%s", out)
	}
}

func TestSubmitCodesPollsUntilTerminal(t *testing.T) {
	polls := 0
	server := fakeDaemon(t, map[string]http.HandlerFunc{
		"/api/tasks": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusAccepted)
			writeJSONResponse(t, w, api.SubmitResponse{TaskID: "task-1"})
		},
		"/api/tasks/": func(w http.ResponseWriter, r *http.Request) {
			polls++
			status := api.TaskStatus{ID: "task-1", Status: "running", Total: 1}
			if polls > 1 {
				status.Status = "completed"
				status.Completed = 1
				status.Matched = 1
				status.Results = []api.TaskResult{
					{Input: "ABC123", Status: "matched", ProducedName: "P-001"},
				}
			}
			writeJSONResponse(t, w, status)
		},
	})

	out, err := runCLI(t, server, "submit", "--code", "ABC123")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if polls < 2 {
		t.Fatalf("expected at least 2 polls, got %d", polls)
	}
	if !strings.Contains(out, "P-001") || !strings.Contains(out, "1 matched, 0 unmatched, 0 errors") {
		t.Fatalf("expected rendered results:\n%s", out)
	}
}

func TestSubmitRejectsMixedInput(t *testing.T) {
	server := fakeDaemon(t, nil)

	_, err := runCLI(t, server, "submit", "a.jpg", "--code", "ABC123")
	if err == nil || !strings.Contains(err.Error(), "not both") {
		t.Fatalf("expected mixed input rejection, got %v", err)
	}
}

func TestSubmitDownloadsArchive(t *testing.T) {
	server := fakeDaemon(t, map[string]http.HandlerFunc{
		"/api/tasks": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusAccepted)
			writeJSONResponse(t, w, api.SubmitResponse{TaskID: "task-2"})
		},
		"/api/tasks/": func(w http.ResponseWriter, r *http.Request) {
			writeJSONResponse(t, w, api.TaskStatus{
				ID:        "task-2",
				Status:    "completed",
				Total:     1,
				Completed: 1,
				Matched:   1,
				SessionID: "session-9",
				Results: []api.TaskResult{
					{Input: "ABC123.jpg", Status: "matched", ProducedName: "P-001.jpg"},
				},
			})
		},
		"/api/download/": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/zip")
			_, _ = w.Write([]byte("zip-bytes"))
		},
	})

	upload := filepath.Join(t.TempDir(), "ABC123.jpg")
	if err := os.WriteFile(upload, []byte("img"), 0o644); err != nil {
		t.Fatalf("write upload: %v", err)
	}
	dest := t.TempDir()

	out, err := runCLI(t, server, "submit", upload, "--download", dest)
	if err != nil {
		t.Fatalf("submit --download: %v", err)
	}
	target := filepath.Join(dest, "photomatch-session-9.zip")
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("archive not written: %v", err)
	}
	if string(data) != "zip-bytes" {
		t.Fatalf("unexpected archive bytes %q", data)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("expected archive path in output:\n%s", out)
	}
}

func TestRunsRendersHistory(t *testing.T) {
	server := fakeDaemon(t, map[string]http.HandlerFunc{
		"/api/runs": func(w http.ResponseWriter, r *http.Request) {
			writeJSONResponse(t, w, api.RunListResponse{Runs: []api.RunSummary{
				{ID: "task-3", Status: "completed", Total: 2, Matched: 1, Unmatched: 1, FinishedAt: "2026-08-30T10:00:00.000Z"},
			}})
		},
	})

	out, err := runCLI(t, server, "runs")
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if !strings.Contains(out, "task-3") || !strings.Contains(out, "1 matched, 1 unmatched, 0 errors") {
		t.Fatalf("expected run row in output:\n%s", out)
	}
}
