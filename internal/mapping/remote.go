package mapping

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"photomatch/internal/logging"
)

// Published workbooks commonly sit behind hosts that reject non-browser
// clients, so the fetch presents browser-like headers.
var remoteHeaders = map[string]string{
	"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
	"Accept":     "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet,*/*",
}

// RefreshFromRemote downloads the configured workbook and ingests it. A
// network or HTTP failure yields ErrRemoteFetch and leaves the published
// snapshot untouched.
func (s *Store) RefreshFromRemote(ctx context.Context) (Outcome, error) {
	if s.remoteURL == "" {
		return Outcome{}, ErrNoRemoteConfigured
	}

	data, err := s.fetchRemote(ctx)
	if err != nil {
		s.logger.Warn("remote workbook fetch failed",
			logging.String("url", s.remoteURL),
			logging.Error(err),
			logging.String(logging.FieldEventType, "mapping_fetch_failed"),
			logging.String(logging.FieldErrorHint, "check mapping.remote_url and network access"),
		)
		return Outcome{}, fmt.Errorf("%w: %v", ErrRemoteFetch, err)
	}

	return s.Ingest(ctx, data)
}

func (s *Store) fetchRemote(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.remoteURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for key, value := range remoteHeaders {
		req.Header.Set(key, value)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return data, nil
}
