// Package archive binds matched task outputs to short-lived download
// sessions and packages them into zip archives.
package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"photomatch/internal/config"
	"photomatch/internal/logging"
	"photomatch/internal/staging"
)

// Session is a time-bounded handle to a generated downloadable archive.
// The archive contains exactly the files staged by one completed task run.
type Session struct {
	ID        string
	Dir       string
	Files     []string
	CreatedAt time.Time
	ExpiresAt time.Time

	consumed bool
}

// Store tracks download sessions in memory and expires them on a sweep
// interval. Invalidated sessions delete their staging directory.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session

	ttl            time.Duration
	singleDownload bool
	logger         *slog.Logger
}

// NewStore builds a session store from configuration policy values.
func NewStore(cfg *config.Config, logger *slog.Logger) *Store {
	return &Store{
		sessions:       make(map[string]*Session),
		ttl:            time.Duration(cfg.Sessions.TTLMinutes) * time.Minute,
		singleDownload: cfg.Sessions.SingleDownload,
		logger:         logging.NewComponentLogger(logger, "archive"),
	}
}

// Create binds the staged files in dir to a new session.
func (s *Store) Create(dir string, files []string) *Session {
	now := time.Now().UTC()
	session := &Session{
		ID:        uuid.NewString(),
		Dir:       dir,
		Files:     append([]string(nil), files...),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	s.logger.Info("created download session",
		logging.String(logging.FieldSessionID, session.ID),
		logging.Int("files", len(session.Files)),
	)
	return session
}

// Fetch streams the session's archive to w. Single-download sessions are
// marked consumed before any byte is written, so a concurrent second fetch
// fails with ErrConsumed. After a successful fetch of a single-download
// session the staging directory is deleted.
func (s *Store) Fetch(ctx context.Context, id string, w io.Writer) error {
	s.mu.Lock()
	session, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	if session.consumed {
		s.mu.Unlock()
		return ErrConsumed
	}
	if time.Now().After(session.ExpiresAt) {
		delete(s.sessions, id)
		s.mu.Unlock()
		s.cleanup(session)
		return ErrExpired
	}
	if s.singleDownload {
		session.consumed = true
	}
	s.mu.Unlock()

	if err := writeArchive(ctx, session, w); err != nil {
		return fmt.Errorf("assemble archive: %w", err)
	}

	if s.singleDownload {
		// The session stays in the map as a consumed tombstone until the
		// sweep drops it at expiry, so repeat fetches report ErrConsumed
		// instead of ErrNotFound.
		s.cleanup(session)
		s.logger.Info("download session consumed",
			logging.String(logging.FieldSessionID, session.ID),
		)
	}
	return nil
}

// Peek returns session metadata without consuming it.
func (s *Store) Peek(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if session.consumed {
		return nil, ErrConsumed
	}
	if time.Now().After(session.ExpiresAt) {
		return nil, ErrExpired
	}
	cp := *session
	return &cp, nil
}

// Run sweeps expired sessions until the context is cancelled.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Store) sweep() {
	now := time.Now()

	s.mu.Lock()
	var expired []*Session
	for id, session := range s.sessions {
		if now.After(session.ExpiresAt) {
			delete(s.sessions, id)
			expired = append(expired, session)
		}
	}
	s.mu.Unlock()

	for _, session := range expired {
		s.cleanup(session)
		s.logger.Info("expired download session",
			logging.String(logging.FieldSessionID, session.ID),
		)
	}
}

func (s *Store) cleanup(session *Session) {
	if err := staging.Remove(session.Dir); err != nil {
		s.logger.Warn("failed to remove session staging directory",
			logging.String(logging.FieldSessionID, session.ID),
			logging.String("path", session.Dir),
			logging.Error(err),
			logging.String(logging.FieldEventType, "session_cleanup_failed"),
			logging.String(logging.FieldErrorHint, "check staging_dir permissions"),
		)
	}
}

func writeArchive(ctx context.Context, session *Session, w io.Writer) error {
	zw := zip.NewWriter(w)
	for _, name := range session.Files {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		entry, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("create zip entry %q: %w", name, err)
		}
		file, err := os.Open(filepath.Join(session.Dir, name))
		if err != nil {
			return fmt.Errorf("open staged file %q: %w", name, err)
		}
		if _, err := io.Copy(entry, file); err != nil {
			_ = file.Close()
			return fmt.Errorf("copy staged file %q: %w", name, err)
		}
		_ = file.Close()
	}
	return zw.Close()
}
