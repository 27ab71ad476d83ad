package internal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const exportIndexVersion = "1.0"

// SessionRenderer writes one session in a file format
type SessionRenderer interface {
	Export(session *Session, w io.Writer) error
	Extension() string
}

// ExportManager writes session exports to a directory and keeps an index of them
type ExportManager struct {
	dir string
	now func() time.Time
	mu  sync.Mutex
}

// ExportMetadata stores metadata about the export index
type ExportMetadata struct {
	IndexVersion string    `json:"index_version" yaml:"index_version"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" yaml:"updated_at"`
}

// ExportRecord describes one exported file
type ExportRecord struct {
	SessionID    string    `json:"session_id" yaml:"session_id"`
	Name         string    `json:"name,omitempty" yaml:"name,omitempty"`
	Format       string    `json:"format" yaml:"format"`
	File         string    `json:"file" yaml:"file"`
	MessageCount int       `json:"message_count" yaml:"message_count"`
	ExportedAt   time.Time `json:"exported_at" yaml:"exported_at"`
}

// ExportIndex represents the YAML index of all exports
type ExportIndex struct {
	Exports  []ExportRecord `yaml:"exports"`
	Metadata ExportMetadata `yaml:"metadata"`
}

// NewExportManager creates a new export manager
func NewExportManager(dir string) *ExportManager {
	return &ExportManager{
		dir: dir,
		now: time.Now,
	}
}

// EnsureDir ensures the export directory exists
func (em *ExportManager) EnsureDir() error {
	return os.MkdirAll(em.dir, 0755)
}

// Dir returns the export directory path
func (em *ExportManager) Dir() string {
	return em.dir
}

// IndexPath returns the path to the export index YAML file
func (em *ExportManager) IndexPath() string {
	return filepath.Join(em.dir, "exports.yaml")
}

// FileName returns the file name an export of session gets
func (em *ExportManager) FileName(session *Session, ext string) string {
	name := sanitizeFileName(session.Name)
	if name == "" {
		return fmt.Sprintf("chat_%s.%s", session.ID, ext)
	}
	return fmt.Sprintf("%s_%s.%s", name, session.ID, ext)
}

// LoadIndex loads the export index. A missing index is returned empty.
func (em *ExportManager) LoadIndex() (*ExportIndex, error) {
	data, err := os.ReadFile(em.IndexPath())
	if errors.Is(err, os.ErrNotExist) {
		return &ExportIndex{Exports: []ExportRecord{}}, nil
	}
	if err != nil {
		return nil, err
	}

	var index ExportIndex
	if err := yaml.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("failed to unmarshal index: %w", err)
	}

	return &index, nil
}

// SaveIndex saves the export index
func (em *ExportManager) SaveIndex(index *ExportIndex) error {
	if err := em.EnsureDir(); err != nil {
		return err
	}

	data, err := yaml.Marshal(index)
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}

	return os.WriteFile(em.IndexPath(), data, 0644)
}

// Export renders session into the export directory and records it in the index.
// Re-exporting a session in the same format replaces the previous file.
func (em *ExportManager) Export(session *Session, r SessionRenderer) (string, error) {
	em.mu.Lock()
	defer em.mu.Unlock()

	ext := r.Extension()
	path := filepath.Join(em.dir, em.FileName(session, ext))
	if err := em.EnsureDir(); err != nil {
		return "", &ExportError{Format: ext, Path: em.dir, Err: err}
	}

	tmp, err := os.CreateTemp(em.dir, ".export-*")
	if err != nil {
		return "", &ExportError{Format: ext, Path: path, Err: err}
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := r.Export(session, tmp); err != nil {
		_ = tmp.Close()
		return "", &ExportError{Format: ext, Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return "", &ExportError{Format: ext, Path: path, Err: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", &ExportError{Format: ext, Path: path, Err: err}
	}

	if err := em.record(session, ext, filepath.Base(path)); err != nil {
		LogWarn("Exported %s but failed to update index: %v", path, err)
	}
	LogDebug("Exported session %s to %s", session.ID, path)
	return path, nil
}

// ExportAll exports every session with r and returns the written paths.
// A failing session is logged and skipped.
func (em *ExportManager) ExportAll(sessions []*Session, r SessionRenderer) ([]string, error) {
	paths := make([]string, 0, len(sessions))
	var firstErr error
	for _, session := range sessions {
		path, err := em.Export(session, r)
		if err != nil {
			LogWarn("Failed to export session %s: %v", session.ID, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		paths = append(paths, path)
	}
	if len(paths) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return paths, nil
}

// Clear removes the exported files listed in the index and the index itself
func (em *ExportManager) Clear() error {
	em.mu.Lock()
	defer em.mu.Unlock()

	index, err := em.LoadIndex()
	if err == nil {
		for _, rec := range index.Exports {
			_ = os.Remove(filepath.Join(em.dir, rec.File))
		}
	}

	if err := os.Remove(em.IndexPath()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (em *ExportManager) record(session *Session, format, file string) error {
	index, err := em.LoadIndex()
	if err != nil {
		return err
	}

	now := em.now()
	if index.Metadata.CreatedAt.IsZero() {
		index.Metadata = ExportMetadata{IndexVersion: exportIndexVersion, CreatedAt: now}
	}
	index.Metadata.UpdatedAt = now

	entry := ExportRecord{
		SessionID:    session.ID,
		Name:         session.Name,
		Format:       format,
		File:         file,
		MessageCount: len(session.Messages),
		ExportedAt:   now,
	}

	found := false
	for i, rec := range index.Exports {
		if rec.SessionID == session.ID && rec.Format == format {
			if rec.File != file {
				// renamed session; drop the stale file
				_ = os.Remove(filepath.Join(em.dir, rec.File))
			}
			index.Exports[i] = entry
			found = true
			break
		}
	}
	if !found {
		index.Exports = append(index.Exports, entry)
	}

	return em.SaveIndex(index)
}

var unsafeFileChars = regexp.MustCompile(`[^\p{L}\p{N}._-]+`)

// sanitizeFileName turns a session name into a portable file name fragment
func sanitizeFileName(name string) string {
	name = unsafeFileChars.ReplaceAllString(strings.TrimSpace(name), "-")
	name = strings.Trim(name, "-.")
	if r := []rune(name); len(r) > 40 {
		name = strings.TrimRight(string(r[:40]), "-.")
	}
	return strings.ToLower(name)
}
