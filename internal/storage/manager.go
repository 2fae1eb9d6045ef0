package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/trendlog-viewer/backend/internal/models"
)

// File statuses.
const (
	StatusUploaded = "uploaded"
	StatusValid    = "valid"
	StatusInvalid  = "invalid"
)

const indexFile = "index.yaml"

// Store defines the interface for capture file storage.
type Store interface {
	Save(name string, r io.Reader) (*models.FileInfo, error)
	Get(id string) (*models.FileInfo, error)
	List(limit int) ([]*models.FileInfo, error)
	Delete(id string) error
	Open(id string) (io.ReadCloser, error)
	SetStatus(id string, status string) (*models.FileInfo, error)
}

// LocalStore implements Store using the local filesystem. File metadata is
// kept in memory and mirrored to index.yaml in the capture directory.
type LocalStore struct {
	mu         sync.RWMutex
	captureDir string
	files      map[string]*models.FileInfo
}

type indexEntry struct {
	ID         string    `yaml:"id"`
	Name       string    `yaml:"name"`
	Size       int64     `yaml:"size"`
	UploadedAt time.Time `yaml:"uploaded_at"`
	Status     string    `yaml:"status"`
}

// NewLocalStore creates a LocalStore and reloads any existing index.
func NewLocalStore(captureDir string) (*LocalStore, error) {
	if err := os.MkdirAll(captureDir, 0755); err != nil {
		return nil, fmt.Errorf("creating capture directory: %w", err)
	}

	s := &LocalStore{
		captureDir: captureDir,
		files:      make(map[string]*models.FileInfo),
	}
	if err := s.loadIndex(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *LocalStore) loadIndex() error {
	data, err := os.ReadFile(filepath.Join(s.captureDir, indexFile))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading capture index: %w", err)
	}

	var entries []indexEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parsing capture index: %w", err)
	}
	for _, e := range entries {
		if _, err := os.Stat(filepath.Join(s.captureDir, e.ID)); err != nil {
			fmt.Printf("[Storage] Dropping index entry %s: %v\n", e.ID, err)
			continue
		}
		s.files[e.ID] = &models.FileInfo{
			ID:         e.ID,
			Name:       e.Name,
			Size:       e.Size,
			UploadedAt: e.UploadedAt,
			Status:     e.Status,
		}
	}
	return nil
}

// saveIndex must be called with s.mu held.
func (s *LocalStore) saveIndex() error {
	entries := make([]indexEntry, 0, len(s.files))
	for _, f := range s.files {
		entries = append(entries, indexEntry{
			ID:         f.ID,
			Name:       f.Name,
			Size:       f.Size,
			UploadedAt: f.UploadedAt,
			Status:     f.Status,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })

	data, err := yaml.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encoding capture index: %w", err)
	}
	tmp := filepath.Join(s.captureDir, indexFile+".tmp")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing capture index: %w", err)
	}
	return os.Rename(tmp, filepath.Join(s.captureDir, indexFile))
}

// Save writes a capture file to the local filesystem.
func (s *LocalStore) Save(name string, r io.Reader) (*models.FileInfo, error) {
	id := uuid.New().String()
	path := filepath.Join(s.captureDir, id)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("writing file: %w", err)
	}

	info := &models.FileInfo{
		ID:         id,
		Name:       name,
		Size:       size,
		UploadedAt: time.Now(),
		Status:     StatusUploaded,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[id] = info
	if err := s.saveIndex(); err != nil {
		return nil, err
	}

	return copyInfo(info), nil
}

// Get retrieves file metadata by ID.
func (s *LocalStore) Get(id string) (*models.FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.files[id]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", id)
	}

	return copyInfo(info), nil
}

// List returns the most recent files. A limit <= 0 returns all of them.
func (s *LocalStore) List(limit int) ([]*models.FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*models.FileInfo, 0, len(s.files))
	for _, info := range s.files {
		list = append(list, copyInfo(info))
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].UploadedAt.After(list[j].UploadedAt)
	})

	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}

	return list, nil
}

// Delete removes a file from storage.
func (s *LocalStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[id]; !ok {
		return fmt.Errorf("file not found: %s", id)
	}

	path := filepath.Join(s.captureDir, id)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting file: %w", err)
	}

	delete(s.files, id)
	return s.saveIndex()
}

// Open returns a reader over the stored file content.
func (s *LocalStore) Open(id string) (io.ReadCloser, error) {
	s.mu.RLock()
	_, ok := s.files[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("file not found: %s", id)
	}

	f, err := os.Open(filepath.Join(s.captureDir, id))
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	return f, nil
}

// SetStatus records the validation outcome of a file.
func (s *LocalStore) SetStatus(id string, status string) (*models.FileInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, ok := s.files[id]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", id)
	}

	info.Status = status
	if err := s.saveIndex(); err != nil {
		return nil, err
	}
	return copyInfo(info), nil
}

func copyInfo(info *models.FileInfo) *models.FileInfo {
	c := *info
	return &c
}
