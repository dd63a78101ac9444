// Package storage keeps uploaded files on local disk for the lifetime of
// the process.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eda-explorer/backend/internal/models"
)

var (
	// ErrFileNotFound is returned for unknown file ids.
	ErrFileNotFound = errors.New("file not found")
	// ErrFileTooLarge is returned when an upload exceeds the size limit.
	ErrFileTooLarge = errors.New("file too large")
)

// File status values.
const (
	StatusUploaded = "uploaded"
	StatusLoaded   = "loaded"
	StatusError    = "error"
)

// Store defines the interface for file storage.
type Store interface {
	Save(name string, r io.Reader) (*models.FileInfo, error)
	Get(id string) (*models.FileInfo, error)
	List(limit int) ([]*models.FileInfo, error)
	Delete(id string) error
	Rename(id string, newName string) (*models.FileInfo, error)
	SetStatus(id, status string) error
	ReadFile(id string) ([]byte, error)
	GetFilePath(id string) (string, error)
}

// LocalStore implements Store using the local filesystem.
type LocalStore struct {
	mu        sync.RWMutex
	uploadDir string
	maxBytes  int64
	files     map[string]*models.FileInfo
}

// NewLocalStore creates a LocalStore writing into uploadDir. maxBytes <= 0
// disables the size limit.
func NewLocalStore(uploadDir string, maxBytes int64) (*LocalStore, error) {
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}

	return &LocalStore{
		uploadDir: uploadDir,
		maxBytes:  maxBytes,
		files:     make(map[string]*models.FileInfo),
	}, nil
}

// Save writes r to disk under a fresh id. The kind is guessed from name.
func (s *LocalStore) Save(name string, r io.Reader) (*models.FileInfo, error) {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil, fmt.Errorf("file name is required")
	}

	id := uuid.New().String()
	path := filepath.Join(s.uploadDir, id)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	size, err := io.Copy(f, src)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("writing file: %w", err)
	}
	if s.maxBytes > 0 && size > s.maxBytes {
		os.Remove(path)
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, s.maxBytes)
	}

	info := &models.FileInfo{
		ID:         id,
		Name:       name,
		Size:       size,
		Kind:       models.GuessFileKind(name),
		UploadedAt: time.Now(),
		Status:     StatusUploaded,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[id] = info

	return copyInfo(info), nil
}

func copyInfo(info *models.FileInfo) *models.FileInfo {
	c := *info
	return &c
}

// Get retrieves file metadata by ID.
func (s *LocalStore) Get(id string) (*models.FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.files[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, id)
	}
	return copyInfo(info), nil
}

// List returns the most recent files first. limit <= 0 returns all.
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
		return fmt.Errorf("%w: %s", ErrFileNotFound, id)
	}

	path := filepath.Join(s.uploadDir, id)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting file: %w", err)
	}
	delete(s.files, id)
	return nil
}

// Rename updates the display name of a file.
func (s *LocalStore) Rename(id string, newName string) (*models.FileInfo, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return nil, fmt.Errorf("file name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	info, ok := s.files[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, id)
	}
	info.Name = filepath.Base(newName)
	return copyInfo(info), nil
}

// SetStatus records whether the file was loaded successfully.
func (s *LocalStore) SetStatus(id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, ok := s.files[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrFileNotFound, id)
	}
	info.Status = status
	return nil
}

// ReadFile returns the stored bytes.
func (s *LocalStore) ReadFile(id string) ([]byte, error) {
	path, err := s.GetFilePath(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return data, nil
}

// GetFilePath returns the path of a stored file.
func (s *LocalStore) GetFilePath(id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.files[id]; !ok {
		return "", fmt.Errorf("%w: %s", ErrFileNotFound, id)
	}
	return filepath.Join(s.uploadDir, id), nil
}

// PurgeOlderThan deletes files uploaded before now-maxAge and returns how
// many were removed.
func (s *LocalStore) PurgeOlderThan(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, info := range s.files {
		if info.UploadedAt.After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.uploadDir, id)); err != nil && !os.IsNotExist(err) {
			continue
		}
		delete(s.files, id)
		n++
	}
	return n
}
