// mock_storage.go - In-memory storage and fixtures for handler tests
package testutil

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/eda-explorer/backend/internal/models"
	"github.com/eda-explorer/backend/internal/storage"
)

// MockStorage implements storage.Store in memory.
type MockStorage struct {
	files    map[string]*models.FileInfo
	fileData map[string][]byte
	mu       sync.RWMutex

	// ReadErr, when set, is returned by ReadFile.
	ReadErr error
}

// NewMockStorage creates an empty mock storage.
func NewMockStorage() *MockStorage {
	return &MockStorage{
		files:    make(map[string]*models.FileInfo),
		fileData: make(map[string][]byte),
	}
}

func notFound(id string) error {
	return fmt.Errorf("%w: %s", storage.ErrFileNotFound, id)
}

func (m *MockStorage) Save(name string, r io.Reader) (*models.FileInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	info := m.AddFile(generateTestID(), name, data)
	return info, nil
}

func (m *MockStorage) Get(id string) (*models.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	file, ok := m.files[id]
	if !ok {
		return nil, notFound(id)
	}
	c := *file
	return &c, nil
}

func (m *MockStorage) List(limit int) ([]*models.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	files := make([]*models.FileInfo, 0, len(m.files))
	for _, file := range m.files {
		c := *file
		files = append(files, &c)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].UploadedAt.After(files[j].UploadedAt) })
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}
	return files, nil
}

func (m *MockStorage) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.files[id]; !exists {
		return notFound(id)
	}
	delete(m.files, id)
	delete(m.fileData, id)
	return nil
}

func (m *MockStorage) Rename(id string, newName string) (*models.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	file, ok := m.files[id]
	if !ok {
		return nil, notFound(id)
	}
	file.Name = newName
	c := *file
	return &c, nil
}

func (m *MockStorage) SetStatus(id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	file, ok := m.files[id]
	if !ok {
		return notFound(id)
	}
	file.Status = status
	return nil
}

func (m *MockStorage) ReadFile(id string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	data, ok := m.fileData[id]
	if !ok {
		return nil, notFound(id)
	}
	return data, nil
}

func (m *MockStorage) GetFilePath(id string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.files[id]; !ok {
		return "", notFound(id)
	}
	return "/mock/path/" + id, nil
}

// Ensure MockStorage implements storage.Store
var _ storage.Store = (*MockStorage)(nil)

// AddFile adds a file directly to the mock. The kind is guessed from name.
func (m *MockStorage) AddFile(id string, name string, data []byte) *models.FileInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	file := &models.FileInfo{
		ID:         id,
		Name:       name,
		Size:       int64(len(data)),
		Kind:       models.GuessFileKind(name),
		UploadedAt: time.Now(),
		Status:     storage.StatusUploaded,
	}
	m.files[id] = file
	m.fileData[id] = data
	c := *file
	return &c
}

// GetFileCount returns the number of stored files
func (m *MockStorage) GetFileCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.files)
}

// Clear removes all files
func (m *MockStorage) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files = make(map[string]*models.FileInfo)
	m.fileData = make(map[string][]byte)
}

var (
	testIDCounter int
	testIDMutex   sync.Mutex
)

func generateTestID() string {
	testIDMutex.Lock()
	defer testIDMutex.Unlock()
	testIDCounter++
	return fmt.Sprintf("test-id-%d", testIDCounter)
}
