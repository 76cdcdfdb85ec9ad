package media

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Storage writes binaries to local disk and hands back stable URLs. Files are
// served under /media/ by the HTTP server.
type Storage struct {
	Dir     string
	BaseURL string
}

func NewStorage(dir, baseURL string) *Storage {
	return &Storage{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}
}

// Store persists data under a fresh name and returns the durable URL.
func (s *Storage) Store(data []byte, ext string) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", &StorageError{Op: "mkdir", Err: err}
	}

	ext = strings.TrimPrefix(ext, ".")
	name := uuid.NewString()
	if ext != "" {
		name += "." + ext
	}

	if err := os.WriteFile(filepath.Join(s.Dir, name), data, 0o644); err != nil {
		return "", &StorageError{Op: "write", Err: err}
	}

	return s.BaseURL + "/media/" + name, nil
}

// Open resolves a durable URL produced by Store back to its bytes.
func (s *Storage) Open(url string) ([]byte, error) {
	idx := strings.LastIndex(url, "/media/")
	if idx < 0 {
		return nil, &StorageError{Op: "open", Err: os.ErrNotExist}
	}
	name := filepath.Base(url[idx+len("/media/"):])

	data, err := os.ReadFile(filepath.Join(s.Dir, name))
	if err != nil {
		return nil, &StorageError{Op: "open", Err: err}
	}
	return data, nil
}
