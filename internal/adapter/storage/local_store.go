package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/rl1809/storefront/internal/core/domain"
)

// FileCartStore persists one browser session's guest cart as a JSON
// document under the state directory. Missing or corrupt payloads read as
// an empty cart; they are logged, never surfaced.
type FileCartStore struct {
	path string
}

func NewFileCartStore(dir, sessionID string) *FileCartStore {
	return &FileCartStore{path: filepath.Join(dir, "cart-"+sessionID+".json")}
}

func (f *FileCartStore) Read(ctx context.Context) ([]domain.CartLine, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read guest cart: %w", err)
	}

	var lines []domain.CartLine
	if err := json.Unmarshal(data, &lines); err != nil {
		log.Printf("guest cart %s unreadable, treating as empty: %v", f.path, err)
		return nil, nil
	}
	return lines, nil
}

func (f *FileCartStore) Write(ctx context.Context, lines []domain.CartLine) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	data, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("encode guest cart: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write guest cart: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace guest cart: %w", err)
	}
	return nil
}

func (f *FileCartStore) Clear(ctx context.Context) error {
	err := os.Remove(f.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clear guest cart: %w", err)
	}
	return nil
}
