// Package file keeps each slot as a JSON file in a directory, the on-disk
// equivalent of a browser origin's local storage. Writes are atomic (temp file
// plus rename) so readers never observe a partially written cart, and an
// fsnotify watcher reports writes made by other processes.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/eightbitcafe/cart_sdk_go/pkg/slot"
)

const fileExt = ".json"

// Dir is a directory of slot files.
type Dir struct {
	path string
}

// Open returns a Dir rooted at path, creating the directory if needed.
func Open(path string) (*Dir, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("file slot: directory is required")
	}
	clean := filepath.Clean(path)
	if err := os.MkdirAll(clean, 0o755); err != nil {
		return nil, fmt.Errorf("file slot: create dir: %w", err)
	}
	return &Dir{path: clean}, nil
}

// Path returns the directory path.
func (d *Dir) Path() string {
	return d.path
}

// filename maps a slot key to its file. Keys are restricted to a single path
// element.
func (d *Dir) filename(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", slot.ErrKeyRequired
	}
	if strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("file slot: invalid key %q", key)
	}
	return filepath.Join(d.path, key+fileExt), nil
}

// Get implements slot.Backend.
func (d *Dir) Get(ctx context.Context, key string) ([]byte, error) {
	name, err := d.filename(key)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file slot: read %s: %w: %w", key, slot.ErrUnavailable, err)
	}
	return data, nil
}

// Set implements slot.Backend.
func (d *Dir) Set(ctx context.Context, key string, raw []byte) error {
	name, err := d.filename(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(d.path, "."+key+".*.tmp")
	if err != nil {
		return d.writeErr(key, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return d.writeErr(key, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return d.writeErr(key, err)
	}
	if err := tmp.Close(); err != nil {
		return d.writeErr(key, err)
	}
	if err := os.Rename(tmpName, name); err != nil {
		return d.writeErr(key, err)
	}
	return nil
}

func (d *Dir) writeErr(key string, err error) error {
	if errors.Is(err, syscall.ENOSPC) {
		return fmt.Errorf("file slot: write %s: %w: %w", key, slot.ErrQuotaExceeded, err)
	}
	return fmt.Errorf("file slot: write %s: %w: %w", key, slot.ErrUnavailable, err)
}

var (
	_ slot.Backend = (*Dir)(nil)
	_ slot.Watcher = (*Dir)(nil)
)
