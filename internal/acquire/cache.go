package acquire

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"clipforge/internal/models"
)

// Cache is the upstream media cache under <root>/cache/<kind>/. An entry is
// usable once its .validated marker exists and is never rewritten after.
type Cache struct {
	Root string
}

// Path returns where the entry for id is stored.
func (c *Cache) Path(kind models.MediaKind, id string) string {
	return filepath.Join(c.Root, "cache", string(kind), id+kind.Ext())
}

func (c *Cache) marker(kind models.MediaKind, id string) string {
	return c.Path(kind, id) + ".validated"
}

// Validated reports whether the entry exists and passed validation.
func (c *Cache) Validated(kind models.MediaKind, id string) bool {
	if _, err := os.Stat(c.marker(kind, id)); err != nil {
		return false
	}
	_, err := os.Stat(c.Path(kind, id))
	return err == nil
}

// MarkValidated writes the marker for an entry that passed validation.
func (c *Cache) MarkValidated(kind models.MediaKind, id string) error {
	if _, err := os.Stat(c.Path(kind, id)); err != nil {
		return fmt.Errorf("mark validated: %w", err)
	}
	stamp := []byte(time.Now().UTC().Format(time.RFC3339))
	return os.WriteFile(c.marker(kind, id), stamp, 0o644)
}

// Evict removes an entry and its marker.
func (c *Cache) Evict(kind models.MediaKind, id string) error {
	_ = os.Remove(c.marker(kind, id))
	if err := os.Remove(c.Path(kind, id)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Lock serializes work on one entry across goroutines and processes. The
// returned func releases it.
func (c *Cache) Lock(ctx context.Context, kind models.MediaKind, id string) (func(), error) {
	path := c.Path(kind, id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	fl := flock.New(path + ".lock")
	ok, err := fl.TryLockContext(ctx, 250*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("lock cache entry %s: %w", id, err)
	}
	if !ok {
		return nil, fmt.Errorf("lock cache entry %s: not acquired", id)
	}
	return func() { _ = fl.Unlock() }, nil
}
