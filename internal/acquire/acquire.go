// Package acquire fetches upstream media into a shared, validated cache.
// Files are written atomically: a reader never observes a partial source.
package acquire

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"clipforge/internal/models"
	"clipforge/internal/pkg/errors"
	"clipforge/internal/pkg/logger"
	"clipforge/internal/ports"
)

// Acquirer resolves a reference to a fetcher and fills the cache.
type Acquirer struct {
	Cache      *Cache
	HTTP       Fetcher
	Drive      Fetcher
	Files      Fetcher
	MaxRetries int
	Backoff    time.Duration
	Timeout    time.Duration
	Log        *logger.Logger

	sleep func(context.Context, time.Duration) error
}

// Acquire returns a lease on the cached copy of ref, fetching it when no
// validated copy exists. Fetches are retried MaxRetries times; exhaustion is
// an ACQUISITION_ERROR. A fetched entry stays locked until the lease is
// released.
func (a *Acquirer) Acquire(ctx context.Context, ref string, kind models.MediaKind) (ports.SourceLease, error) {
	const op = "acquire.Acquire"
	id := CanonicalID(ref)
	path := a.Cache.Path(kind, id)
	log := a.logger().With("kind", string(kind), "source_id", id)

	unlock, err := a.Cache.Lock(ctx, kind, id)
	if err != nil {
		return nil, errors.Acquisition(err, op, fmt.Sprintf("could not lock %s cache entry", kind))
	}

	if a.Cache.Validated(kind, id) {
		unlock()
		log.Info("source cache hit")
		return &Lease{cache: a.Cache, kind: kind, id: id, path: path, cached: true}, nil
	}

	f, err := a.fetcherFor(ref)
	if err != nil {
		unlock()
		return nil, errors.Acquisition(err, op, fmt.Sprintf("unsupported %s source reference", kind))
	}

	start := time.Now()
	var size int64
	attempts, err := Retry(ctx, a.MaxRetries, a.Backoff, a.sleep, func(attempt int) error {
		n, ferr := a.fetchOnce(ctx, f, ref, path)
		if ferr != nil {
			log.Warn("fetch attempt failed", "attempt", attempt, "error", ferr.Error())
			return ferr
		}
		size = n
		return nil
	})
	if err != nil {
		unlock()
		return nil, errors.Acquisition(err, op,
			fmt.Sprintf("could not fetch source %s after %d attempts", kind, attempts)).
			WithField("attempts", attempts)
	}

	log.Info("source fetched", "bytes", size, "attempts", attempts, "duration_ms", time.Since(start).Milliseconds())
	return &Lease{cache: a.Cache, kind: kind, id: id, path: path, unlock: unlock}, nil
}

var errLeaseReleased = fmt.Errorf("cache lease already released")

// Lease is a job's hold on one cache entry.
type Lease struct {
	cache  *Cache
	kind   models.MediaKind
	id     string
	path   string
	cached bool

	mu     sync.Mutex
	unlock func()
}

func (l *Lease) Path() string { return l.path }

func (l *Lease) Cached() bool { return l.cached }

// MarkValidated writes the validated marker. It fails once the lease is
// released: the entry may already belong to another job.
func (l *Lease) MarkValidated() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.unlock == nil {
		return errLeaseReleased
	}
	return l.cache.MarkValidated(l.kind, l.id)
}

// Evict removes the entry while the lease still holds it.
func (l *Lease) Evict() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.unlock == nil {
		return errLeaseReleased
	}
	return l.cache.Evict(l.kind, l.id)
}

func (l *Lease) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.unlock != nil {
		l.unlock()
		l.unlock = nil
	}
}

// fetchOnce writes ref to dst via dst.part: copy, fsync, rename.
func (a *Acquirer) fetchOnce(ctx context.Context, f Fetcher, ref, dst string) (int64, error) {
	if a.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Timeout)
		defer cancel()
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, Permanent(err)
	}
	part := dst + ".part"
	out, err := os.OpenFile(part, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, err
	}
	defer os.Remove(part)

	n, err := f.Fetch(ctx, ref, out)
	if err != nil {
		out.Close()
		return n, err
	}
	if n == 0 {
		out.Close()
		return 0, fmt.Errorf("source is empty")
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return n, err
	}
	if err := out.Close(); err != nil {
		return n, err
	}
	return n, os.Rename(part, dst)
}

func (a *Acquirer) fetcherFor(ref string) (Fetcher, error) {
	ref = strings.TrimSpace(ref)
	_, isDrive := DriveFileID(ref)
	switch {
	case isDrive && a.Drive != nil:
		return a.Drive, nil
	case strings.HasPrefix(ref, "gdrive://"):
		return nil, fmt.Errorf("drive source %s needs the gdrive storage provider", ref)
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		if a.HTTP == nil {
			return nil, fmt.Errorf("no http fetcher configured")
		}
		return a.HTTP, nil
	case strings.HasPrefix(ref, "file://"), filepath.IsAbs(ref):
		if a.Files == nil {
			return FileFetcher{}, nil
		}
		return a.Files, nil
	default:
		return nil, fmt.Errorf("unrecognized source reference %q", ref)
	}
}

func (a *Acquirer) logger() *logger.Logger {
	if a.Log == nil {
		return logger.Nop()
	}
	return a.Log.WithComponent("acquire")
}
