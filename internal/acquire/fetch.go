package acquire

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"clipforge/internal/pkg/errors"
	"clipforge/internal/ports"
)

// Fetcher copies the bytes of one source reference into w.
type Fetcher interface {
	Fetch(ctx context.Context, ref string, w io.Writer) (int64, error)
}

// HTTPFetcher downloads http(s) references.
type HTTPFetcher struct {
	Client *http.Client
}

func (f *HTTPFetcher) Fetch(ctx context.Context, ref string, w io.Writer) (int64, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return 0, Permanent(err)
	}
	res, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		err := fmt.Errorf("source http %d", res.StatusCode)
		if res.StatusCode >= 400 && res.StatusCode < 500 &&
			res.StatusCode != http.StatusRequestTimeout && res.StatusCode != http.StatusTooManyRequests {
			return 0, Permanent(err)
		}
		return 0, err
	}

	n, err := io.Copy(w, res.Body)
	if err != nil {
		return n, err
	}
	if res.ContentLength > 0 && n != res.ContentLength {
		return n, fmt.Errorf("short read: got %d of %d bytes", n, res.ContentLength)
	}
	return n, nil
}

// StorageFetcher reads Drive references through a storage provider.
type StorageFetcher struct {
	Provider ports.StorageProvider
}

func (f *StorageFetcher) Fetch(ctx context.Context, ref string, w io.Writer) (int64, error) {
	id, ok := DriveFileID(ref)
	if !ok {
		return 0, Permanent(fmt.Errorf("not a drive reference: %s", ref))
	}
	rc, _, size, err := f.Provider.GetObject(ctx, id)
	if err != nil {
		if errors.IsNotFound(err) {
			return 0, Permanent(err)
		}
		return 0, err
	}
	defer rc.Close()

	n, err := io.Copy(w, rc)
	if err != nil {
		return n, err
	}
	if size > 0 && n != size {
		return n, fmt.Errorf("short read: got %d of %d bytes", n, size)
	}
	return n, nil
}

// FileFetcher copies local files (file:// or absolute paths).
type FileFetcher struct{}

func (FileFetcher) Fetch(_ context.Context, ref string, w io.Writer) (int64, error) {
	path := strings.TrimPrefix(ref, "file://")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, Permanent(err)
		}
		return 0, err
	}
	defer f.Close()
	return io.Copy(w, f)
}
