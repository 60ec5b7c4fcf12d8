package media

import (
	"context"
	"fmt"
	"os"
	"time"
)

func runner(r Runner) Runner {
	if r == nil {
		return ExecRunner{}
	}
	return r
}

func ffmpegBinary(b string) string {
	if b == "" {
		return "ffmpeg"
	}
	return b
}

// commit flushes part to disk and renames it over dst.
func commit(part, dst string) error {
	f, err := os.OpenFile(part, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", part, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync %s: %w", part, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(part, dst)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
