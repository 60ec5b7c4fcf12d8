package pipeline

import (
	"context"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"clipforge/internal/pkg/errors"
	"clipforge/internal/ports"
)

// ObjectKey returns the publish key of a job's final clip.
func ObjectKey(prefix, jobID, localPath string) string {
	ext := strings.ToLower(filepath.Ext(localPath))
	if ext == "" {
		ext = ".mp4"
	}
	name := SanitizeFilename(jobID) + ext
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// SanitizeFilename keeps letters, digits, '.', '_' and '-' and replaces the
// rest with '_'.
func SanitizeFilename(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "clip"
	}
	return out
}

func contentType(localPath string) string {
	if ct := mime.TypeByExtension(filepath.Ext(localPath)); ct != "" {
		return ct
	}
	return "video/mp4"
}

// Publisher hands a final artifact to the configured storage provider.
type Publisher struct {
	sp     ports.StorageProvider
	prefix string
}

func NewPublisher(sp ports.StorageProvider, prefix string) *Publisher {
	return &Publisher{sp: sp, prefix: prefix}
}

// Publish uploads localPath and returns the remote reference: the provider
// URL when there is one, otherwise provider:key.
func (p *Publisher) Publish(ctx context.Context, jobID, localPath string) (string, error) {
	const op = "pipeline.publish"

	st, err := os.Stat(localPath)
	if err != nil {
		return "", errors.Publish(err, op, "final artifact missing")
	}
	f, err := os.Open(localPath)
	if err != nil {
		return "", errors.Publish(err, op, "open final artifact")
	}
	defer f.Close()

	out, err := p.sp.PutObject(ctx, ports.PutObjectInput{
		ObjectKey:   ObjectKey(p.prefix, jobID, localPath),
		ContentType: contentType(localPath),
		Reader:      f,
		Size:        st.Size(),
	})
	if err != nil {
		return "", errors.Publish(err, op, "upload to "+p.sp.Provider()+" failed")
	}
	if out.URL != "" {
		return out.URL, nil
	}
	return p.sp.Provider() + ":" + out.ObjectKey, nil
}
