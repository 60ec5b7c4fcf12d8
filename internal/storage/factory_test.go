package storage

import (
	"context"
	"testing"

	"clipforge/internal/config"
)

func TestNewProvider(t *testing.T) {
	ctx := context.Background()

	p, err := NewProvider(ctx, config.Storage{Provider: "localfs", PublishRoot: t.TempDir()})
	if err != nil {
		t.Fatalf("localfs: %v", err)
	}
	if p.Provider() != "localfs" {
		t.Errorf("Provider() = %s", p.Provider())
	}

	if _, err := NewProvider(ctx, config.Storage{Provider: "localfs"}); err == nil {
		t.Error("localfs without publish root should fail")
	}
	if _, err := NewProvider(ctx, config.Storage{Provider: "gdrive"}); err == nil {
		t.Error("gdrive without credentials should fail")
	}
	if _, err := NewProvider(ctx, config.Storage{Provider: "s3"}); err == nil {
		t.Error("unknown provider should fail")
	}
}
