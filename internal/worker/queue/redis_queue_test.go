package queue

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestRedisQueueFIFO(t *testing.T) {
	addr := os.Getenv("CLIPFORGE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CLIPFORGE_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()

	name := "clipforge:test:" + time.Now().Format("150405.000000")
	defer rdb.Del(ctx, name)

	q := NewRedisQueue(rdb, name)
	q.wait = 200 * time.Millisecond
	if err := q.Ping(ctx); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"a", "b"} {
		if err := q.Push(ctx, id); err != nil {
			t.Fatal(err)
		}
	}
	for _, want := range []string{"a", "b", ""} {
		got, err := q.Pop(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("Pop = %q, want %q", got, want)
		}
	}
}
