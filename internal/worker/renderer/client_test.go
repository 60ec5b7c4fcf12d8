package renderer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	rendererv1 "clipforge/internal/contracts/renderer/v1"
	"clipforge/internal/pkg/errors"
)

func TestRenderPostsSpec(t *testing.T) {
	var got rendererv1.RenderSpec
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/render/v1" || r.Method != http.MethodPost {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	spec := rendererv1.RenderSpec{JobID: "j1", VideoSegment: "/data/jobs/j1/video_segment.mp4", CropPlan: "/data/jobs/j1/crop_plan.json"}
	spec.Output.Path = "/data/jobs/j1/final.mp4"
	spec.Output.Width, spec.Output.Height = 1080, 1920

	c := NewHTTPClient(srv.URL+"/", time.Second)
	if err := c.Render(context.Background(), spec); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got.JobID != "j1" || got.Output.Path != spec.Output.Path || got.Output.Height != 1920 {
		t.Errorf("renderer received %+v", got)
	}
}

func TestRenderNon2xxIsRenderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "ffmpeg exited with status 1", http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewHTTPClient(srv.URL, time.Second).Render(context.Background(), rendererv1.RenderSpec{JobID: "j1"})
	if !errors.IsCode(err, errors.CodeRender) {
		t.Fatalf("err = %v, want RENDER_ERROR", err)
	}
}
