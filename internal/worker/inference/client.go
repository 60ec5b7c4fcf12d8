// Package inference talks to the face-landmark and speech-recognition
// services over HTTP.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clipforge/internal/captions"
	"clipforge/internal/pkg/errors"
	"clipforge/internal/ports"
	"clipforge/internal/tracking"
)

type client struct {
	baseURL string
	http    *http.Client
}

func newClient(baseURL string, timeout time.Duration) client {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c client) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("%s http %d: %s", path, res.StatusCode, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// Detector calls POST /detect on the landmark service.
type Detector struct {
	c client
}

func NewDetector(baseURL string, timeout time.Duration) *Detector {
	return &Detector{c: newClient(baseURL, timeout)}
}

type detectRequest struct {
	VideoPath   string `json:"video_path"`
	Stride      int    `json:"stride"`
	ProxyHeight int    `json:"proxy_height"`
}

type detectResponse struct {
	Frames []tracking.Detection `json:"frames"`
}

// Detect returns landmarks for every sampled frame. A failed call is a
// TRACKING_INPUT_ERROR; callers treat it as a clip with no candidates.
func (d *Detector) Detect(ctx context.Context, req ports.DetectRequest) (ports.DetectResult, error) {
	var resp detectResponse
	err := d.c.postJSON(ctx, "/detect", detectRequest{
		VideoPath:   req.VideoPath,
		Stride:      req.Stride,
		ProxyHeight: req.ProxyHeight,
	}, &resp)
	if err != nil {
		return ports.DetectResult{}, errors.WrapWithCode(err, errors.CodeTrackingInput, "inference.Detect", "face detection failed")
	}
	return ports.DetectResult{Detections: resp.Frames}, nil
}

// Transcriber calls POST /transcribe on the speech service.
type Transcriber struct {
	c client
}

func NewTranscriber(baseURL string, timeout time.Duration) *Transcriber {
	return &Transcriber{c: newClient(baseURL, timeout)}
}

type transcribeRequest struct {
	AudioPath      string `json:"audio_path"`
	WordTimestamps bool   `json:"word_timestamps"`
}

type transcribeResponse struct {
	Words []captions.Word `json:"words"`
}

// Transcribe returns word-level timestamps for the audio at audioPath.
func (t *Transcriber) Transcribe(ctx context.Context, audioPath string) ([]captions.Word, error) {
	var resp transcribeResponse
	if err := t.c.postJSON(ctx, "/transcribe", transcribeRequest{AudioPath: audioPath, WordTimestamps: true}, &resp); err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeTranscription, "inference.Transcribe", "speech transcription failed")
	}
	return resp.Words, nil
}
