package infer

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"time"

	"editd/internal/manager"
)

// Stub satisfies both manager.Loader and Runner without a real model. It is
// selected in test mode so the queue and lifecycle logic can be exercised on
// machines without the GPU runtime.
type Stub struct {
	// Artificial latencies; zero means instant.
	LoadDelay time.Duration
	StepDelay time.Duration

	mu      sync.Mutex
	loadErr error
	runErr  error
}

// NewStub returns a stub with no artificial latency.
func NewStub() *Stub { return &Stub{} }

// FailLoads makes subsequent Load calls return err (nil clears).
func (s *Stub) FailLoads(err error) {
	s.mu.Lock()
	s.loadErr = err
	s.mu.Unlock()
}

// FailRuns makes subsequent Run calls return err (nil clears).
func (s *Stub) FailRuns(err error) {
	s.mu.Lock()
	s.runErr = err
	s.mu.Unlock()
}

func (s *Stub) Load(ctx context.Context) (manager.Handle, error) {
	if s.LoadDelay > 0 {
		select {
		case <-time.After(s.LoadDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s.mu.Lock()
	err := s.loadErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return "stub-model", nil
}

func (s *Stub) Unload(h manager.Handle) error { return nil }

func (s *Stub) Run(ctx context.Context, h manager.Handle, req Request, onProgress Progress) ([]byte, error) {
	s.mu.Lock()
	err := s.runErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	steps := req.Steps
	if steps < 1 {
		steps = 1
	}
	for i := 1; i <= steps; i++ {
		if s.StepDelay > 0 {
			select {
			case <-time.After(s.StepDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		} else if err := ctx.Err(); err != nil {
			return nil, err
		}
		if onProgress != nil {
			onProgress(float64(i) / float64(steps) * 100)
		}
	}
	return stubPNG(), nil
}

// stubPNG returns a 1x1 opaque PNG so the result path behaves like a real
// output image.
func stubPNG() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.RGBA{R: 0x3a, G: 0x7b, B: 0xd5, A: 0xff})
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}
