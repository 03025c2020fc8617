// Package e2e exercises the whole daemon over HTTP: real router, real queue
// worker, real manager, with inference stubbed.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"editd/internal/httpapi"
	"editd/internal/infer"
	"editd/internal/manager"
	"editd/internal/queue"
	"editd/internal/results"
	"editd/internal/store"
	"editd/pkg/types"
)

type env struct {
	srv  *httptest.Server
	stub *infer.Stub
	mgr  *manager.Manager
}

// newEnv wires the full stack the way cmd/editd does, minus the real worker.
func newEnv(t *testing.T, depth int, timeout time.Duration) *env {
	t.Helper()
	res, err := results.New(t.TempDir())
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	stub := infer.NewStub()
	st := store.New()
	mgr := manager.New(manager.Config{
		Loader:     stub,
		Timeout:    timeout,
		ReaperTick: 10 * time.Millisecond,
	})
	q := queue.New(queue.Config{
		Store:   st,
		Manager: mgr,
		Runner:  stub,
		Results: res,
		Depth:   depth,
	})
	mux := httpapi.NewMux(&httpapi.App{Queue: q, Store: st, Manager: mgr, Results: res})
	srv := httptest.NewServer(mux)

	ctx, cancel := context.WithCancel(context.Background())
	go q.RunWorker(ctx)
	go mgr.RunReaper(ctx)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return &env{srv: srv, stub: stub, mgr: mgr}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.White)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// submit POSTs a single-image edit and returns the response.
func submit(t *testing.T, e *env, prompt string) *http.Response {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fw, err := w.CreateFormFile("file", "in.png")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	fw.Write(pngBytes(t))
	w.WriteField("prompt", prompt)
	w.Close()
	resp, err := http.Post(e.srv.URL+"/edit", w.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("post /edit: %v", err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestE2E_EditJobLifecycle(t *testing.T) {
	e := newEnv(t, 8, time.Hour)

	resp := submit(t, e, "make the sky purple")
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("submit status = %d, want 202", resp.StatusCode)
	}
	var sub types.SubmitResponse
	decodeJSON(t, resp, &sub)
	if sub.JobID == "" || sub.Status != "queued" {
		t.Fatalf("unexpected submit response: %+v", sub)
	}

	// Poll until terminal.
	var job types.JobResponse
	deadline := time.Now().Add(5 * time.Second)
	for {
		r, err := http.Get(e.srv.URL + "/jobs/" + sub.JobID)
		if err != nil {
			t.Fatalf("get job: %v", err)
		}
		if r.StatusCode != http.StatusOK {
			t.Fatalf("job status = %d", r.StatusCode)
		}
		decodeJSON(t, r, &job)
		if job.Status == "succeeded" || job.Status == "failed" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job did not finish, last status %q", job.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if job.Status != "succeeded" {
		t.Fatalf("job failed: %s", job.Error)
	}
	if job.Progress != 100 || job.ResultURL == "" || job.CompletedAt == 0 {
		t.Fatalf("incomplete terminal job: %+v", job)
	}

	// The result URL must serve a decodable PNG.
	r, err := http.Get(e.srv.URL + job.ResultURL)
	if err != nil {
		t.Fatalf("get result: %v", err)
	}
	defer r.Body.Close()
	if r.StatusCode != http.StatusOK {
		t.Fatalf("result status = %d", r.StatusCode)
	}
	if _, err := png.Decode(r.Body); err != nil {
		t.Fatalf("result is not a PNG: %v", err)
	}

	// Health reflects the loaded model.
	var h types.HealthResponse
	hr, err := http.Get(e.srv.URL + "/health")
	if err != nil {
		t.Fatalf("get health: %v", err)
	}
	decodeJSON(t, hr, &h)
	if !h.OK || !h.ModelLoaded || h.State != "loaded" {
		t.Fatalf("unexpected health: %+v", h)
	}
	if h.MinutesUntilUnload == nil {
		t.Fatal("minutes_until_unload should be set while loaded")
	}
}

func TestE2E_ValidationRejected(t *testing.T) {
	e := newEnv(t, 8, time.Hour)

	// No image at all.
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	w.WriteField("prompt", "no image here")
	w.Close()
	resp, err := http.Post(e.srv.URL+"/edit", w.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	var apiErr types.ErrorResponse
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	decodeJSON(t, resp, &apiErr)
	if apiErr.Code != http.StatusBadRequest || apiErr.Error == "" {
		t.Fatalf("unexpected error payload: %+v", apiErr)
	}
}

func TestE2E_Backpressure429(t *testing.T) {
	// Depth 1 and a slow stub so the queue fills while the first job runs.
	e := newEnv(t, 1, time.Hour)
	e.stub.StepDelay = 20 * time.Millisecond

	var got429 bool
	for i := 0; i < 6; i++ {
		resp := submit(t, e, "fill the queue")
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		switch resp.StatusCode {
		case http.StatusAccepted:
		case http.StatusTooManyRequests:
			got429 = true
		default:
			t.Fatalf("unexpected status %d", resp.StatusCode)
		}
	}
	if !got429 {
		t.Fatal("expected at least one 429 with queue depth 1")
	}
}

func TestE2E_ManualUnload(t *testing.T) {
	e := newEnv(t, 8, time.Hour)

	// Not loaded yet: unload is a no-op with its own message.
	resp, err := http.Post(e.srv.URL+"/model/unload", "", nil)
	if err != nil {
		t.Fatalf("post unload: %v", err)
	}
	var ur types.UnloadResponse
	decodeJSON(t, resp, &ur)
	if resp.StatusCode != http.StatusOK || ur.Status != "Model was not loaded" {
		t.Fatalf("got %d %q", resp.StatusCode, ur.Status)
	}

	// Load explicitly, then unload for real.
	lr, err := http.Post(e.srv.URL+"/model/load", "", nil)
	if err != nil {
		t.Fatalf("post load: %v", err)
	}
	io.Copy(io.Discard, lr.Body)
	lr.Body.Close()
	if lr.StatusCode != http.StatusOK {
		t.Fatalf("load status = %d", lr.StatusCode)
	}
	resp, err = http.Post(e.srv.URL+"/model/unload", "", nil)
	if err != nil {
		t.Fatalf("post unload: %v", err)
	}
	decodeJSON(t, resp, &ur)
	if ur.Status != "Model unloaded successfully" {
		t.Fatalf("got %q", ur.Status)
	}

	var h types.HealthResponse
	hr, err := http.Get(e.srv.URL + "/health")
	if err != nil {
		t.Fatalf("get health: %v", err)
	}
	decodeJSON(t, hr, &h)
	if h.ModelLoaded || h.State != "unloaded" {
		t.Fatalf("model still reported loaded: %+v", h)
	}
}

func TestE2E_IdleReaperUnloads(t *testing.T) {
	e := newEnv(t, 8, 50*time.Millisecond)

	resp := submit(t, e, "quick job")
	var sub types.SubmitResponse
	decodeJSON(t, resp, &sub)

	deadline := time.Now().Add(5 * time.Second)
	for {
		st := e.mgr.Status()
		if st.State == manager.StateUnloaded && !st.Busy {
			// Model was loaded for the job, then evicted after going idle.
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("model never evicted, state %v", st.State)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
