package infer

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"editd/internal/manager"
)

// Worker talks to an external inference process (the Python pipeline host)
// over HTTP. When a command is configured, Load spawns the process and polls
// its health endpoint until ready; with no command it attaches to an already
// running worker at BaseURL.
//
// The wire protocol is one multipart POST per edit, answered with an NDJSON
// stream of {"progress": pct} lines terminated by {"done": true, "image":
// "<base64 png>"} or {"error": "..."}.
type Worker struct {
	cfg WorkerConfig
	// Intentionally no client timeout: every request carries a context.
	httpClient *http.Client
	log        zerolog.Logger

	mu  sync.Mutex
	cmd *exec.Cmd
}

type WorkerConfig struct {
	// Command to spawn, e.g. ["python", "image-edit-worker.py"]. Empty
	// means attach to an existing worker.
	Command []string
	// Base URL the worker listens on, e.g. http://127.0.0.1:8701.
	BaseURL string
	// How long Load waits for the worker to become healthy.
	StartTimeout time.Duration
	Logger       zerolog.Logger
}

const defaultStartTimeout = 5 * time.Minute

func NewWorker(cfg WorkerConfig) *Worker {
	if cfg.StartTimeout <= 0 {
		cfg.StartTimeout = defaultStartTimeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Worker{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 0},
		log:        cfg.Logger,
	}
}

// Load brings the worker process up and returns its base URL as the handle.
func (w *Worker) Load(ctx context.Context) (manager.Handle, error) {
	if w.cfg.BaseURL == "" {
		return nil, ErrDependencyUnavailable("inference worker URL not configured")
	}
	if len(w.cfg.Command) > 0 {
		if err := w.spawn(); err != nil {
			return nil, ErrDependencyUnavailable(fmt.Sprintf("spawn inference worker: %v", err))
		}
	}
	if err := w.waitHealthy(ctx); err != nil {
		w.stop()
		return nil, err
	}
	return w.cfg.BaseURL, nil
}

// Unload terminates a spawned worker. In attach mode it asks the worker to
// release the model instead.
func (w *Worker) Unload(h manager.Handle) error {
	w.mu.Lock()
	spawned := w.cmd != nil
	w.mu.Unlock()
	if spawned {
		w.stop()
		return nil
	}
	req, err := http.NewRequest(http.MethodPost, w.cfg.BaseURL+"/model/unload", nil)
	if err != nil {
		return err
	}
	resp, err := w.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("worker unload: %s", resp.Status)
	}
	return nil
}

func (w *Worker) spawn() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cmd != nil {
		return nil
	}
	cmd := exec.Command(w.cfg.Command[0], w.cfg.Command[1:]...)
	if err := cmd.Start(); err != nil {
		return err
	}
	w.log.Info().Str("cmd", strings.Join(w.cfg.Command, " ")).Int("pid", cmd.Process.Pid).Msg("spawned inference worker")
	w.cmd = cmd
	// Reap in the background so an early exit does not leave a zombie.
	go func() {
		err := cmd.Wait()
		w.mu.Lock()
		if w.cmd == cmd {
			w.cmd = nil
		}
		w.mu.Unlock()
		if err != nil {
			w.log.Warn().Err(err).Msg("inference worker exited")
		}
	}()
	return nil
}

func (w *Worker) stop() {
	w.mu.Lock()
	cmd := w.cmd
	w.cmd = nil
	w.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return
	}
	w.log.Info().Int("pid", cmd.Process.Pid).Msg("stopping inference worker")
	_ = cmd.Process.Kill()
}

// waitHealthy polls GET /health until the worker answers 2xx.
func (w *Worker) waitHealthy(ctx context.Context) error {
	deadline := time.Now().Add(w.cfg.StartTimeout)
	for {
		if w.healthy(ctx) {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrDependencyUnavailable("inference worker did not become healthy at " + w.cfg.BaseURL)
		}
		select {
		case <-time.After(250 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *Worker) healthy(ctx context.Context) bool {
	hctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(hctx, http.MethodGet, w.cfg.BaseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := w.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// workerEvent is one NDJSON line from the worker.
type workerEvent struct {
	Progress *float64 `json:"progress,omitempty"`
	Done     bool     `json:"done,omitempty"`
	Image    string   `json:"image,omitempty"`
	Error    string   `json:"error,omitempty"`
}

func (w *Worker) Run(ctx context.Context, h manager.Handle, req Request, onProgress Progress) ([]byte, error) {
	base, ok := h.(string)
	if !ok || base == "" {
		base = w.cfg.BaseURL
	}
	body, contentType, err := encodeEditRequest(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/edit", body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", contentType)
	resp, err := w.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("worker http error: %s: %s", resp.Status, strings.TrimSpace(string(b)))
	}
	return decodeEditStream(resp.Body, onProgress)
}

// encodeEditRequest builds the multipart body the worker expects: file,
// file2, file3 plus form fields mirroring the public API.
func encodeEditRequest(req Request) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	names := []string{"file", "file2", "file3"}
	for i, img := range req.Images {
		fw, err := mw.CreateFormFile(names[i], fmt.Sprintf("image%d.png", i+1))
		if err != nil {
			return nil, "", err
		}
		if _, err := fw.Write(img); err != nil {
			return nil, "", err
		}
	}
	fields := map[string]string{
		"prompt":              req.Prompt,
		"negative_prompt":     req.NegativePrompt,
		"num_inference_steps": strconv.Itoa(req.Steps),
		"true_cfg_scale":      strconv.FormatFloat(req.GuidanceScale, 'f', -1, 64),
	}
	if req.Seed != nil {
		fields["seed"] = strconv.FormatInt(*req.Seed, 10)
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

// decodeEditStream consumes NDJSON events until a done or error line.
func decodeEditStream(r io.Reader, onProgress Progress) ([]byte, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var ev workerEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			return nil, fmt.Errorf("malformed worker event: %w", err)
		}
		if ev.Error != "" {
			return nil, fmt.Errorf("worker: %s", ev.Error)
		}
		if ev.Progress != nil && onProgress != nil {
			onProgress(*ev.Progress)
		}
		if ev.Done {
			if ev.Image == "" {
				return nil, fmt.Errorf("worker finished without an image")
			}
			img, err := base64.StdEncoding.DecodeString(ev.Image)
			if err != nil {
				return nil, fmt.Errorf("decode worker image: %w", err)
			}
			return img, nil
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("worker stream ended before completion")
}
