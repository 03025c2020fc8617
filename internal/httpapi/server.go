package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"editd/internal/manager"
	"editd/internal/queue"
	"editd/internal/store"
	"editd/pkg/types"
)

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(requestLogger)
	r.Use(MetricsMiddleware)
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"*"},
		}))
	}

	r.Post("/edit", func(w http.ResponseWriter, r *http.Request) { handleSubmit(w, r, svc) })

	r.Get("/jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		j, err := svc.Job(id)
		if err != nil {
			writeJSONError(w, statusForError(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, jobResponse(j))
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		st := svc.ModelStatus()
		writeJSON(w, http.StatusOK, types.HealthResponse{
			OK:                      true,
			Model:                   modelName,
			ModelLoaded:             st.Loaded,
			State:                   string(st.State),
			TimeoutMinutes:          st.TimeoutMinutes,
			MinutesSinceLastRequest: round2(st.MinutesSinceLastAccess),
			MinutesUntilUnload:      roundPtr(st.MinutesUntilUnload),
			QueueDepth:              svc.QueueDepth(),
		})
	})

	r.Post("/model/load", func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Load(r.Context()); err != nil {
			writeJSONError(w, statusForError(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, types.UnloadResponse{Status: "Model loaded"})
	})

	r.Post("/model/unload", func(w http.ResponseWriter, r *http.Request) {
		force := parseBool(r.URL.Query().Get("force")) || parseBool(r.FormValue("force"))
		err := svc.Unload(force)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, types.UnloadResponse{Status: "Model unloaded successfully"})
		case manager.IsNotLoaded(err):
			writeJSON(w, http.StatusOK, types.UnloadResponse{Status: "Model was not loaded"})
		default:
			writeJSONError(w, statusForError(err), err.Error())
		}
	})

	r.Get("/results/{filename}", func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.ResultPath(chi.URLParam(r, "filename"))
		if err != nil {
			writeJSONError(w, statusForError(err), err.Error())
			return
		}
		w.Header().Set("Content-Type", "image/png")
		http.ServeFile(w, r, p)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}

// handleSubmit decodes multipart form fields into a SubmitRequest and hands
// it to the normalizer. Everything model-related happens later, on the
// worker; this path must return immediately.
func handleSubmit(w http.ResponseWriter, r *http.Request, svc Service) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	req := queue.SubmitRequest{
		Prompt:         r.FormValue("prompt"),
		NegativePrompt: r.FormValue("negative_prompt"),
	}
	for _, field := range []string{"file", "file2", "file3"} {
		buf, ok, err := readFilePart(r, field)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "could not read "+field)
			return
		}
		if ok {
			req.Images = append(req.Images, buf)
		}
	}
	if v := r.FormValue("num_inference_steps"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid num_inference_steps")
			return
		}
		req.Steps = &n
	}
	if v := r.FormValue("true_cfg_scale"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid true_cfg_scale")
			return
		}
		req.GuidanceScale = &f
	}
	if v := r.FormValue("seed"); v != "" {
		s, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid seed")
			return
		}
		req.Seed = &s
	}

	id, err := svc.Submit(req)
	if err != nil {
		if queue.IsQueueFull(err) {
			IncrementBackpressure("queue_full")
		}
		writeJSONError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, types.SubmitResponse{JobID: id, Status: string(store.StatusQueued)})
}

// readFilePart returns the bytes of an optional file field. ok is false when
// the field is absent.
func readFilePart(r *http.Request, field string) (buf []byte, ok bool, err error) {
	f, _, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer f.Close()
	buf, err = io.ReadAll(f)
	if err != nil {
		return nil, false, err
	}
	return buf, true, nil
}

func jobResponse(j store.Job) types.JobResponse {
	resp := types.JobResponse{
		ID:        j.ID,
		Status:    string(j.Status),
		Progress:  j.Progress,
		Prompt:    j.Prompt,
		CreatedAt: j.CreatedAt.Unix(),
		Error:     j.Error,
	}
	if !j.StartedAt.IsZero() {
		resp.StartedAt = j.StartedAt.Unix()
	}
	if !j.CompletedAt.IsZero() {
		resp.CompletedAt = j.CompletedAt.Unix()
	}
	if j.ResultPath != "" {
		resp.ResultURL = "/results/" + j.ResultPath
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && zlog != nil {
		zlog.Error().Err(err).Msg("encode response")
	}
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}

func roundPtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := round2(*v)
	return &r
}
