package types

// SubmitResponse is returned by POST /edit once a job has been queued.
type SubmitResponse struct {
	// Identifier to poll via GET /jobs/{id}.
	// example: 3f2c9a6e4b1d4f0a9c8e7b6a5d4c3b2a
	JobID string `json:"job_id" example:"3f2c9a6e4b1d4f0a9c8e7b6a5d4c3b2a"`
	// Initial status, always "queued".
	// example: queued
	Status string `json:"status" example:"queued"`
}

// JobResponse is returned by GET /jobs/{id}.
type JobResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	// Completion percentage in [0,100].
	// example: 42.5
	Progress float64 `json:"progress"`
	Prompt   string  `json:"prompt"`
	// Unix seconds.
	CreatedAt   int64 `json:"created_at"`
	StartedAt   int64 `json:"started_at,omitempty"`
	CompletedAt int64 `json:"completed_at,omitempty"`
	// Public URL of the result image; present only when succeeded.
	// example: /results/3f2c9a6e4b1d4f0a9c8e7b6a5d4c3b2a.png
	ResultURL string `json:"result_url,omitempty"`
	// Human-readable failure message; present only when failed.
	Error string `json:"error,omitempty"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	OK bool `json:"ok"`
	// Model identifier served by this daemon.
	// example: Qwen/Qwen-Image-Edit-2509
	Model       string `json:"model"`
	ModelLoaded bool   `json:"model_loaded"`
	// Lifecycle state of the model resource (unloaded, loading, loaded, unloading).
	// example: loaded
	State string `json:"state"`
	// Configured idle-unload period in minutes.
	// example: 30
	TimeoutMinutes float64 `json:"timeout_minutes"`
	// Minutes elapsed since the model was last touched.
	MinutesSinceLastRequest float64 `json:"minutes_since_last_request"`
	// Minutes until the idle reaper evicts the model; null unless loaded.
	MinutesUntilUnload *float64 `json:"minutes_until_unload"`
	// Number of jobs waiting in the queue.
	QueueDepth int `json:"queue_depth"`
}

// UnloadResponse is returned by POST /model/unload and POST /model/load.
type UnloadResponse struct {
	// example: Model unloaded successfully
	Status string `json:"status"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid image 2
	Error string `json:"error" example:"invalid image 2"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
