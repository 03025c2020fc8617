package httpapi

// maxUploadBytes controls the maximum allowed multipart request size for
// POST /edit. Default is 64 MiB: three full-resolution PNGs plus headroom.
var maxUploadBytes int64 = 64 << 20

// SetMaxUploadBytes allows configuring the maximum upload size.
func SetMaxUploadBytes(n int64) {
	if n <= 0 {
		maxUploadBytes = 64 << 20
		return
	}
	maxUploadBytes = n
}

// modelName is the identifier reported by GET /health.
var modelName = "Qwen/Qwen-Image-Edit-2509"

// SetModelName configures the model identifier reported by health checks.
func SetModelName(name string) {
	if name != "" {
		modelName = name
	}
}

// CORS configuration (opt-in). If disabled, no CORS middleware is added.
var (
	corsEnabled        bool
	corsAllowedOrigins []string
)

// SetCORSOptions configures CORS behavior for the HTTP server.
func SetCORSOptions(enabled bool, origins []string) {
	corsEnabled = enabled
	corsAllowedOrigins = append([]string(nil), origins...)
}
