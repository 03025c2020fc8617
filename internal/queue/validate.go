package queue

import (
	"bytes"
	"image"
	"strings"

	// raster formats accepted for input images
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"editd/internal/store"
)

// Image and parameter bounds. Out-of-range numeric params are clamped, not
// rejected; see DESIGN.md for the policy decision.
const (
	maxImages = 3

	defaultSteps = 50
	minSteps     = 1
	maxSteps     = 150

	defaultGuidance = 4.0
	minGuidance     = 0.0
	maxGuidance     = 20.0
)

// normalize validates a submission and produces the job's prompt and params.
// It does not allocate an id or touch the store.
func normalize(req SubmitRequest) (prompt string, params store.Params, err error) {
	if len(req.Images) == 0 {
		return "", store.Params{}, ErrMissingImage()
	}
	if len(req.Images) > maxImages {
		return "", store.Params{}, ErrTooManyImages(len(req.Images))
	}
	for i, buf := range req.Images {
		if _, _, derr := image.DecodeConfig(bytes.NewReader(buf)); derr != nil {
			return "", store.Params{}, ErrInvalidImage(i + 1)
		}
	}
	prompt = strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return "", store.Params{}, ErrInvalidPrompt()
	}

	params = store.Params{Steps: defaultSteps, GuidanceScale: defaultGuidance, Seed: req.Seed}
	if req.Steps != nil {
		params.Steps = clampInt(*req.Steps, minSteps, maxSteps)
	}
	if req.GuidanceScale != nil {
		params.GuidanceScale = clampFloat(*req.GuidanceScale, minGuidance, maxGuidance)
	}
	return prompt, params, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
