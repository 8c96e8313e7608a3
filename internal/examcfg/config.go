package examcfg

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var (
	ErrInvalidConfig = errors.New("invalid exam config")
	ErrUnknownField  = errors.New("unknown config field")
)

var validate = validator.New()

// Config holds the per-certificate exam composition and scoring rules.
// Values are immutable once constructed; use WithField for partial updates.
type Config struct {
	CertID         string `json:"cert_id"`
	TotalScore     int    `json:"total_score" validate:"min=0"`
	Duration       int    `json:"duration" validate:"min=0"`
	PassingScore   int    `json:"passing_score" validate:"min=0"`
	SingleCount    int    `json:"single_count" validate:"min=0"`
	SinglePoints   int    `json:"single_points" validate:"min=0"`
	MultipleCount  int    `json:"multiple_count" validate:"min=0"`
	MultiplePoints int    `json:"multiple_points" validate:"min=0"`
}

// Default is the fallback configuration applied when a certificate has no
// stored rules: 100 points, 120 minutes, pass at 80, 50 singles at 1 point
// and 25 multiples at 2 points.
func Default(certID string) Config {
	return Config{
		CertID:         certID,
		TotalScore:     100,
		Duration:       120,
		PassingScore:   80,
		SingleCount:    50,
		SinglePoints:   1,
		MultipleCount:  25,
		MultiplePoints: 2,
	}
}

// Validate rejects negative counts, points, durations or scores.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// WithField returns a copy with one named field replaced, validated before
// acceptance. Field names follow the JSON wire names.
func (c Config) WithField(name string, value int) (Config, error) {
	out := c
	switch name {
	case "total_score":
		out.TotalScore = value
	case "duration":
		out.Duration = value
	case "passing_score":
		out.PassingScore = value
	case "single_count":
		out.SingleCount = value
	case "single_points":
		out.SinglePoints = value
	case "multiple_count":
		out.MultipleCount = value
	case "multiple_points":
		out.MultiplePoints = value
	default:
		return Config{}, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	if err := out.Validate(); err != nil {
		return Config{}, err
	}
	return out, nil
}
