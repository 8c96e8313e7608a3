package examcfg

import (
	"errors"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default("cka")
	if cfg.CertID != "cka" {
		t.Fatalf("expected cert id carried, got %s", cfg.CertID)
	}
	if cfg.TotalScore != 100 || cfg.Duration != 120 || cfg.PassingScore != 80 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.SingleCount != 50 || cfg.SinglePoints != 1 || cfg.MultipleCount != 25 || cfg.MultiplePoints != 2 {
		t.Fatalf("unexpected composition defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate, got %v", err)
	}
}

func TestConfig_WithField(t *testing.T) {
	tests := []struct {
		name    string
		field   string
		value   int
		wantErr error
		check   func(Config) bool
	}{
		{name: "total_score", field: "total_score", value: 200, check: func(c Config) bool { return c.TotalScore == 200 }},
		{name: "duration", field: "duration", value: 90, check: func(c Config) bool { return c.Duration == 90 }},
		{name: "passing_score", field: "passing_score", value: 70, check: func(c Config) bool { return c.PassingScore == 70 }},
		{name: "single_count", field: "single_count", value: 40, check: func(c Config) bool { return c.SingleCount == 40 }},
		{name: "single_points", field: "single_points", value: 2, check: func(c Config) bool { return c.SinglePoints == 2 }},
		{name: "multiple_count", field: "multiple_count", value: 10, check: func(c Config) bool { return c.MultipleCount == 10 }},
		{name: "multiple_points", field: "multiple_points", value: 3, check: func(c Config) bool { return c.MultiplePoints == 3 }},
		{name: "zero is allowed", field: "single_count", value: 0, check: func(c Config) bool { return c.SingleCount == 0 }},
		{name: "negative rejected", field: "duration", value: -1, wantErr: ErrInvalidConfig},
		{name: "unknown field rejected", field: "bonus_points", value: 1, wantErr: ErrUnknownField},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			base := Default("cka")
			got, err := base.WithField(tc.field, tc.value)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected error %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.check(got) {
				t.Fatalf("field not applied: %+v", got)
			}
			// The receiver stays untouched.
			if base != Default("cka") {
				t.Fatalf("WithField must not mutate the receiver: %+v", base)
			}
		})
	}
}

func TestConfig_ValidateRejectsNegatives(t *testing.T) {
	cfg := Default("cka")
	cfg.PassingScore = -5
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}
