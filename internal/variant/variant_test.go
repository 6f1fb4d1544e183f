package variant

import (
	"errors"
	"testing"

	"github.com/verte-zerg/cpstest/internal/filter"
	"github.com/verte-zerg/cpstest/internal/model"
)

func TestResolveDefaults(t *testing.T) {
	cfg, err := Resolve(model.VariantClick, 0, DefaultOptions())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Duration != DefaultDuration {
		t.Fatalf("expected default duration %d, got %d", DefaultDuration, cfg.Duration)
	}
	if cfg.TestType != "clickTest" {
		t.Fatalf("unexpected test type %q", cfg.TestType)
	}
	if cfg.Policy.Match != filter.MatchButton || cfg.Policy.Button != model.ButtonLeft {
		t.Fatalf("unexpected policy %+v", cfg.Policy)
	}
}

func TestResolveRejectsDurationOutsideAllowList(t *testing.T) {
	for _, d := range []int{3, 7, 61, -1} {
		if _, err := Resolve(model.VariantSpace, d, DefaultOptions()); !errors.Is(err, ErrInvalidDuration) {
			t.Fatalf("duration %d: expected ErrInvalidDuration, got %v", d, err)
		}
	}
	for _, d := range AllowedDurations() {
		if _, err := Resolve(model.VariantSpace, d, DefaultOptions()); err != nil {
			t.Fatalf("duration %d: unexpected error %v", d, err)
		}
	}
}

func TestResolveKohiIsFixed(t *testing.T) {
	cfg, err := Resolve(model.VariantKohi, 0, DefaultOptions())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Duration != KohiDuration {
		t.Fatalf("expected %d seconds, got %d", KohiDuration, cfg.Duration)
	}
	if _, err := Resolve(model.VariantKohi, 10, DefaultOptions()); err != nil {
		t.Fatalf("explicit 10 seconds should be accepted: %v", err)
	}
	if _, err := Resolve(model.VariantKohi, 5, DefaultOptions()); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("expected kohi override to be rejected, got %v", err)
	}
}

func TestResolveSpaceUsesKeyPolicy(t *testing.T) {
	opts := DefaultOptions()
	opts.DropRepeats = false
	cfg, err := Resolve(model.VariantSpace, 1, opts)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Policy.Match != filter.MatchKey || cfg.Policy.Key != model.KeySpace || cfg.Policy.DropRepeats {
		t.Fatalf("unexpected policy %+v", cfg.Policy)
	}
}

func TestResolveMulti(t *testing.T) {
	cfg, err := Resolve(model.VariantTriple, 10, Options{Button: model.ButtonRight})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.MultiTarget != 3 || cfg.MultiWindow != DefaultMultiWindow {
		t.Fatalf("unexpected multi settings %+v", cfg)
	}
	if cfg.Policy.Button != model.ButtonRight {
		t.Fatalf("expected right button policy")
	}
}

func TestParseUnknown(t *testing.T) {
	if _, err := Parse("reaction"); !errors.Is(err, ErrUnknownVariant) {
		t.Fatalf("expected ErrUnknownVariant, got %v", err)
	}
	if v, err := Parse(" Kohi "); err != nil || v != model.VariantKohi {
		t.Fatalf("expected kohi, got %q (%v)", v, err)
	}
	if _, err := Resolve(model.Variant("nope"), 5, DefaultOptions()); !errors.Is(err, ErrUnknownVariant) {
		t.Fatalf("expected ErrUnknownVariant from Resolve, got %v", err)
	}
}
