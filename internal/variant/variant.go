// Package variant describes the supported test types and validates their settings.
package variant

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/verte-zerg/cpstest/internal/filter"
	"github.com/verte-zerg/cpstest/internal/model"
)

const (
	// DefaultDuration is used when no duration is requested.
	DefaultDuration = 5
	// KohiDuration is the fixed length of the Kohi test.
	KohiDuration = 10
	// DefaultMultiWindow is the maximum gap between clicks of one cluster.
	DefaultMultiWindow = 500 * time.Millisecond
)

var (
	ErrUnknownVariant  = errors.New("unknown test variant")
	ErrInvalidDuration = errors.New("invalid test duration")
)

var allowedDurations = []int{1, 2, 5, 10, 15, 30, 60}

// AllowedDurations returns the selectable durations in seconds.
func AllowedDurations() []int {
	return append([]int(nil), allowedDurations...)
}

// IsAllowedDuration reports whether seconds is on the allow-list.
func IsAllowedDuration(seconds int) bool {
	for _, d := range allowedDurations {
		if d == seconds {
			return true
		}
	}
	return false
}

// Config parameterizes a session engine.
type Config struct {
	Variant  model.Variant
	TestType string
	Title    string
	Duration int
	Policy   filter.Policy
	// MultiTarget is 2 or 3 for clustering variants, 0 otherwise.
	MultiTarget int
	MultiWindow time.Duration
}

// Seconds returns the nominal duration as a float.
func (c Config) Seconds() float64 {
	return float64(c.Duration)
}

// Options carries caller-selectable settings.
type Options struct {
	Button      model.Button
	DropRepeats bool
	MultiWindow time.Duration
}

// DefaultOptions returns the defaults used without a config file.
func DefaultOptions() Options {
	return Options{
		Button:      model.ButtonLeft,
		DropRepeats: true,
		MultiWindow: DefaultMultiWindow,
	}
}

// Parse maps a name to a variant.
func Parse(name string) (model.Variant, error) {
	switch v := model.Variant(strings.TrimSpace(strings.ToLower(name))); v {
	case model.VariantClick, model.VariantSpace, model.VariantKohi, model.VariantDouble, model.VariantTriple:
		return v, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownVariant, name)
	}
}

// All lists every variant.
func All() []model.Variant {
	return []model.Variant{model.VariantClick, model.VariantSpace, model.VariantKohi, model.VariantDouble, model.VariantTriple}
}

// TestType returns the history namespace of a variant.
func TestType(v model.Variant) string {
	switch v {
	case model.VariantClick:
		return "clickTest"
	case model.VariantSpace:
		return "spaceClickTest"
	case model.VariantKohi:
		return "kohiClickTest"
	case model.VariantDouble:
		return "doubleClickTest"
	case model.VariantTriple:
		return "tripleClickTest"
	default:
		return ""
	}
}

// Resolve validates duration for v and builds its Config. A zero duration
// selects the variant default.
func Resolve(v model.Variant, duration int, opts Options) (Config, error) {
	if opts.MultiWindow <= 0 {
		opts.MultiWindow = DefaultMultiWindow
	}
	cfg := Config{Variant: v, TestType: TestType(v)}
	switch v {
	case model.VariantClick:
		cfg.Title = "Click Test"
		cfg.Policy = filter.ButtonPolicy(opts.Button)
	case model.VariantSpace:
		cfg.Title = "Space Click Test"
		cfg.Policy = filter.KeyPolicy(model.KeySpace, opts.DropRepeats)
	case model.VariantKohi:
		cfg.Title = "Kohi Click Test"
		cfg.Policy = filter.ButtonPolicy(opts.Button)
		if duration != 0 && duration != KohiDuration {
			return Config{}, fmt.Errorf("%w: kohi test is fixed at %d seconds, got %d", ErrInvalidDuration, KohiDuration, duration)
		}
		cfg.Duration = KohiDuration
		return cfg, nil
	case model.VariantDouble, model.VariantTriple:
		cfg.Title = "Double Click Test"
		cfg.MultiTarget = 2
		if v == model.VariantTriple {
			cfg.Title = "Triple Click Test"
			cfg.MultiTarget = 3
		}
		cfg.Policy = filter.ButtonPolicy(opts.Button)
		cfg.MultiWindow = opts.MultiWindow
	default:
		return Config{}, fmt.Errorf("%w: %q", ErrUnknownVariant, string(v))
	}
	if duration == 0 {
		duration = DefaultDuration
	}
	if !IsAllowedDuration(duration) {
		return Config{}, fmt.Errorf("%w: %d seconds (allowed: %s)", ErrInvalidDuration, duration, formatDurations())
	}
	cfg.Duration = duration
	return cfg, nil
}

func formatDurations() string {
	parts := make([]string, len(allowedDurations))
	for i, d := range allowedDurations {
		parts[i] = fmt.Sprintf("%d", d)
	}
	return strings.Join(parts, ", ")
}
