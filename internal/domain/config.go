package domain

// BreakConfig describes the micro-break cadence.
type BreakConfig struct {
	IntervalSeconds float64 `json:"interval_seconds" yaml:"interval_seconds"`
	DurationSeconds float64 `json:"duration_seconds" yaml:"duration_seconds"`
}

// WorkBreakConfig describes the work-break cadence and how far a postpone pushes it back.
type WorkBreakConfig struct {
	IntervalSeconds float64 `json:"interval_seconds" yaml:"interval_seconds"`
	DurationSeconds float64 `json:"duration_seconds" yaml:"duration_seconds"`
	PostponeSeconds float64 `json:"postpone_seconds" yaml:"postpone_seconds"`
}

// Config is the complete timer configuration.
// It is a value: callers replace it wholesale, usually through ApplyPatch.
type Config struct {
	Mini                                  BreakConfig     `json:"mini" yaml:"mini"`
	Work                                  WorkBreakConfig `json:"work" yaml:"work"`
	TickIntervalMs                        float64         `json:"tick_interval_ms" yaml:"tick_interval_ms"`
	NaturalBreakContinuationWindowSeconds float64         `json:"natural_break_continuation_window_seconds" yaml:"natural_break_continuation_window_seconds"`
}

// BreakConfigPatch overrides BreakConfig fields that are non-nil.
type BreakConfigPatch struct {
	IntervalSeconds *float64 `json:"interval_seconds,omitempty" yaml:"interval_seconds,omitempty"`
	DurationSeconds *float64 `json:"duration_seconds,omitempty" yaml:"duration_seconds,omitempty"`
}

// WorkBreakConfigPatch overrides WorkBreakConfig fields that are non-nil.
type WorkBreakConfigPatch struct {
	IntervalSeconds *float64 `json:"interval_seconds,omitempty" yaml:"interval_seconds,omitempty"`
	DurationSeconds *float64 `json:"duration_seconds,omitempty" yaml:"duration_seconds,omitempty"`
	PostponeSeconds *float64 `json:"postpone_seconds,omitempty" yaml:"postpone_seconds,omitempty"`
}

// ConfigPatch is a partial Config. Absent (nil) fields keep the base value.
type ConfigPatch struct {
	Mini                                  *BreakConfigPatch     `json:"mini,omitempty" yaml:"mini,omitempty"`
	Work                                  *WorkBreakConfigPatch `json:"work,omitempty" yaml:"work,omitempty"`
	TickIntervalMs                        *float64              `json:"tick_interval_ms,omitempty" yaml:"tick_interval_ms,omitempty"`
	NaturalBreakContinuationWindowSeconds *float64              `json:"natural_break_continuation_window_seconds,omitempty" yaml:"natural_break_continuation_window_seconds,omitempty"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		Mini: BreakConfig{
			IntervalSeconds: 4 * 60,
			DurationSeconds: 13,
		},
		Work: WorkBreakConfig{
			IntervalSeconds: 50 * 60,
			DurationSeconds: 8 * 60,
			PostponeSeconds: 10 * 60,
		},
		TickIntervalMs:                        500,
		NaturalBreakContinuationWindowSeconds: 30,
	}
}

// ApplyPatch returns a new Config with every present patch field overriding base.
func ApplyPatch(base Config, patch ConfigPatch) Config {
	next := base
	if patch.Mini != nil {
		next.Mini.IntervalSeconds = coalesce(patch.Mini.IntervalSeconds, base.Mini.IntervalSeconds)
		next.Mini.DurationSeconds = coalesce(patch.Mini.DurationSeconds, base.Mini.DurationSeconds)
	}
	if patch.Work != nil {
		next.Work.IntervalSeconds = coalesce(patch.Work.IntervalSeconds, base.Work.IntervalSeconds)
		next.Work.DurationSeconds = coalesce(patch.Work.DurationSeconds, base.Work.DurationSeconds)
		next.Work.PostponeSeconds = coalesce(patch.Work.PostponeSeconds, base.Work.PostponeSeconds)
	}
	next.TickIntervalMs = coalesce(patch.TickIntervalMs, base.TickIntervalMs)
	next.NaturalBreakContinuationWindowSeconds = coalesce(
		patch.NaturalBreakContinuationWindowSeconds,
		base.NaturalBreakContinuationWindowSeconds,
	)
	return next
}

// Merge returns the field-wise union of two patches; later wins per field.
func (p ConfigPatch) Merge(later ConfigPatch) ConfigPatch {
	out := ConfigPatch{
		TickIntervalMs:                        pick(later.TickIntervalMs, p.TickIntervalMs),
		NaturalBreakContinuationWindowSeconds: pick(later.NaturalBreakContinuationWindowSeconds, p.NaturalBreakContinuationWindowSeconds),
	}
	if p.Mini != nil || later.Mini != nil {
		var a, b BreakConfigPatch
		if p.Mini != nil {
			a = *p.Mini
		}
		if later.Mini != nil {
			b = *later.Mini
		}
		out.Mini = &BreakConfigPatch{
			IntervalSeconds: pick(b.IntervalSeconds, a.IntervalSeconds),
			DurationSeconds: pick(b.DurationSeconds, a.DurationSeconds),
		}
	}
	if p.Work != nil || later.Work != nil {
		var a, b WorkBreakConfigPatch
		if p.Work != nil {
			a = *p.Work
		}
		if later.Work != nil {
			b = *later.Work
		}
		out.Work = &WorkBreakConfigPatch{
			IntervalSeconds: pick(b.IntervalSeconds, a.IntervalSeconds),
			DurationSeconds: pick(b.DurationSeconds, a.DurationSeconds),
			PostponeSeconds: pick(b.PostponeSeconds, a.PostponeSeconds),
		}
	}
	return out
}

// IsEmpty reports whether the patch carries no overrides.
func (p ConfigPatch) IsEmpty() bool {
	if p.TickIntervalMs != nil || p.NaturalBreakContinuationWindowSeconds != nil {
		return false
	}
	if p.Mini != nil && (p.Mini.IntervalSeconds != nil || p.Mini.DurationSeconds != nil) {
		return false
	}
	if p.Work != nil && (p.Work.IntervalSeconds != nil || p.Work.DurationSeconds != nil || p.Work.PostponeSeconds != nil) {
		return false
	}
	return true
}

// PatchFromConfig builds a patch that sets every field of cfg.
func PatchFromConfig(cfg Config) ConfigPatch {
	return ConfigPatch{
		Mini: &BreakConfigPatch{
			IntervalSeconds: Seconds(cfg.Mini.IntervalSeconds),
			DurationSeconds: Seconds(cfg.Mini.DurationSeconds),
		},
		Work: &WorkBreakConfigPatch{
			IntervalSeconds: Seconds(cfg.Work.IntervalSeconds),
			DurationSeconds: Seconds(cfg.Work.DurationSeconds),
			PostponeSeconds: Seconds(cfg.Work.PostponeSeconds),
		},
		TickIntervalMs:                        Seconds(cfg.TickIntervalMs),
		NaturalBreakContinuationWindowSeconds: Seconds(cfg.NaturalBreakContinuationWindowSeconds),
	}
}

// Seconds returns a pointer to v, for building patches.
func Seconds(v float64) *float64 {
	return &v
}

func coalesce(v *float64, fallback float64) float64 {
	if v != nil {
		return *v
	}
	return fallback
}

func pick(later, earlier *float64) *float64 {
	if later != nil {
		return later
	}
	return earlier
}
