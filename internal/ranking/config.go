package ranking

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

// CalibrationConfig is the JSON structure of the calibration file.
type CalibrationConfig struct {
	Version string  `json:"version"` // config version for future compatibility
	Bonuses Bonuses `json:"bonuses"` // bonus overrides
}

// LoadCalibration loads bonus overrides from a JSON calibration file.
// Partial configurations are merged over defaults; on any read or parse
// error the defaults are returned along with the error so callers can
// degrade gracefully.
func LoadCalibration(filePath string) (*Bonuses, error) {
	if filePath == "" {
		return DefaultBonuses(), nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		slog.Warn("failed to read calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultBonuses(), fmt.Errorf("failed to read calibration file: %w", err)
	}

	var config CalibrationConfig
	if err := json.Unmarshal(data, &config); err != nil {
		slog.Warn("failed to parse calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultBonuses(), fmt.Errorf("failed to parse calibration file: %w", err)
	}

	defaults := DefaultBonuses()
	merged := MergeCalibration(defaults, &config.Bonuses)
	logCalibrationOverrides(defaults, merged)

	return merged, nil
}

// MergeCalibration merges override bonuses over a base table. Only
// non-zero values from the override are applied, which allows partial
// overrides in the calibration file.
func MergeCalibration(base *Bonuses, override *Bonuses) *Bonuses {
	if base == nil {
		return DefaultBonuses()
	}
	if override == nil {
		result := *base
		return &result
	}

	result := *base

	mergeFloat(&result.Match.ExactTitle, override.Match.ExactTitle)
	mergeFloat(&result.Match.TitlePrefix, override.Match.TitlePrefix)
	mergeFloat(&result.Match.WordMatch, override.Match.WordMatch)
	mergeFloat(&result.Match.Substring, override.Match.Substring)

	mergeFloat(&result.Recency.Max, override.Recency.Max)
	mergeInt(&result.Recency.WindowDays, override.Recency.WindowDays)

	mergeFloat(&result.Popularity.PerEvent, override.Popularity.PerEvent)
	mergeFloat(&result.Popularity.EventCap, override.Popularity.EventCap)
	mergeFloat(&result.Popularity.PerFollower, override.Popularity.PerFollower)
	mergeFloat(&result.Popularity.FollowerCap, override.Popularity.FollowerCap)
	mergeFloat(&result.Popularity.PerItem, override.Popularity.PerItem)
	mergeFloat(&result.Popularity.ItemCap, override.Popularity.ItemCap)

	mergeFloat(&result.IntentScale, override.IntentScale)
	mergeFloat(&result.Personalization, override.Personalization)
	mergeInt(&result.OverfetchFactor, override.OverfetchFactor)

	return &result
}

func mergeFloat(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}

func mergeInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

// logCalibrationOverrides logs which bonuses were overridden from defaults.
func logCalibrationOverrides(defaults *Bonuses, loaded *Bonuses) {
	var overrides []string

	check := func(name string, def, got float64) {
		if def != got {
			overrides = append(overrides, fmt.Sprintf("%s: %.2f -> %.2f", name, def, got))
		}
	}
	checkInt := func(name string, def, got int) {
		if def != got {
			overrides = append(overrides, fmt.Sprintf("%s: %d -> %d", name, def, got))
		}
	}

	check("match.exact_title", defaults.Match.ExactTitle, loaded.Match.ExactTitle)
	check("match.title_prefix", defaults.Match.TitlePrefix, loaded.Match.TitlePrefix)
	check("match.word_match", defaults.Match.WordMatch, loaded.Match.WordMatch)
	check("match.substring", defaults.Match.Substring, loaded.Match.Substring)
	check("recency.max", defaults.Recency.Max, loaded.Recency.Max)
	checkInt("recency.window_days", defaults.Recency.WindowDays, loaded.Recency.WindowDays)
	check("popularity.per_event", defaults.Popularity.PerEvent, loaded.Popularity.PerEvent)
	check("popularity.event_cap", defaults.Popularity.EventCap, loaded.Popularity.EventCap)
	check("popularity.per_follower", defaults.Popularity.PerFollower, loaded.Popularity.PerFollower)
	check("popularity.follower_cap", defaults.Popularity.FollowerCap, loaded.Popularity.FollowerCap)
	check("popularity.per_item", defaults.Popularity.PerItem, loaded.Popularity.PerItem)
	check("popularity.item_cap", defaults.Popularity.ItemCap, loaded.Popularity.ItemCap)
	check("intent_scale", defaults.IntentScale, loaded.IntentScale)
	check("personalization", defaults.Personalization, loaded.Personalization)
	checkInt("overfetch_factor", defaults.OverfetchFactor, loaded.OverfetchFactor)

	if len(overrides) > 0 {
		slog.Info("loaded ranking calibration with overrides",
			"overrides", overrides)
	} else {
		slog.Info("loaded ranking calibration (using all defaults)")
	}
}
