package strategy

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/contentplan-backend/internal/platform/envutil"
)

// Settings holds the heuristic knobs of the pipeline. The similarity values
// are product-tunable and have no derivation beyond observed behavior.
type Settings struct {
	// Texts shorter than this are never similarity-tagged.
	MinSimilarityLength int `yaml:"min_similarity_length"`
	// Jaccard score above which a text is considered a near duplicate.
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	// Attempts per missing item in the quantity guarantee pass.
	RetryAttempts int `yaml:"retry_attempts"`
	// Generation batches per plan; each covers a contiguous range of weeks.
	BatchCount int `yaml:"batch_count"`
	// Concurrent model calls during refinement.
	RefineConcurrency int `yaml:"refine_concurrency"`
}

func DefaultSettings() Settings {
	return Settings{
		MinSimilarityLength: 50,
		SimilarityThreshold: 0.8,
		RetryAttempts:       1,
		BatchCount:          WeeksPerPlan,
		RefineConcurrency:   2,
	}
}

// LoadSettings starts from the defaults, applies STRATEGY_SETTINGS_FILE when
// set, then the STRATEGY_* environment overrides.
func LoadSettings() (Settings, error) {
	s := DefaultSettings()
	if path := envutil.String("STRATEGY_SETTINGS_FILE", ""); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return s, fmt.Errorf("read strategy settings: %w", err)
		}
		if err := s.mergeYAML(b); err != nil {
			return s, err
		}
	}
	s.MinSimilarityLength = envutil.Int("STRATEGY_SIMILARITY_MIN_LENGTH", s.MinSimilarityLength)
	s.SimilarityThreshold = envutil.Float("STRATEGY_SIMILARITY_THRESHOLD", s.SimilarityThreshold)
	s.RetryAttempts = envutil.Int("STRATEGY_RETRY_ATTEMPTS", s.RetryAttempts)
	s.BatchCount = envutil.Int("STRATEGY_BATCH_COUNT", s.BatchCount)
	s.RefineConcurrency = envutil.Int("STRATEGY_REFINE_CONCURRENCY", s.RefineConcurrency)
	return s.normalized(), nil
}

func (s *Settings) mergeYAML(b []byte) error {
	if strings.TrimSpace(string(b)) == "" {
		return nil
	}
	// decode over the current values so absent keys keep their defaults
	if err := yaml.Unmarshal(b, s); err != nil {
		return fmt.Errorf("parse strategy settings: %w", err)
	}
	return nil
}

func (s Settings) normalized() Settings {
	d := DefaultSettings()
	if s.MinSimilarityLength < 0 {
		s.MinSimilarityLength = d.MinSimilarityLength
	}
	if s.SimilarityThreshold <= 0 || s.SimilarityThreshold > 1 {
		s.SimilarityThreshold = d.SimilarityThreshold
	}
	if s.RetryAttempts < 0 {
		s.RetryAttempts = 0
	}
	if s.BatchCount < 1 || s.BatchCount > WeeksPerPlan {
		s.BatchCount = d.BatchCount
	}
	if s.RefineConcurrency < 1 {
		s.RefineConcurrency = 1
	}
	return s
}
