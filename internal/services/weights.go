package services

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/confabhq/confab-backend/internal/platform/logger"
	"github.com/confabhq/confab-backend/internal/types"
)

// Weights are the per-category multipliers used when fusing similarity
// signals into a composite score. They intentionally do not need to sum to 1;
// composite scores are only compared against each other.
type Weights struct {
	Demographics float64 `yaml:"demographics"`
	Interests    float64 `yaml:"interests"`
	Skills       float64 `yaml:"skills"`
}

func DefaultWeights() Weights {
	return Weights{Demographics: 0.20, Interests: 0.60, Skills: 0.10}
}

func (w Weights) For(category types.SimilarityCategory) float64 {
	switch category {
	case types.CategoryDemographics:
		return w.Demographics
	case types.CategoryInterests:
		return w.Interests
	case types.CategorySkills:
		return w.Skills
	default:
		return 0
	}
}

func (w Weights) valid() bool {
	if w.Demographics < 0 || w.Interests < 0 || w.Skills < 0 {
		return false
	}
	return w.Demographics+w.Interests+w.Skills > 0
}

// LoadWeights reads RECOMMENDATION_WEIGHTS_FILE when set. Missing files and
// malformed or non-positive weights fall back to the defaults with a warning
// so a bad config never takes recommendations down.
func LoadWeights(log *logger.Logger) Weights {
	path := strings.TrimSpace(os.Getenv("RECOMMENDATION_WEIGHTS_FILE"))
	if path == "" {
		return DefaultWeights()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		log.Warn("Falling back to default recommendation weights", "path", path, "error", err)
		return DefaultWeights()
	}

	w := DefaultWeights()
	if err := yaml.Unmarshal(raw, &w); err != nil {
		log.Warn("Falling back to default recommendation weights", "path", path, "error", err)
		return DefaultWeights()
	}
	if !w.valid() {
		log.Warn("Ignoring non-positive recommendation weights", "path", path)
		return DefaultWeights()
	}
	log.Info("Loaded recommendation weights", "path", path,
		"demographics", w.Demographics, "interests", w.Interests, "skills", w.Skills)
	return w
}
