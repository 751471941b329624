package engine

// Config carries every tunable threshold of the adaptive engine. Values are
// illustrative defaults; behavior must stay correct for the policy regardless
// of the concrete numbers, so nothing below is treated as a constant.
type Config struct {
	// DifficultyController
	WindowSize        int     `json:"window_size"`
	IncreaseThreshold float64 `json:"increase_threshold"`
	DecreaseThreshold float64 `json:"decrease_threshold"`

	// ResponseEvaluator
	EditDistanceTolerance int     `json:"edit_distance_tolerance"`
	TimeoutMs             int     `json:"timeout_ms"`
	CorrectnessWeight     float64 `json:"correctness_weight"`
	ConfidenceWeight      float64 `json:"confidence_weight"`
	SpeedWeight           float64 `json:"speed_weight"`

	// DifficultyDetector
	MinSampleSize       int     `json:"min_sample_size"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
	ModerateThreshold   float64 `json:"moderate_threshold"`
	SevereThreshold     float64 `json:"severe_threshold"`
	// SlowFactor is how far above the expected time a response must land to
	// count as slow (1.4 = 40% over baseline)
	SlowFactor float64 `json:"slow_factor"`

	// RecommendationGenerator
	MaxRecommendations int `json:"max_recommendations"`

	// Session orchestration
	QuestionBudget int `json:"question_budget"`
}

func DefaultConfig() Config {
	return Config{
		WindowSize:        3,
		IncreaseThreshold: 0.8,
		DecreaseThreshold: 0.4,

		EditDistanceTolerance: 2,
		TimeoutMs:             60000,
		CorrectnessWeight:     0.6,
		ConfidenceWeight:      0.2,
		SpeedWeight:           0.2,

		MinSampleSize:       5,
		ConfidenceThreshold: 0.6,
		ModerateThreshold:   0.75,
		SevereThreshold:     0.9,
		SlowFactor:          1.4,

		MaxRecommendations: 5,

		QuestionBudget: 10,
	}
}
