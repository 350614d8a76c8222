package experiments

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/PabloGalante/farum-insights/internal/domain"
)

var validate = validator.New()

// ValidateConfig checks an experiment config for structural problems
// (ErrInvalidExperiment) and for breaches of the ethical guardrails
// (ErrEthicalGuideline). Start re-runs the same checks.
func ValidateConfig(cfg domain.ExperimentConfig) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidExperiment, err)
	}

	total := 0.0
	for _, v := range cfg.Variants {
		total += v.Weight
	}
	if total <= 0 {
		return fmt.Errorf("%w: variant weights must sum to a positive value", domain.ErrInvalidExperiment)
	}

	seen := make(map[domain.VariantID]struct{}, len(cfg.Variants))
	for _, v := range cfg.Variants {
		if _, dup := seen[v.ID]; dup {
			return fmt.Errorf("%w: duplicate variant id %q", domain.ErrInvalidExperiment, v.ID)
		}
		seen[v.ID] = struct{}{}
	}

	return checkEthics(cfg)
}

func checkEthics(cfg domain.ExperimentConfig) error {
	if !cfg.TargetAudience.ExcludeCrisisUsers {
		return fmt.Errorf("%w: tests must exclude users in crisis", domain.ErrEthicalGuideline)
	}
	for _, m := range cfg.WellbeingMetrics {
		if m.Priority == domain.PriorityPrimary && m.EthicalThreshold == nil {
			return fmt.Errorf("%w: primary metric %s must have ethical threshold", domain.ErrEthicalGuideline, m.Name)
		}
	}
	if cfg.DurationDays > domain.MaxExperimentDays {
		return fmt.Errorf("%w: test duration cannot exceed %d days", domain.ErrEthicalGuideline, domain.MaxExperimentDays)
	}
	return nil
}
