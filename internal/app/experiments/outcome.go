package experiments

import (
	"context"
	"fmt"

	"github.com/PabloGalante/farum-insights/internal/domain"
	"github.com/PabloGalante/farum-insights/internal/observability"
)

const (
	supportUtilizationCap     = 5
	harmfulWellbeingThreshold = -2.0
	negativeImpactThreshold   = -1.0
	elevatedCrisisRisk        = 2
	preventedEffectiveness    = 7
)

// RecordTestResult scores a session against the experiment's metrics and
// stores the result. Any metric under its ethical threshold, or an overall
// wellbeing below -2, cancels the experiment; the result is kept either way.
// It returns false for an unknown experiment.
func (s *Service) RecordTestResult(
	ctx context.Context,
	testID domain.ExperimentID,
	variantID domain.VariantID,
	userID domain.UserID,
	sessionID domain.SessionID,
	session *domain.Session,
) (*domain.TestResult, bool) {
	if session == nil {
		session = &domain.Session{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.tests[testID]
	if !ok {
		return nil, false
	}

	result := domain.TestResult{
		ExperimentID:    testID,
		VariantID:       variantID,
		UserID:          userID,
		SessionID:       sessionID,
		Metrics:         make([]domain.MetricResult, 0, len(exp.WellbeingMetrics)),
		WellbeingImpact: wellbeingImpact(session),
		Timestamp:       s.now(),
	}
	for _, m := range exp.WellbeingMetrics {
		result.Metrics = append(result.Metrics, domain.MetricResult{
			MetricName: m.Name,
			Value:      metricValue(m.Type, session),
		})
	}

	for i, m := range exp.WellbeingMetrics {
		if m.EthicalThreshold != nil && result.Metrics[i].Value < *m.EthicalThreshold {
			s.stopLocked(ctx, testID, fmt.Sprintf("Ethical violation: %s below threshold", m.Name))
		}
	}
	if result.WellbeingImpact.OverallWellbeing < harmfulWellbeingThreshold {
		s.stopLocked(ctx, testID, "Ethical violation: Negative wellbeing impact detected")
	}

	s.results[testID] = append(s.results[testID], result)

	observability.LoggerFromContext(ctx).Info("test result recorded",
		"test_id", testID,
		"variant_id", variantID,
		"session_id", sessionID,
		"overall_wellbeing", result.WellbeingImpact.OverallWellbeing,
	)
	return &result, true
}

// GetTestResults aggregates everything recorded for an experiment.
func (s *Service) GetTestResults(id domain.ExperimentID) (*domain.TestReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.tests[id]
	if !ok {
		return nil, domain.ErrExperimentNotFound
	}

	results := append([]domain.TestResult(nil), s.results[id]...)
	violations := append([]domain.Violation(nil), s.violations[id]...)

	analysis := analyzeWellbeing(results)
	compliance := assessCompliance(len(violations), results)

	return &domain.TestReport{
		Experiment:        exp.Clone(),
		Results:           results,
		WellbeingAnalysis: analysis,
		EthicalCompliance: compliance,
		Variants:          variantBreakdown(exp.Variants, results),
		Violations:        violations,
		Recommendations:   recommendations(analysis, compliance),
	}, nil
}

func wellbeingImpact(session *domain.Session) domain.WellbeingImpact {
	if len(session.EmotionalJourney) < 2 {
		return domain.WellbeingImpact{}
	}

	hope := domain.HopeProgression(session.EmotionalJourney)
	stress := domain.StressReduction(session.EmotionalJourney)
	support := len(session.SupportInteractions)
	crisis := session.CountSeverity(domain.SeverityCrisis)

	return domain.WellbeingImpact{
		HopeProgression:    hope,
		StressReduction:    stress,
		SupportUtilization: support,
		CrisisRisk:         crisis,
		OverallWellbeing:   float64(hope+stress+min(support, supportUtilizationCap)-crisis) / 4,
	}
}

func metricValue(t domain.MetricType, session *domain.Session) float64 {
	switch t {
	case domain.MetricHopeProgression:
		return float64(domain.HopeProgression(session.EmotionalJourney))
	case domain.MetricStressReduction:
		return float64(domain.StressReduction(session.EmotionalJourney))
	case domain.MetricEngagementQuality:
		return averageEngagementDepth(session)
	case domain.MetricSupportUtilization:
		return float64(len(session.SupportInteractions))
	case domain.MetricCrisisPrevention:
		return crisisPrevention(session)
	default:
		return 0
	}
}

func averageEngagementDepth(session *domain.Session) float64 {
	if len(session.EmotionalJourney) == 0 {
		return 0
	}
	total := 0
	for _, jp := range session.EmotionalJourney {
		total += domain.DepthScore(jp.Engagement.InteractionDepth)
	}
	return float64(total) / float64(len(session.EmotionalJourney))
}

// crisisPrevention is the share of crisis indicators whose automatic
// response was rated above 7. No crisis indicators means nothing to prevent.
func crisisPrevention(session *domain.Session) float64 {
	crises, prevented := 0, 0
	for _, si := range session.StressIndicators {
		if si.Severity != domain.SeverityCrisis {
			continue
		}
		crises++
		if si.AutomaticResponse != nil && si.AutomaticResponse.Effectiveness > preventedEffectiveness {
			prevented++
		}
	}
	if crises == 0 {
		return 1
	}
	return float64(prevented) / float64(crises)
}

func analyzeWellbeing(results []domain.TestResult) domain.WellbeingAnalysis {
	if len(results) == 0 {
		return domain.WellbeingAnalysis{
			OverallWellbeingTrend: domain.TrendNeutral,
			SignificantFindings:   []string{},
		}
	}

	var hope, stress, support, crisis, overall float64
	for _, r := range results {
		hope += float64(r.WellbeingImpact.HopeProgression)
		stress += float64(r.WellbeingImpact.StressReduction)
		support += float64(r.WellbeingImpact.SupportUtilization)
		crisis += float64(r.WellbeingImpact.CrisisRisk)
		overall += r.WellbeingImpact.OverallWellbeing
	}
	n := float64(len(results))
	hope, stress, support, crisis, overall = hope/n, stress/n, support/n, crisis/n, overall/n

	trend := domain.TrendNeutral
	switch {
	case overall > 1:
		trend = domain.TrendPositive
	case overall < -1:
		trend = domain.TrendNegative
	}

	findings := []string{}
	if hope > 2 {
		findings = append(findings, "Significant hope progression observed")
	}
	if stress > 2 {
		findings = append(findings, "Significant stress reduction achieved")
	}
	if crisis > 1 {
		findings = append(findings, "Crisis risk elevated - requires attention")
	}

	return domain.WellbeingAnalysis{
		AverageHopeProgression: hope,
		AverageStressReduction: stress,
		SupportUtilizationRate: support,
		AverageCrisisRisk:      crisis,
		CrisisPreventionRate:   max(0, 1-crisis),
		OverallWellbeingTrend:  trend,
		SignificantFindings:    findings,
	}
}

func assessCompliance(violations int, results []domain.TestResult) domain.EthicalCompliance {
	negative, elevated := 0, 0
	for _, r := range results {
		if r.WellbeingImpact.OverallWellbeing < negativeImpactThreshold {
			negative++
		}
		if r.WellbeingImpact.CrisisRisk > elevatedCrisisRisk {
			elevated++
		}
	}

	recs := []string{}
	if violations > 0 {
		recs = append(recs, "Review and address ethical guideline violations")
	}
	if negative > 0 {
		recs = append(recs, "Implement additional wellbeing safeguards")
	}
	if elevated > 0 {
		recs = append(recs, "Enhance crisis detection and intervention systems")
	}

	return domain.EthicalCompliance{
		EthicalViolations:        violations,
		NegativeWellbeingImpacts: negative,
		CrisisRisksElevated:      elevated,
		ComplianceScore:          max(0, 100-float64(violations*20)-float64(negative*5)-float64(elevated*10)),
		Recommendations:          recs,
	}
}

func recommendations(a domain.WellbeingAnalysis, c domain.EthicalCompliance) []string {
	recs := []string{}
	if a.OverallWellbeingTrend == domain.TrendNegative {
		recs = append(recs, "Consider stopping test due to negative wellbeing impact")
	}
	if a.CrisisPreventionRate < 0.8 {
		recs = append(recs, "Improve crisis prevention mechanisms")
	}
	if c.ComplianceScore < 80 {
		recs = append(recs, "Address ethical compliance issues before continuing")
	}
	if a.AverageHopeProgression > 2 {
		recs = append(recs, "Positive hope progression - consider implementing winning variant")
	}
	return recs
}

// variantBreakdown lists configured variants first, in config order, then
// any variant ids that only appear in results.
func variantBreakdown(variants []domain.Variant, results []domain.TestResult) []domain.VariantSummary {
	order := make([]domain.VariantID, 0, len(variants))
	sums := make(map[domain.VariantID]*domain.VariantSummary, len(variants))
	for _, v := range variants {
		order = append(order, v.ID)
		sums[v.ID] = &domain.VariantSummary{VariantID: v.ID}
	}

	for _, r := range results {
		vs, ok := sums[r.VariantID]
		if !ok {
			vs = &domain.VariantSummary{VariantID: r.VariantID}
			sums[r.VariantID] = vs
			order = append(order, r.VariantID)
		}
		vs.Results++
		vs.AverageOverallWellbeing += r.WellbeingImpact.OverallWellbeing
	}

	out := make([]domain.VariantSummary, 0, len(order))
	for _, id := range order {
		vs := sums[id]
		if vs.Results > 0 {
			vs.AverageOverallWellbeing /= float64(vs.Results)
		}
		out = append(out, *vs)
	}
	return out
}
