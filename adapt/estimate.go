package adapt

import (
	"context"
	"math"

	"github.com/goliatone/go-broadcast/core"
)

// defaultEstimate is the fallback performance estimate used when a platform
// exposes no analyzer or the analyzer call fails.
func defaultEstimate() core.PerformanceEstimate {
	return core.PerformanceEstimate{
		Views:          500,
		Likes:          25,
		Shares:         8,
		Comments:       4,
		EngagementRate: 0.074,
		Confidence:     defaultConfidence,
	}
}

// estimateFromAnalysis derives expected interaction counts from an analyzer's
// reach and engagement prediction.
func estimateFromAnalysis(analysis core.ContentAnalysis) core.PerformanceEstimate {
	reach := analysis.EstimatedReach
	if reach < 0 {
		reach = 0
	}
	rate := analysis.EngagementPrediction
	if rate < 0 {
		rate = 0
	}
	confidence := analysis.Confidence
	if confidence <= 0 || confidence > 1 {
		confidence = defaultConfidence
	}

	interactions := float64(reach) * rate
	return core.PerformanceEstimate{
		Views:          reach,
		Likes:          int64(math.Round(interactions * 0.6)),
		Shares:         int64(math.Round(interactions * 0.25)),
		Comments:       int64(math.Round(interactions * 0.15)),
		EngagementRate: rate,
		Confidence:     confidence,
	}
}

func (e *Engine) estimatePerformance(ctx context.Context, platform string, text string) core.PerformanceEstimate {
	analyzer := e.analyzerFor(platform)
	if analyzer == nil {
		return defaultEstimate()
	}
	analysis, err := analyzer.AnalyzeContent(ctx, text)
	if err != nil {
		e.logger.Debug("content analyzer failed, using default estimate",
			"platform", platform, "error", err.Error())
		return defaultEstimate()
	}
	return estimateFromAnalysis(analysis)
}

func (e *Engine) analyzerFor(platform string) core.ContentAnalyzer {
	if e == nil || e.registry == nil {
		return nil
	}
	provider, ok := e.registry.Get(platform)
	if !ok {
		return nil
	}
	analyzer, ok := provider.(core.ContentAnalyzer)
	if !ok {
		return nil
	}
	return analyzer
}
