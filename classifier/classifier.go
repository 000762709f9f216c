// Package classifier decides whether a scraped listing is a genuine device-repair
// business. The AI capability is tried first; any failure degrades to a
// deterministic keyword classifier so a Classification is always produced.
package classifier

import (
	"context"
	"errors"
	"fmt"

	"repairer-discovery/models"
	"repairer-discovery/utils"
)

// ErrAIUnavailable marks a classification that skipped the AI path because no
// capability is configured.
var ErrAIUnavailable = errors.New("AI capability unavailable")

// Result is the outcome of classifying one listing. Degraded is non-nil when
// the AI path was attempted and failed, and carries the cause.
type Result struct {
	Classification models.Classification
	Degraded       error
}

// UsedAI reports whether the verdict came from the AI capability.
func (r Result) UsedAI() bool {
	return r.Classification.Method == models.MethodAI
}

// Classifier classifies listings one at a time, pacing AI calls with a Throttle.
type Classifier struct {
	ai       Capability
	throttle *utils.Throttle
	logger   *utils.Logger
}

// New creates a Classifier. ai may be nil, in which case only the keyword
// fallback runs.
func New(ai Capability, throttle *utils.Throttle, logger *utils.Logger) *Classifier {
	if throttle == nil {
		throttle = utils.NewThrottle(0)
	}
	return &Classifier{ai: ai, throttle: throttle, logger: logger}
}

// Available reports whether an AI capability is configured.
func (c *Classifier) Available() bool {
	return c.ai != nil
}

// Classify produces a Classification for l. When useAI is false or no
// capability is configured the keyword fallback runs directly. AI calls wait
// on the throttle first and are not cancelled once started.
func (c *Classifier) Classify(ctx context.Context, l *models.RawListing, useAI bool) Result {
	var res Result
	if useAI && c.ai != nil {
		verdict, err := c.classifyWithAI(ctx, l)
		if err == nil {
			res.Classification = verdict
		} else {
			c.logger.Warn("[classifier] AI classification failed for %q, using keyword fallback: %v", l.Name, err)
			res.Degraded = err
			res.Classification = fallbackClassify(l.Name, l.Description, "keyword fallback after AI failure")
		}
	} else {
		res.Classification = fallbackClassify(l.Name, l.Description, "keyword classification")
	}

	res.Classification.Confidence = clamp(res.Classification.Confidence, 0, 1)
	res.Classification.QualityScore = QualityScore(l, res.Classification.Confidence)
	return res
}

// Fallback classifies l with the keyword path only, recording cause as the
// degradation reason. The orchestrator uses it for listings a batch left
// without a result.
func (c *Classifier) Fallback(l *models.RawListing, cause error) Result {
	cl := fallbackClassify(l.Name, l.Description, "keyword fallback after classification error")
	cl.QualityScore = QualityScore(l, cl.Confidence)
	return Result{Classification: cl, Degraded: cause}
}

func (c *Classifier) classifyWithAI(ctx context.Context, l *models.RawListing) (cl models.Classification, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("AI capability panicked: %v", r)
		}
	}()

	if err := c.throttle.Wait(ctx); err != nil {
		return models.Classification{}, fmt.Errorf("waiting for rate limit: %w", err)
	}
	text, err := c.ai.Classify(context.WithoutCancel(ctx), l.Name, l.FullAddress(), l.Description)
	if err != nil {
		return models.Classification{}, fmt.Errorf("AI call failed: %w", err)
	}
	cl, err = parseVerdict(text)
	if err != nil {
		return models.Classification{}, fmt.Errorf("AI response unusable: %w", err)
	}
	return cl, nil
}

// ClassifyBatch classifies listings one at a time. The batch stops between
// items once ctx is done and returns the results gathered so far.
func (c *Classifier) ClassifyBatch(ctx context.Context, listings []*models.RawListing, useAI bool) ([]Result, error) {
	if useAI && c.ai == nil {
		c.logger.Info("[classifier] %v, classifying %d listings by keywords", ErrAIUnavailable, len(listings))
	} else if useAI {
		c.logger.Info("[classifier] Classifying %d listings, one AI call every %v", len(listings), c.throttle.Interval())
	}

	results := make([]Result, 0, len(listings))
	for i, l := range listings {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		c.logger.Debug("[classifier] Classifying %d/%d: %s", i+1, len(listings), l.Name)
		results = append(results, c.Classify(ctx, l, useAI))
	}
	return results, nil
}
