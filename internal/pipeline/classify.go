package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"docsort/internal/classify"
	"docsort/internal/docstore"
	"docsort/internal/jobqueue"
	"docsort/internal/logging"
	"docsort/internal/rules"
	"docsort/internal/services"
	"docsort/internal/stage"
	"docsort/internal/textutil"
)

// Classify decides a document's category. Deterministic rules run first and
// win with full confidence; otherwise the model classifier is asked. The
// confidence threshold and the auto-approve switch then route the document
// to approved or to manual review.
type Classify struct {
	deps Deps
}

// NewClassify constructs the classify stage handler.
func NewClassify(deps Deps) *Classify {
	return &Classify{deps: deps}
}

type verdict struct {
	Category          string
	SuggestedFilename string
	TargetPath        string
	Confidence        float64
	Source            string
	Reason            string
	MatchedRule       string
	Trace             string
}

// Execute classifies one document and routes it by confidence.
func (c *Classify) Execute(ctx context.Context, job *jobqueue.Job, doc *docstore.Document) error {
	if doc.Status != docstore.StatusAnalyzing {
		return services.Wrap(services.ErrValidation, "classify", "check status",
			"document is not under analysis", nil)
	}
	logger := logging.WithContext(ctx, c.deps.logger())

	var text string
	if doc.TextPath != "" {
		if data, err := c.deps.Layout.ReadStaging(doc.TextPath); err == nil {
			text = string(data)
		}
	}

	ruleSet, err := c.deps.Docs.ActiveRules(ctx)
	if err != nil {
		return services.Wrap(services.ErrTransient, "classify", "load rules",
			"could not load classification rules", err)
	}
	match, err := rules.FirstMatch(ruleSet, rules.Input{
		Filename:  doc.OriginalName,
		MimeType:  doc.MimeType,
		SizeBytes: doc.SizeBytes,
		Text:      text,
	})
	if err != nil {
		return err
	}

	var result verdict
	switch {
	case match != nil:
		trace, _ := json.Marshal(map[string]string{
			"source": docstore.SourceRule,
			"rule":   match.Rule.Name,
		})
		result = verdict{
			Category:          match.Actions.Category,
			SuggestedFilename: match.Actions.SuggestedFilename,
			TargetPath:        match.Actions.TargetPath,
			Confidence:        1.0,
			Source:            docstore.SourceRule,
			Reason:            fmt.Sprintf("matched rule %q", match.Rule.Name),
			MatchedRule:       match.Rule.Name,
			Trace:             string(trace),
		}
	default:
		modelVerdict, err := c.deps.Classifier.Classify(ctx, doc.OriginalName, text)
		if errors.Is(err, classify.ErrDisabled) {
			return c.sendToReview(ctx, doc, "no rule matched and no classifier is configured")
		}
		if err != nil {
			return services.Wrap(services.ErrExternalTool, "classify", "model classification",
				"classifier request failed", err)
		}
		result = verdict{
			Category:          modelVerdict.Category,
			SuggestedFilename: modelVerdict.SuggestedFilename,
			TargetPath:        modelVerdict.TargetPath,
			Confidence:        modelVerdict.Confidence,
			Source:            docstore.SourceModel,
			Reason:            modelVerdict.Reason,
			Trace:             modelVerdict.Raw,
		}
	}

	confidence := result.Confidence
	doc.Category = textutil.SanitizeToken(result.Category)
	doc.SuggestedFilename = suggestedFilename(result.SuggestedFilename, doc.OriginalName)
	doc.TargetPath = cleanTargetPath(result.TargetPath, doc.Category)
	doc.Confidence = &confidence
	doc.ClassifierSource = result.Source
	doc.MatchedRule = result.MatchedRule
	doc.TraceJSON = result.Trace
	if err := c.deps.Docs.Update(ctx, doc); err != nil {
		return services.Wrap(services.ErrTransient, "classify", "persist verdict",
			"could not store classification", err)
	}

	detail, _ := json.Marshal(map[string]any{
		"category":   doc.Category,
		"confidence": confidence,
		"source":     result.Source,
		"reason":     result.Reason,
	})

	if doc.OCRNeeded {
		return c.sendToReview(ctx, doc, "text extraction incomplete, OCR required")
	}
	threshold := c.deps.Cfg.Classifier.ConfidenceThreshold
	if confidence < threshold {
		return c.sendToReview(ctx, doc,
			fmt.Sprintf("confidence %.2f below threshold %.2f", confidence, threshold))
	}

	doc, err = c.deps.Docs.Transition(ctx, docstore.TransitionRequest{
		DocumentID: doc.ID,
		From:       docstore.StatusAnalyzing,
		To:         docstore.StatusAnalyzed,
		Actor:      docstore.ActorPipeline,
		EventType:  docstore.EventClassified,
		DetailJSON: string(detail),
	})
	if err != nil {
		return services.Wrap(services.ErrConflict, "classify", "finish analysis",
			"document changed state during classification", err)
	}
	logger.Info("document classified",
		logging.Int64(logging.FieldDocumentID, doc.ID),
		logging.String("category", doc.Category),
		logging.Float64("confidence", confidence),
		logging.String("source", result.Source),
	)

	if !c.deps.Cfg.Classifier.AutoApprove {
		return nil
	}
	doc, err = c.deps.Docs.Transition(ctx, docstore.TransitionRequest{
		DocumentID: doc.ID,
		From:       docstore.StatusAnalyzed,
		To:         docstore.StatusApproved,
		Actor:      docstore.ActorSystem,
		EventType:  docstore.EventApproved,
		DetailJSON: `{"mode":"auto"}`,
	})
	if err != nil {
		return services.Wrap(services.ErrConflict, "classify", "auto approve",
			"document changed state before auto-approval", err)
	}
	doc.ApprovedBy = docstore.ActorSystem
	if err := c.deps.Docs.Update(ctx, doc); err != nil {
		return services.Wrap(services.ErrTransient, "classify", "record approver",
			"could not record auto-approval", err)
	}
	return nil
}

func (c *Classify) sendToReview(ctx context.Context, doc *docstore.Document, reason string) error {
	// Analysis finished even though the outcome needs a human, so the
	// analyzed timestamp is stamped on this route too.
	_, err := c.deps.Docs.Transition(ctx, docstore.TransitionRequest{
		DocumentID:   doc.ID,
		From:         docstore.StatusAnalyzing,
		To:           docstore.StatusNeedsReview,
		Actor:        docstore.ActorPipeline,
		EventType:    docstore.EventClassified,
		ReviewReason: reason,
		MarkAnalyzed: true,
	})
	if err != nil {
		return services.Wrap(services.ErrConflict, "classify", "send to review",
			"document changed state during classification", err)
	}
	logging.WithContext(ctx, c.deps.logger()).Info("document sent to review",
		logging.Int64(logging.FieldDocumentID, doc.ID),
		logging.String("reason", reason),
	)
	return nil
}

// HealthCheck reports readiness of the classify stage.
func (c *Classify) HealthCheck(ctx context.Context) stage.Health {
	if err := c.deps.Classifier.Ping(ctx); err != nil {
		if errors.Is(err, classify.ErrDisabled) {
			// Rules still work without a model; documents without a rule
			// match fall back to manual review.
			return stage.Healthy("classify")
		}
		return stage.Unhealthy("classify", err.Error())
	}
	return stage.Healthy("classify")
}

func suggestedFilename(suggested, original string) string {
	cleaned := textutil.SanitizeFileName(suggested)
	if cleaned == "" {
		cleaned = textutil.SanitizeFileName(original)
	}
	return cleaned
}

// cleanTargetPath normalizes a relative target directory, falling back to
// the category when the classifier offered none or tried to escape.
func cleanTargetPath(target, category string) string {
	target = strings.Trim(strings.TrimSpace(target), "/")
	if target == "" {
		return category
	}
	cleaned := path.Clean(target)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return category
	}
	return cleaned
}
