// Package extract turns meeting transcripts into structured tasks, client
// requests, sentiment scores, and task-type labels using a model backend.
package extract

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/meetinsight/service/internal/llm"
	"github.com/meetinsight/service/internal/models"
	"github.com/meetinsight/service/internal/parser"
	"github.com/meetinsight/service/internal/prompt"
)

// Per-backend confidence assigned to successful extractions. These are
// fixed operational estimates, not calibrated probabilities.
var backendConfidence = map[models.ModelType]float64{
	models.ModelApertus:     0.85,
	models.ModelAzureOpenAI: 0.80,
	models.ModelHuggingFace: 0.75,
	models.ModelLocal:       0.75,
}

const (
	fallbackConfidence = 0.6
	maxTokensTasks     = 1024
	maxTokensLabels    = 256
	maxTokensSentiment = 16
)

// Extractor runs every extraction kind against one model backend.
type Extractor struct {
	client  llm.Client
	builder *prompt.Builder
	log     *logrus.Logger
}

func NewExtractor(client llm.Client, builder *prompt.Builder, log *logrus.Logger) *Extractor {
	if builder == nil {
		builder = prompt.NewBuilder("")
	}
	return &Extractor{client: client, builder: builder, log: log}
}

func (e *Extractor) Provider() models.ModelType {
	return e.client.Provider()
}

func (e *Extractor) confidence() float64 {
	if c, ok := backendConfidence[e.client.Provider()]; ok {
		return c
	}
	return fallbackConfidence
}

// ExtractTasks pulls action items out of a transcript. On a failed call or
// unparseable output the Apertus backend degrades to a single generic
// follow-up task; every other backend returns no tasks.
func (e *Extractor) ExtractTasks(ctx context.Context, text, language string) ([]models.ExtractedTask, error) {
	resp, err := e.client.Complete(ctx, &llm.CompletionRequest{
		SystemPrompt: prompt.TaskSystemPrompt(),
		Prompt:       prompt.TaskUserPrompt(text),
		MaxTokens:    maxTokensTasks,
	})
	if err != nil {
		return e.taskFallback(text, language), err
	}

	raw, err := parser.Tasks(resp.Content)
	if err != nil {
		e.log.WithFields(logrus.Fields{
			"provider": e.Provider(),
			"error":    err,
		}).Warn("task extraction output unparseable")
		return e.taskFallback(text, language), err
	}

	provider := e.Provider()
	tasks := make([]models.ExtractedTask, 0, len(raw))
	for _, rt := range raw {
		title := strings.TrimSpace(rt.Title)
		if title == "" {
			title = "Untitled Task"
		}
		assigned := strings.TrimSpace(rt.AssignedTo)
		if assigned == "" {
			assigned = models.UnassignedOwner
		}

		tasks = append(tasks, models.ExtractedTask{
			ID:          models.NewEntityID(),
			Title:       title,
			Description: rt.Description,
			AssignedTo:  assigned,
			Priority:    models.ParsePriority(rt.Priority),
			DueDate:     parseDueDate(rt.DueDate),
			ExtractedBy: provider,
			Confidence:  e.confidence(),
			Metadata: map[string]any{
				"language":          language,
				"extraction_method": string(provider) + "_direct",
			},
		})
	}
	return tasks, nil
}

// taskFallback is the degraded result for backends that promise one. Only
// Apertus does; the generic follow-up keeps its pipeline producing output
// for the downstream advisor workflow.
func (e *Extractor) taskFallback(text, language string) []models.ExtractedTask {
	if e.Provider() != models.ModelApertus {
		return nil
	}

	snippet := text
	if len(snippet) > 200 {
		snippet = snippet[:200]
	}
	return []models.ExtractedTask{{
		ID:          models.NewEntityID(),
		Title:       "Follow up on meeting discussion",
		Description: "Action item extracted from: " + snippet + "...",
		AssignedTo:  models.UnassignedOwner,
		Priority:    models.PriorityMedium,
		ExtractedBy: models.ModelApertus,
		Confidence:  fallbackConfidence,
		Metadata: map[string]any{
			"language":          language,
			"extraction_method": "fallback",
		},
	}}
}

// ExtractClientRequests pulls client requests and inquiries out of a
// transcript. Failures yield an empty list for every backend.
func (e *Extractor) ExtractClientRequests(ctx context.Context, text, language string) ([]models.ExtractedClientRequest, error) {
	resp, err := e.client.Complete(ctx, &llm.CompletionRequest{
		SystemPrompt: prompt.RequestSystemPrompt(),
		Prompt:       prompt.RequestUserPrompt(text),
		MaxTokens:    maxTokensTasks,
	})
	if err != nil {
		return nil, err
	}

	raw, err := parser.Requests(resp.Content)
	if err != nil {
		e.log.WithFields(logrus.Fields{
			"provider": e.Provider(),
			"error":    err,
		}).Warn("request extraction output unparseable")
		return nil, err
	}

	provider := e.Provider()
	requests := make([]models.ExtractedClientRequest, 0, len(raw))
	for _, rr := range raw {
		reqType := strings.TrimSpace(rr.Type)
		if reqType == "" {
			reqType = "information_request"
		}
		urgency := string(models.ParsePriority(rr.Urgency))

		requests = append(requests, models.ExtractedClientRequest{
			ID:           models.NewEntityID(),
			RequestType:  reqType,
			Description:  rr.Description,
			Urgency:      urgency,
			OriginalText: rr.OriginalText,
			ExtractedBy:  provider,
			Confidence:   e.confidence(),
			Metadata: map[string]any{
				"language":          language,
				"extraction_method": string(provider) + "_direct",
			},
		})
	}
	return requests, nil
}

// ExtractSentiment scores a transcript in [-1, 1]. Unparseable output
// degrades to neutral; a failed call surfaces the error.
func (e *Extractor) ExtractSentiment(ctx context.Context, text string) (float64, error) {
	resp, err := e.client.Complete(ctx, &llm.CompletionRequest{
		SystemPrompt: prompt.SentimentSystemPrompt(),
		Prompt:       prompt.SentimentUserPrompt(text),
		MaxTokens:    maxTokensSentiment,
	})
	if err != nil {
		return 0, err
	}

	score, err := parser.Sentiment(resp.Content)
	if err != nil {
		e.log.WithField("provider", e.Provider()).Warn("sentiment output unparseable, treating as neutral")
		return 0, nil
	}
	return score, nil
}

// PredictLabels maps a transcript onto the fixed task-type vocabulary.
// Out-of-vocabulary labels in the model output are dropped with a warning;
// the vocabulary is closed and hallucinated labels carry no signal.
func (e *Extractor) PredictLabels(ctx context.Context, text string) ([]string, error) {
	resp, err := e.client.Complete(ctx, &llm.CompletionRequest{
		SystemPrompt: e.builder.SystemPrompt(),
		Prompt:       e.builder.UserPrompt(text),
		MaxTokens:    maxTokensLabels,
	})
	if err != nil {
		return nil, err
	}

	labels, err := parser.Labels(resp.Content)
	if err != nil {
		return nil, err
	}

	valid := labels[:0]
	for _, l := range labels {
		if models.ValidLabel(l) {
			valid = append(valid, l)
		} else {
			e.log.WithFields(logrus.Fields{
				"provider": e.Provider(),
				"label":    l,
			}).Warn("dropping out-of-vocabulary label")
		}
	}
	return valid, nil
}

func parseDueDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") || strings.EqualFold(s, "none") {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02", "2006/01/02", "January 2, 2006", "Jan 2, 2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
