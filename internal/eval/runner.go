package eval

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"

	"github.com/meetinsight/service/internal/extract"
	"github.com/meetinsight/service/internal/llm"
	"github.com/meetinsight/service/internal/models"
	"github.com/meetinsight/service/internal/prompt"
)

// BackendResult is one backend's evaluation outcome.
type BackendResult struct {
	Provider          models.ModelType `json:"provider"`
	Model             string           `json:"model"`
	Score             float64          `json:"score"`
	Samples           int              `json:"samples"`
	FailedSamples     int              `json:"failed_samples"`
	TotalPredictions  int              `json:"total_predictions"`
	DuplicatesRemoved int              `json:"duplicates_removed"`
	Elapsed           time.Duration    `json:"elapsed_ns"`
}

// Report is the full evaluation outcome across backends.
type Report struct {
	GeneratedAt       time.Time       `json:"generated_at"`
	SampleCount       int             `json:"sample_count"`
	FewShotExamples   int             `json:"few_shot_examples"`
	LabelDistribution map[string]int  `json:"label_distribution"`
	Backends          []BackendResult `json:"backends"`
	SkippedBackends   []string        `json:"skipped_backends,omitempty"`
}

// Runner drives label prediction for each requested backend over a sample
// set and scores the results.
type Runner struct {
	factory  *llm.Factory
	builder  *prompt.Builder
	log      *logrus.Logger
	progress bool

	clients map[models.ModelType]llm.Client
}

// NewRunner builds a runner. Set showProgress for interactive use; batch
// logs stay clean without it.
func NewRunner(factory *llm.Factory, builder *prompt.Builder, log *logrus.Logger, showProgress bool) *Runner {
	return &Runner{
		factory:  factory,
		builder:  builder,
		log:      log,
		progress: showProgress,
		clients:  make(map[models.ModelType]llm.Client),
	}
}

// RegisterClient installs a pre-built client, bypassing the factory.
func (r *Runner) RegisterClient(client llm.Client) {
	r.clients[client.Provider()] = client
}

func (r *Runner) client(provider models.ModelType) (llm.Client, error) {
	if c, ok := r.clients[provider]; ok {
		return c, nil
	}
	return r.factory.CreateClient(provider)
}

// Run evaluates every requested backend over the samples. A backend that
// cannot initialize (missing credentials) is skipped and recorded, never
// fatal; the comparison proceeds with whoever showed up. A failed
// prediction call counts as an empty prediction for scoring and is tallied
// separately.
func (r *Runner) Run(ctx context.Context, backends []models.ModelType, samples []Sample, fewShot int) (*Report, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("no samples to evaluate")
	}

	report := &Report{
		GeneratedAt:       time.Now(),
		SampleCount:       len(samples),
		FewShotExamples:   fewShot,
		LabelDistribution: LabelDistribution(samples),
	}

	truth := make([][]string, len(samples))
	for i, s := range samples {
		truth[i] = s.Labels
	}

	for _, provider := range backends {
		client, err := r.client(provider)
		if err != nil {
			if llm.IsConfiguration(err) || llm.IsUnsupportedModel(err) {
				r.log.WithField("provider", provider).WithError(err).Warn("backend unavailable, skipping")
				report.SkippedBackends = append(report.SkippedBackends, string(provider))
				continue
			}
			return nil, fmt.Errorf("init backend %s: %w", provider, err)
		}

		result, err := r.runBackend(ctx, client, samples, truth)
		if err != nil {
			return nil, err
		}
		report.Backends = append(report.Backends, *result)
	}

	sort.Slice(report.Backends, func(i, j int) bool {
		return report.Backends[i].Score > report.Backends[j].Score
	})
	return report, nil
}

func (r *Runner) runBackend(ctx context.Context, client llm.Client, samples []Sample, truth [][]string) (*BackendResult, error) {
	ex := extract.NewExtractor(client, r.builder, r.log)
	provider := client.Provider()
	start := time.Now()

	var bar *progressbar.ProgressBar
	if r.progress {
		bar = progressbar.Default(int64(len(samples)), string(provider))
	}

	predictions := make([][]string, len(samples))
	failed := 0
	for i, s := range samples {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("evaluation aborted: %w", err)
		}

		labels, err := ex.PredictLabels(ctx, s.Transcript)
		if err != nil {
			r.log.WithFields(logrus.Fields{
				"provider": provider,
				"file_id":  s.FileID,
			}).WithError(err).Warn("prediction failed, counting as empty")
			failed++
			labels = nil
		}
		predictions[i] = labels

		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}

	cleaned, removed := Dedupe(predictions)
	total := 0
	for _, p := range cleaned {
		total += len(p)
	}

	score, err := Score(truth, cleaned)
	if err != nil {
		return nil, fmt.Errorf("score backend %s: %w", provider, err)
	}

	return &BackendResult{
		Provider:          provider,
		Model:             client.Model(),
		Score:             score,
		Samples:           len(samples),
		FailedSamples:     failed,
		TotalPredictions:  total,
		DuplicatesRemoved: removed,
		Elapsed:           time.Since(start),
	}, nil
}

// WriteJSON writes the report as indented JSON.
func (rep *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// WriteText writes a human-readable summary table.
func (rep *Report) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "Evaluation report (%s)\n", rep.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Samples: %d  Few-shot examples: %d\n\n", rep.SampleCount, rep.FewShotExamples)

	fmt.Fprintf(w, "%-16s %-20s %8s %8s %8s %8s\n", "BACKEND", "MODEL", "SCORE", "PREDS", "DUPS", "FAILED")
	for _, b := range rep.Backends {
		fmt.Fprintf(w, "%-16s %-20s %8.4f %8d %8d %8d\n",
			b.Provider, b.Model, b.Score, b.TotalPredictions, b.DuplicatesRemoved, b.FailedSamples)
	}

	if len(rep.SkippedBackends) > 0 {
		fmt.Fprintf(w, "\nSkipped (not configured): %v\n", rep.SkippedBackends)
	}

	if len(rep.LabelDistribution) > 0 {
		fmt.Fprintf(w, "\nGround-truth label distribution:\n")
		labels := make([]string, 0, len(rep.LabelDistribution))
		for l := range rep.LabelDistribution {
			labels = append(labels, l)
		}
		sort.Strings(labels)
		for _, l := range labels {
			fmt.Fprintf(w, "  %-42s %d\n", l, rep.LabelDistribution[l])
		}
	}
	return nil
}
