package eval

import (
	"context"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/meetinsight/service/internal/llm"
	"github.com/meetinsight/service/internal/models"
	"github.com/meetinsight/service/internal/prompt"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestScoreSample(t *testing.T) {
	a := models.LabelScheduleMeeting
	b := models.LabelPlanContact
	c := models.LabelUpdateKYCAssets

	cases := []struct {
		name  string
		truth []string
		pred  []string
		want  float64
	}{
		{"both empty", nil, nil, 1.0},
		{"missed the only task", []string{a}, nil, 0.0},
		{"spurious prediction", nil, []string{a}, 0.0},
		{"half recalled", []string{a, b}, []string{a}, 1.0 / 3.0},
		{"one hit one miss one extra", []string{a, b}, []string{a, c}, 0.25},
		{"exact match", []string{a, b}, []string{b, a}, 1.0},
		{"duplicate labels score as sets", []string{a}, []string{a, a}, 1.0},
	}
	for _, tc := range cases {
		got, err := ScoreSample(tc.truth, tc.pred)
		if err != nil {
			t.Errorf("%s: %v", tc.name, err)
			continue
		}
		if !almostEqual(got, tc.want) {
			t.Errorf("%s: score = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestScoreSampleInvalidLabel(t *testing.T) {
	_, err := ScoreSample([]string{"not_a_label"}, nil)
	if !IsInvalidLabel(err) {
		t.Errorf("invalid truth label error = %v", err)
	}

	_, err = ScoreSample(nil, []string{"also_not_a_label"})
	if !IsInvalidLabel(err) {
		t.Errorf("invalid predicted label error = %v", err)
	}
}

func TestScoreAggregates(t *testing.T) {
	truth := [][]string{
		{models.LabelScheduleMeeting},
		nil,
	}
	pred := [][]string{
		{models.LabelScheduleMeeting},
		nil,
	}

	score, err := Score(truth, pred)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if !almostEqual(score, 1.0) {
		t.Errorf("score = %v, want 1.0", score)
	}

	if _, err := Score(truth, pred[:1]); err == nil {
		t.Error("length mismatch not rejected")
	}
	if _, err := Score(nil, nil); err == nil {
		t.Error("empty input not rejected")
	}
}

func TestDedupe(t *testing.T) {
	cleaned, removed := Dedupe([][]string{
		{"a", "b", "a", "a"},
		{"c"},
		nil,
	})

	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	if len(cleaned[0]) != 2 || cleaned[0][0] != "a" || cleaned[0][1] != "b" {
		t.Errorf("cleaned[0] = %v", cleaned[0])
	}
	if len(cleaned[1]) != 1 || len(cleaned[2]) != 0 {
		t.Errorf("cleaned = %v", cleaned)
	}
}

func TestLoadSplitMatchesPairs(t *testing.T) {
	dir := t.TempDir()

	write := func(name, content string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("conv1.txt", "Advisor: hello")
	write("conv1.json", `[{"task_type": "schedule_meeting"}]`)
	write("conv2.txt", "orphan transcript")
	write("conv3.json", `[{"task_type": "plan_contact"}]`)
	write("empty.txt", "no tasks here")
	write("empty.json", `[]`)

	samples, err := LoadSplit(dir, testLogger())
	if err != nil {
		t.Fatalf("LoadSplit: %v", err)
	}

	if len(samples) != 2 {
		t.Fatalf("got %d samples, want 2 (unmatched files excluded)", len(samples))
	}
	if samples[0].FileID != "conv1" || samples[1].FileID != "empty" {
		t.Errorf("sample order = %v, %v", samples[0].FileID, samples[1].FileID)
	}
	if len(samples[0].Labels) != 1 || samples[0].Labels[0] != models.LabelScheduleMeeting {
		t.Errorf("conv1 labels = %v", samples[0].Labels)
	}
	if len(samples[1].Labels) != 0 {
		t.Errorf("empty labels = %v", samples[1].Labels)
	}
}

func TestLabelDistribution(t *testing.T) {
	dist := LabelDistribution([]Sample{
		{Labels: []string{models.LabelPlanContact, models.LabelScheduleMeeting}},
		{Labels: []string{models.LabelPlanContact}},
		{},
	})
	if dist[models.LabelPlanContact] != 2 || dist[models.LabelScheduleMeeting] != 1 {
		t.Errorf("distribution = %v", dist)
	}
}

func TestSelectExamplesCoverage(t *testing.T) {
	var samples []Sample
	for _, label := range models.TaskLabels {
		samples = append(samples, Sample{
			FileID:     "s" + label,
			Transcript: "conversation about " + label,
			Labels:     []string{label},
		})
	}
	samples = append(samples,
		Sample{FileID: "notask", Transcript: "small talk"},
		Sample{FileID: "multi", Transcript: "two things", Labels: []string{models.LabelPlanContact, models.LabelUpdateKYCAssets}},
	)

	examples := SelectExamples(samples, 10, 42)
	if len(examples) < len(models.TaskLabels) {
		t.Fatalf("got %d examples, want at least one per label", len(examples))
	}

	hasNoTask := false
	for _, ex := range examples {
		if len(ex.Labels) == 0 {
			hasNoTask = true
		}
	}
	if !hasNoTask {
		t.Error("selection missing a no-task example")
	}

	again := SelectExamples(samples, 10, 42)
	if len(again) != len(examples) {
		t.Error("same seed produced different selection size")
	}
	for i := range examples {
		if examples[i].Transcript != again[i].Transcript {
			t.Error("same seed produced different selection")
			break
		}
	}
}

func TestCleanTranscriptDropsDisclaimer(t *testing.T) {
	raw := "DISCLAIMER: synthetic data\nmore legal text\nAdvisor: hello there\nClient: hi"
	got := cleanTranscript(raw)
	if strings.Contains(got, "DISCLAIMER") {
		t.Errorf("disclaimer survived: %q", got)
	}
	if !strings.HasPrefix(got, "Advisor: hello there") {
		t.Errorf("cleaned = %q", got)
	}
}

func TestGenerateSamplesDeterministic(t *testing.T) {
	a := GenerateSamples(20, 7)
	b := GenerateSamples(20, 7)

	if len(a) != 20 {
		t.Fatalf("got %d samples", len(a))
	}
	for i := range a {
		if a[i].Transcript != b[i].Transcript || len(a[i].Labels) != len(b[i].Labels) {
			t.Fatalf("sample %d differs across same-seed runs", i)
		}
		for _, l := range a[i].Labels {
			if !models.ValidLabel(l) {
				t.Errorf("synthetic sample carries invalid label %q", l)
			}
		}
	}
}

func TestWriteSplitRoundTrip(t *testing.T) {
	dir := t.TempDir()
	samples := GenerateSamples(5, 1)

	if err := WriteSplit(dir, samples); err != nil {
		t.Fatalf("WriteSplit: %v", err)
	}

	loaded, err := LoadSplit(dir, testLogger())
	if err != nil {
		t.Fatalf("LoadSplit: %v", err)
	}
	if len(loaded) != len(samples) {
		t.Fatalf("loaded %d samples, want %d", len(loaded), len(samples))
	}
	for i := range samples {
		if loaded[i].FileID != samples[i].FileID {
			t.Errorf("sample %d id = %q, want %q", i, loaded[i].FileID, samples[i].FileID)
		}
		if len(loaded[i].Labels) != len(samples[i].Labels) {
			t.Errorf("sample %d labels = %v, want %v", i, loaded[i].Labels, samples[i].Labels)
		}
	}
}

// scriptedClient returns canned label arrays keyed by transcript substring.
type scriptedClient struct {
	provider models.ModelType
	answers  map[string]string
	failOn   string
}

func (c *scriptedClient) Complete(_ context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if c.failOn != "" && strings.Contains(req.Prompt, c.failOn) {
		return nil, llm.NewTransientError(c.provider, "scripted failure")
	}
	for key, answer := range c.answers {
		if strings.Contains(req.Prompt, key) {
			return &llm.CompletionResponse{Content: answer, Provider: c.provider}, nil
		}
	}
	return &llm.CompletionResponse{Content: "[]", Provider: c.provider}, nil
}

func (c *scriptedClient) HealthCheck(context.Context) error { return nil }
func (c *scriptedClient) Provider() models.ModelType        { return c.provider }
func (c *scriptedClient) Model() string                     { return "scripted" }
func (c *scriptedClient) Close() error                      { return nil }

func TestRunnerSkipsUnconfiguredBackend(t *testing.T) {
	factory := llm.NewFactory(testLogger())
	factory.SetConfig(models.ModelApertus, &llm.Config{Provider: models.ModelApertus}) // no key

	runner := NewRunner(factory, prompt.NewBuilder(""), testLogger(), false)
	runner.RegisterClient(&scriptedClient{
		provider: models.ModelLocal,
		answers: map[string]string{
			"schedule": `["schedule_meeting"]`,
		},
	})

	samples := []Sample{
		{FileID: "a", Transcript: "please schedule a review", Labels: []string{models.LabelScheduleMeeting}},
		{FileID: "b", Transcript: "nothing actionable", Labels: nil},
	}

	report, err := runner.Run(context.Background(),
		[]models.ModelType{models.ModelApertus, models.ModelLocal}, samples, 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(report.SkippedBackends) != 1 || report.SkippedBackends[0] != string(models.ModelApertus) {
		t.Errorf("SkippedBackends = %v", report.SkippedBackends)
	}
	if len(report.Backends) != 1 {
		t.Fatalf("Backends = %+v, want only the local backend", report.Backends)
	}

	local := report.Backends[0]
	if local.Provider != models.ModelLocal {
		t.Errorf("provider = %q", local.Provider)
	}
	if !almostEqual(local.Score, 1.0) {
		t.Errorf("score = %v, want 1.0 (both samples predicted exactly)", local.Score)
	}
	if local.TotalPredictions != 1 {
		t.Errorf("TotalPredictions = %d, want 1", local.TotalPredictions)
	}
}

func TestRunnerCountsFailedSamplesAsEmpty(t *testing.T) {
	runner := NewRunner(llm.NewFactory(testLogger()), prompt.NewBuilder(""), testLogger(), false)
	runner.RegisterClient(&scriptedClient{
		provider: models.ModelLocal,
		failOn:   "broken",
	})

	samples := []Sample{
		{FileID: "ok", Transcript: "quiet chat", Labels: nil},
		{FileID: "bad", Transcript: "broken sample", Labels: []string{models.LabelPlanContact}},
	}

	report, err := runner.Run(context.Background(), []models.ModelType{models.ModelLocal}, samples, 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	res := report.Backends[0]
	if res.FailedSamples != 1 {
		t.Errorf("FailedSamples = %d, want 1", res.FailedSamples)
	}
	// ok sample scores 1.0 (empty vs empty), bad scores 0.0 (missed label)
	if !almostEqual(res.Score, 0.5) {
		t.Errorf("score = %v, want 0.5", res.Score)
	}
}

func TestRunnerContextCancellation(t *testing.T) {
	runner := NewRunner(llm.NewFactory(testLogger()), prompt.NewBuilder(""), testLogger(), false)
	runner.RegisterClient(&scriptedClient{provider: models.ModelLocal})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.Run(ctx, []models.ModelType{models.ModelLocal},
		[]Sample{{FileID: "a", Transcript: "x"}}, 0)
	if err == nil {
		t.Error("cancelled context did not abort the run")
	}
}
