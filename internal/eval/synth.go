package eval

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/meetinsight/service/internal/models"
)

// Phrases an advisor would note for each task type; used to make synthetic
// transcripts that actually mention the labeled work.
var labelPhrases = map[string]string{
	models.LabelPlanContact:         "I will reach out again once the documents arrive.",
	models.LabelScheduleMeeting:     "Let's schedule a meeting next week to go over the portfolio.",
	models.LabelUpdateContactInfo:   "Please update my phone number, the new one is %s.",
	models.LabelUpdatePostalAddress: "I moved recently, my new mailing address is %s.",
	models.LabelUpdateKYCActivity:   "My employment situation changed, I now work as a %s.",
	models.LabelUpdateKYCOrigin:     "The inheritance from my family is the origin of these new assets.",
	models.LabelUpdateKYCPurpose:    "The purpose of this account is now mainly retirement savings.",
	models.LabelUpdateKYCAssets:     "My total assets have grown to about %d after the property sale.",
}

// GenerateSamples produces n synthetic labeled transcripts, seeded for
// reproducibility. Roughly one in five samples carries no task at all.
func GenerateSamples(n int, seed int64) []Sample {
	faker := gofakeit.New(seed)

	samples := make([]Sample, 0, n)
	for i := 0; i < n; i++ {
		advisor := faker.Name()
		client := faker.Name()

		var lines []string
		lines = append(lines,
			fmt.Sprintf("Advisor (%s): Good morning %s, thanks for coming in today.", advisor, client),
			fmt.Sprintf("Client (%s): %s", client, faker.Sentence(12)),
		)

		var labels []string
		if faker.Number(1, 5) > 1 {
			count := faker.Number(1, 3)
			used := make(map[string]struct{})
			for len(labels) < count {
				label := models.TaskLabels[faker.Number(0, len(models.TaskLabels)-1)]
				if _, ok := used[label]; ok {
					continue
				}
				used[label] = struct{}{}
				labels = append(labels, label)
				lines = append(lines, fmt.Sprintf("Client (%s): %s", client, phraseFor(faker, label)))
			}
		} else {
			lines = append(lines, fmt.Sprintf("Client (%s): %s", client, faker.Sentence(10)))
		}

		lines = append(lines, fmt.Sprintf("Advisor (%s): Understood, I will take care of that.", advisor))

		samples = append(samples, Sample{
			FileID:     fmt.Sprintf("synth_%04d", i),
			Transcript: joinLines(lines),
			Labels:     labels,
		})
	}
	return samples
}

func phraseFor(faker *gofakeit.Faker, label string) string {
	tpl := labelPhrases[label]
	switch label {
	case models.LabelUpdateContactInfo:
		return fmt.Sprintf(tpl, faker.Phone())
	case models.LabelUpdatePostalAddress:
		addr := faker.Address()
		return fmt.Sprintf(tpl, addr.Street+", "+addr.City)
	case models.LabelUpdateKYCActivity:
		return fmt.Sprintf(tpl, faker.JobTitle())
	case models.LabelUpdateKYCAssets:
		return fmt.Sprintf(tpl, faker.Number(100_000, 5_000_000))
	default:
		return tpl
	}
}

func joinLines(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}

// WriteSplit materializes samples as the paired <id>.txt / <id>.json files
// the dataset loader reads, so synthetic data goes through the same path
// as real data.
func WriteSplit(dir string, samples []Sample) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create split dir: %w", err)
	}

	for _, s := range samples {
		txtPath := filepath.Join(dir, s.FileID+".txt")
		if err := os.WriteFile(txtPath, []byte(s.Transcript), 0o644); err != nil {
			return fmt.Errorf("write transcript %s: %w", s.FileID, err)
		}

		entries := make([]groundTruthEntry, len(s.Labels))
		for i, l := range s.Labels {
			entries[i] = groundTruthEntry{TaskType: l}
		}
		payload, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal ground truth %s: %w", s.FileID, err)
		}
		jsonPath := filepath.Join(dir, s.FileID+".json")
		if err := os.WriteFile(jsonPath, payload, 0o644); err != nil {
			return fmt.Errorf("write ground truth %s: %w", s.FileID, err)
		}
	}
	return nil
}
