package eval

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/meetinsight/service/internal/models"
	"github.com/meetinsight/service/internal/prompt"
)

// SelectExamples picks up to num representative few-shot examples from
// training samples: one per task type, one no-task sample, then multi-task
// samples until the budget runs out. Selection is seeded for repeatable
// runs.
func SelectExamples(samples []Sample, num int, seed int64) []prompt.Example {
	if num <= 0 || len(samples) == 0 {
		return nil
	}
	rng := rand.New(rand.NewSource(seed))

	byLabel := make(map[string][]Sample)
	var noTask, multiTask []Sample
	for _, s := range samples {
		if len(s.Labels) == 0 {
			noTask = append(noTask, s)
			continue
		}
		if len(s.Labels) > 1 {
			multiTask = append(multiTask, s)
		}
		for _, l := range s.Labels {
			byLabel[l] = append(byLabel[l], s)
		}
	}

	var examples []prompt.Example
	selected := make(map[string]struct{})

	pick := func(pool []Sample) (Sample, bool) {
		available := pool[:0:0]
		for _, s := range pool {
			if _, ok := selected[s.FileID]; !ok {
				available = append(available, s)
			}
		}
		if len(available) == 0 {
			return Sample{}, false
		}
		return available[rng.Intn(len(available))], true
	}

	for _, label := range models.TaskLabels {
		if len(examples) >= num {
			break
		}
		s, ok := pick(byLabel[label])
		if !ok {
			continue
		}
		selected[s.FileID] = struct{}{}
		examples = append(examples, prompt.Example{
			Transcript: cleanTranscript(s.Transcript),
			Labels:     s.Labels,
			Reason:     "Representative of: " + label,
		})
	}

	if len(examples) < num {
		if s, ok := pick(noTask); ok {
			selected[s.FileID] = struct{}{}
			examples = append(examples, prompt.Example{
				Transcript: cleanTranscript(s.Transcript),
				Reason:     "No tasks example",
			})
		}
	}

	for len(examples) < num {
		s, ok := pick(multiTask)
		if !ok {
			break
		}
		selected[s.FileID] = struct{}{}
		examples = append(examples, prompt.Example{
			Transcript: cleanTranscript(s.Transcript),
			Labels:     s.Labels,
			Reason:     fmt.Sprintf("Multi-task: %s", strings.Join(s.Labels, ", ")),
		})
	}

	return examples
}

// cleanTranscript drops a leading disclaimer block, keeping everything from
// the first speaker line onward.
func cleanTranscript(transcript string) string {
	if !strings.Contains(transcript, "DISCLAIMER:") {
		return strings.TrimSpace(transcript)
	}

	lines := strings.Split(transcript, "\n")
	for i, line := range lines {
		if strings.Contains(line, "Speaker") || strings.Contains(line, "Advisor") || strings.Contains(line, "Client") {
			return strings.TrimSpace(strings.Join(lines[i:], "\n"))
		}
	}
	return strings.TrimSpace(transcript)
}

// TrainingContext renders the selected examples into the prompt block.
func TrainingContext(examples []prompt.Example) string {
	return prompt.TrainingContext(examples)
}
