package eval

import (
	"errors"
	"fmt"

	"github.com/meetinsight/service/internal/models"
)

// InvalidLabelError reports a label outside the fixed vocabulary in either
// ground truth or predictions. Scoring stops rather than guessing.
type InvalidLabelError struct {
	Label string
}

func (e *InvalidLabelError) Error() string {
	return fmt.Sprintf("invalid label: %q", e.Label)
}

// IsInvalidLabel reports whether err is an invalid-label error.
func IsInvalidLabel(err error) bool {
	var e *InvalidLabelError
	return errors.As(err, &e)
}

// Weighted penalties: a missed task costs the advisor more than a spurious
// one, so false negatives weigh double.
const (
	fnPenalty = 2.0
	fpPenalty = 1.0
)

// ScoreSample scores one prediction against its ground truth as
// TP / (TP + 2*FN + FP) over the label sets. Both sides empty is a perfect
// match.
func ScoreSample(truth, predicted []string) (float64, error) {
	for _, l := range truth {
		if !models.ValidLabel(l) {
			return 0, &InvalidLabelError{Label: l}
		}
	}
	for _, l := range predicted {
		if !models.ValidLabel(l) {
			return 0, &InvalidLabelError{Label: l}
		}
	}

	truthSet := toSet(truth)
	predSet := toSet(predicted)

	tp, fp, fn := 0, 0, 0
	for l := range predSet {
		if _, ok := truthSet[l]; ok {
			tp++
		} else {
			fp++
		}
	}
	for l := range truthSet {
		if _, ok := predSet[l]; !ok {
			fn++
		}
	}

	if tp+fp+fn == 0 {
		return 1.0, nil
	}
	return float64(tp) / (float64(tp) + fnPenalty*float64(fn) + fpPenalty*float64(fp)), nil
}

// Score averages per-sample scores across the whole run. The slices must
// be parallel; a length mismatch is a programming error, not a data issue.
func Score(truth, predicted [][]string) (float64, error) {
	if len(truth) != len(predicted) {
		return 0, fmt.Errorf("length mismatch: %d truth vs %d predicted", len(truth), len(predicted))
	}
	if len(truth) == 0 {
		return 0, errors.New("no samples to score")
	}

	total := 0.0
	for i := range truth {
		s, err := ScoreSample(truth[i], predicted[i])
		if err != nil {
			return 0, fmt.Errorf("sample %d: %w", i, err)
		}
		total += s
	}
	return total / float64(len(truth)), nil
}

func toSet(labels []string) map[string]struct{} {
	set := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		set[l] = struct{}{}
	}
	return set
}
