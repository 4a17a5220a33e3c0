package eval

// Dedupe removes repeated labels within each prediction list, preserving
// first-seen order, and reports how many duplicates were dropped. Models
// repeating a label inflate neither the score nor the prediction count.
func Dedupe(predictions [][]string) ([][]string, int) {
	cleaned := make([][]string, len(predictions))
	removed := 0

	for i, preds := range predictions {
		seen := make(map[string]struct{}, len(preds))
		out := make([]string, 0, len(preds))
		for _, p := range preds {
			if _, ok := seen[p]; ok {
				removed++
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
		cleaned[i] = out
	}
	return cleaned, removed
}
