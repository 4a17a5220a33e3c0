// Package eval benchmarks label prediction across model backends against a
// labeled transcript dataset and reports comparable scores.
package eval

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// Sample is one evaluation unit: a transcript and its ground-truth labels.
type Sample struct {
	FileID     string   `json:"file_id"`
	Transcript string   `json:"-"`
	Labels     []string `json:"labels"`
}

// Dataset holds the three conventional splits.
type Dataset struct {
	Train      []Sample
	Test       []Sample
	Validation []Sample
}

// groundTruthEntry is the on-disk shape of one labeled task.
type groundTruthEntry struct {
	TaskType string `json:"task_type"`
}

// LoadDataset reads train/, test/, and validation/ under root. A missing
// split directory is tolerated and yields an empty split.
func LoadDataset(root string, log *logrus.Logger) (*Dataset, error) {
	ds := &Dataset{}
	for _, split := range []struct {
		name string
		dst  *[]Sample
	}{
		{"train", &ds.Train},
		{"test", &ds.Test},
		{"validation", &ds.Validation},
	} {
		dir := filepath.Join(root, split.name)
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			log.WithField("split", split.name).Warn("split directory missing, skipping")
			continue
		}
		samples, err := LoadSplit(dir, log)
		if err != nil {
			return nil, fmt.Errorf("load %s split: %w", split.name, err)
		}
		*split.dst = samples
	}

	log.WithFields(logrus.Fields{
		"train":      len(ds.Train),
		"test":       len(ds.Test),
		"validation": len(ds.Validation),
	}).Info("dataset loaded")
	return ds, nil
}

// LoadSplit reads one split directory of paired <id>.txt transcripts and
// <id>.json ground-truth files. Files without a matching pair are excluded
// silently; a transcript without labels carries no evaluation signal.
func LoadSplit(dir string, log *logrus.Logger) ([]Sample, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	transcripts := make(map[string]string)
	labels := make(map[string][]string)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		path := filepath.Join(dir, name)
		stem := strings.TrimSuffix(name, filepath.Ext(name))

		switch filepath.Ext(name) {
		case ".txt":
			content, err := os.ReadFile(path)
			if err != nil {
				log.WithField("file", path).WithError(err).Error("transcript unreadable, skipping")
				continue
			}
			transcripts[stem] = string(content)
		case ".json":
			content, err := os.ReadFile(path)
			if err != nil {
				log.WithField("file", path).WithError(err).Error("ground truth unreadable, skipping")
				continue
			}
			var entries []groundTruthEntry
			if err := json.Unmarshal(content, &entries); err != nil {
				log.WithField("file", path).WithError(err).Error("ground truth unparseable, skipping")
				continue
			}
			ls := make([]string, 0, len(entries))
			for _, e := range entries {
				if e.TaskType != "" {
					ls = append(ls, e.TaskType)
				}
			}
			labels[stem] = ls
		}
	}

	var samples []Sample
	for id, transcript := range transcripts {
		ls, ok := labels[id]
		if !ok {
			continue
		}
		samples = append(samples, Sample{FileID: id, Transcript: transcript, Labels: ls})
	}

	// Deterministic order; map iteration is not.
	sort.Slice(samples, func(i, j int) bool { return samples[i].FileID < samples[j].FileID })
	return samples, nil
}

// LabelDistribution counts ground-truth label occurrences across samples.
func LabelDistribution(samples []Sample) map[string]int {
	dist := make(map[string]int)
	for _, s := range samples {
		for _, l := range s.Labels {
			dist[l]++
		}
	}
	return dist
}
