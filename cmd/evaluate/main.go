// Command evaluate benchmarks label prediction across the configured model
// backends on a labeled transcript dataset and prints a comparison report.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/meetinsight/service/internal/config"
	"github.com/meetinsight/service/internal/eval"
	"github.com/meetinsight/service/internal/llm"
	"github.com/meetinsight/service/internal/models"
	"github.com/meetinsight/service/internal/prompt"
)

func main() {
	var (
		datasetDir = flag.String("dataset", "data", "dataset root containing train/, test/, validation/")
		backendArg = flag.String("backends", "apertus,azure_openai,huggingface,local", "comma-separated backends to evaluate")
		split      = flag.String("split", "validation", "split to evaluate: train, test, or validation")
		limit      = flag.Int("limit", 0, "cap on samples to evaluate (0 = all)")
		fewShot    = flag.Int("fewshot", 0, "number of few-shot training examples to include in prompts")
		seed       = flag.Int64("seed", 42, "random seed for few-shot selection and synthetic data")
		output     = flag.String("output", "", "write the JSON report to this file in addition to stdout")
		synth      = flag.Int("synth", 0, "evaluate on N synthetic samples instead of a dataset")
		synthOut   = flag.String("synth-out", "", "materialize the synthetic samples as a split directory at this path")
	)
	flag.Parse()

	bootLog := logrus.New()
	cfg, err := config.Load(bootLog)
	if err != nil {
		bootLog.WithError(err).Fatal("configuration load failed")
	}
	log := cfg.NewLogger()

	factory := llm.NewFactory(log)
	cfg.ConfigureFactory(factory)
	defer factory.Close()

	var samples, trainSamples []eval.Sample
	if *synth > 0 {
		samples = eval.GenerateSamples(*synth, *seed)
		log.WithField("count", len(samples)).Info("generated synthetic samples")
		if *synthOut != "" {
			if err := eval.WriteSplit(*synthOut, samples); err != nil {
				log.WithError(err).Fatal("write synthetic split")
			}
			log.WithField("dir", *synthOut).Info("synthetic split written")
		}
	} else {
		dataset, err := eval.LoadDataset(*datasetDir, log)
		if err != nil {
			log.WithError(err).Fatal("dataset load failed")
		}
		trainSamples = dataset.Train
		switch *split {
		case "train":
			samples = dataset.Train
		case "test":
			samples = dataset.Test
		case "validation":
			samples = dataset.Validation
		default:
			log.Fatalf("unknown split %q", *split)
		}
	}

	if *limit > 0 && len(samples) > *limit {
		samples = samples[:*limit]
	}
	if len(samples) == 0 {
		log.Fatal("no samples to evaluate")
	}

	builder := prompt.NewBuilder("")
	if *fewShot > 0 {
		pool := trainSamples
		if len(pool) == 0 {
			pool = samples
		}
		examples := eval.SelectExamples(pool, *fewShot, *seed)
		builder = prompt.NewBuilder(eval.TrainingContext(examples))
		log.WithField("examples", len(examples)).Info("few-shot context prepared")
	}

	backends := parseBackends(*backendArg)
	runner := eval.NewRunner(factory, builder, log, true)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := runner.Run(ctx, backends, samples, *fewShot)
	if err != nil {
		log.WithError(err).Fatal("evaluation failed")
	}

	if err := report.WriteText(os.Stdout); err != nil {
		log.WithError(err).Error("write text report")
	}

	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			log.WithError(err).Fatal("create output file")
		}
		defer f.Close()
		if err := report.WriteJSON(f); err != nil {
			log.WithError(err).Fatal("write JSON report")
		}
		log.WithField("path", *output).Info("JSON report written")
	}
}

func parseBackends(arg string) []models.ModelType {
	var backends []models.ModelType
	for _, part := range strings.Split(arg, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			backends = append(backends, models.ModelType(part))
		}
	}
	return backends
}
