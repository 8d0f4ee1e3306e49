// Command train_model fits a regression tree on a CSV file and writes the
// model.json, encoders.json and scaler.json artifacts a tabular app loads.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"modeldemos/logging"
)

func main() {
	dataPath := flag.String("data", "", "training CSV with a header row")
	outDir := flag.String("out", "", "artifact output dir, e.g. artifacts/car")
	target := flag.String("target", "", "target column")
	featureList := flag.String("features", "", "comma separated feature columns in model order")
	categorical := flag.String("categorical", "", "comma separated categorical feature columns")
	logTarget := flag.Bool("log_target", false, "train on log(target)")
	maxDepth := flag.Int("max_depth", 8, "max tree depth")
	minSamplesLeaf := flag.Int("min_samples_leaf", 5, "min samples per leaf")
	testRatio := flag.Float64("test_ratio", 0.2, "test ratio")
	logLevel := flag.String("log_level", "info", "log level")
	flag.Parse()

	logger, err := logging.New(logging.Options{Level: *logLevel, Development: true})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	opts := options{
		DataPath:       *dataPath,
		OutDir:         *outDir,
		Target:         *target,
		Features:       splitList(*featureList),
		Categorical:    splitList(*categorical),
		LogTarget:      *logTarget,
		MaxDepth:       *maxDepth,
		MinSamplesLeaf: *minSamplesLeaf,
		TestRatio:      *testRatio,
	}
	rep, err := train(opts)
	if err != nil {
		logger.Error("training failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}

	logger.Info("model trained",
		zap.String("out", opts.OutDir),
		zap.Int("train_rows", rep.TrainRows),
		zap.Int("test_rows", rep.TestRows),
		zap.Int("dropped_rows", rep.Dropped),
		zap.String("dropped_by", rep.DroppedBy),
		zap.Int("nodes", rep.Nodes),
		zap.Float64("rmse", rep.RMSE),
		zap.Float64("mae", rep.MAE),
	)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
