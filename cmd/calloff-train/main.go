// Command calloff-train fits the calibration model on the labeled evaluation
// log, prints its held-out report and writes the model artifact.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	_ "time/tzdata"

	"github.com/i474232898/calloff/internal/calibration"
	"github.com/i474232898/calloff/internal/config"
	"github.com/i474232898/calloff/internal/store"
)

func main() {
	var (
		out    = flag.String("out", "", "Model artifact path (default MODEL_PATH)")
		dryRun = flag.Bool("dry-run", false, "Print the report without writing the model")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))

	path := cfg.Train.ModelPath
	if *out != "" {
		path = *out
	}

	if err := run(context.Background(), cfg, path, *dryRun, log); err != nil {
		log.Error("training failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, path string, dryRun bool, log *slog.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	opts := cfg.StoreOptions(loc)
	opts.ReadOnly = true
	backend, err := store.Open(ctx, opts)
	if err != nil {
		return err
	}
	defer backend.Close()

	rows, err := backend.Log.ReadAll(ctx)
	if err != nil {
		return err
	}
	log.Info("evaluation log loaded", "rows", len(rows))

	model, err := calibration.Train(rows, cfg.TrainOptions())
	if err != nil {
		return err
	}

	fmt.Print(model.Report.String())
	log.Info("model trained", "model_id", model.ID, "train_rows", model.TrainRows, "test_rows", model.TestRows, "conditions", len(model.Encoder.Classes))

	if dryRun {
		return nil
	}
	if err := model.SaveFile(path); err != nil {
		return err
	}
	log.Info("model saved", "path", path)
	return nil
}
