package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"k8s.io/klog/v2"

	"gpnet/internal/backend"
	"gpnet/internal/config"
	"gpnet/internal/runner"
)

func main() {
	klog.InitFlags(nil)
	cfgPath := flag.String("config", "configs/gpnet.toml", "Path to TOML config")
	dataPath := flag.String("data", "", "Override the expression matrix file or directory")
	mode := flag.String("mode", "", "Override the model: pointnet, dense, heatmap or fnn")
	steps := flag.Int("steps", 0, "Number of forward steps")
	batchSize := flag.Int("batch-size", 0, "Batch size")
	numWorkers := flag.Int("num-workers", 0, "Number of sampler workers")
	seed := flag.Int64("seed", 0, "PRNG seed")
	logEvery := flag.Int("log-every", 0, "Log every N steps")

	flag.Parse()
	defer klog.Flush()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		klog.Exitf("failed to load config: %v", err)
	}

	cfg.ApplyOverrides(config.Overrides{
		DataPath:   *dataPath,
		Mode:       *mode,
		Steps:      *steps,
		BatchSize:  *batchSize,
		NumWorkers: *numWorkers,
		Seed:       *seed,
		LogEvery:   *logEvery,
	})

	if err := cfg.Validate(); err != nil {
		klog.Exitf("invalid config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	expr, err := runner.LoadExpression(cfg.Data.Path)
	if err != nil {
		klog.Exitf("load %s: %v", cfg.Data.Path, err)
	}
	b, err := backend.New()
	if err != nil {
		klog.Exitf("select backend: %v", err)
	}
	klog.Infof("backend=%s", b.Name())
	mdl, inputs, err := runner.Prepare(ctx, b, cfg, expr)
	if err != nil {
		klog.Exitf("prepare %s model: %v", cfg.Model.Mode, err)
	}
	klog.Infof("mode=%s data=%s", cfg.Model.Mode, cfg.Data.Path)

	res, err := runner.Run(ctx, runner.RunConfig{
		Model:      mdl,
		Inputs:     inputs,
		Labels:     expr.Labels,
		Steps:      cfg.Run.Steps,
		BatchSize:  cfg.Run.BatchSize,
		NumWorkers: cfg.Run.NumWorkers,
		LogEvery:   cfg.Run.LogEvery,
		Seed:       cfg.Run.Seed,
	})
	if err != nil {
		klog.Exitf("run failed: %v", err)
	}
	klog.Infof("done steps=%d samples=%d", res.Steps, res.Samples)
}
