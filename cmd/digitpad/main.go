package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Brownie44l1/digit-pad/internal/config"
	"github.com/Brownie44l1/digit-pad/internal/digit"
	"github.com/Brownie44l1/digit-pad/internal/inference"
	"github.com/Brownie44l1/digit-pad/internal/otel"

	"github.com/disintegration/imaging"
	log "github.com/sirupsen/logrus"
)

func main() {
	configFlag := flag.String("config", "", "path to config file")
	urlFlag := flag.String("url", "", "inference service url (overrides API_URL)")
	timeoutFlag := flag.Duration("timeout", 0, "prediction timeout")
	filterFlag := flag.String("filter", "", "resampling filter: lanczos, catmullrom or box")
	previewFlag := flag.String("preview", "", "directory to write the 28x28 images to")
	healthFlag := flag.Bool("health", false, "only check the inference service")
	verboseFlag := flag.Bool("v", false, "verbose logging")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <image>...\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}

	flag.Parse()

	log.SetLevel(log.WarnLevel)

	if *verboseFlag {
		log.SetLevel(log.DebugLevel)
	}

	cfg, err := config.Load(*configFlag)

	if err != nil {
		log.Fatal(err)
	}

	if err := override(cfg, *urlFlag, *timeoutFlag, *filterFlag); err != nil {
		log.Fatal(err)
	}

	client, err := cfg.Client(log.WithField("component", "inference"))

	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()

	shutdownTelemetry, err := otel.Setup(ctx, "digitpad-cli")

	if err != nil {
		log.Fatal(err)
	}

	// os.Exit skips deferred calls; flush spans first
	exit := func(code int) {
		shutdownTelemetry(ctx)
		os.Exit(code)
	}

	if *healthFlag {
		if !client.CheckHealth(ctx) {
			fmt.Printf("inference service offline (%s)\n", client.HealthURL())
			exit(1)
		}

		fmt.Printf("inference service online (%s)\n", client.HealthURL())
		exit(0)
	}

	if flag.NArg() == 0 {
		flag.Usage()
		exit(2)
	}

	failed := false

	for _, path := range flag.Args() {
		if err := run(ctx, os.Stdout, client, cfg, path, *previewFlag); err != nil {
			failed = true
			fmt.Fprintf(os.Stdout, "%s: %s\n", path, message(err))
		}
	}

	if failed {
		exit(1)
	}

	shutdownTelemetry(ctx)
}

func override(cfg *config.Config, url string, timeout time.Duration, filter string) error {
	if url != "" {
		cfg.SetAPIURL(url)
	}

	if timeout > 0 {
		cfg.PredictTimeout = timeout
	}

	if filter != "" {
		f, err := digit.ParseFilter(filter)

		if err != nil {
			return err
		}

		cfg.Filter = f
	}

	return cfg.Validate()
}

func run(ctx context.Context, w io.Writer, p inference.Predictor, cfg *config.Config, path, previewDir string) error {
	img, err := imaging.Open(path)

	if err != nil {
		return err
	}

	normalized, err := digit.Normalize(img, cfg.NormalizeOptions()...)

	if err != nil {
		return err
	}

	payload, err := digit.Encode(normalized)

	if err != nil {
		return err
	}

	if previewDir != "" {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + "_28x28.png"

		if err := os.WriteFile(filepath.Join(previewDir, name), payload, 0o644); err != nil {
			return err
		}
	}

	result, err := p.Predict(ctx, payload)

	if err != nil {
		return err
	}

	render(w, path, result)
	return nil
}

func render(w io.Writer, path string, result *inference.PredictionResult) {
	fmt.Fprintf(w, "%s: predicted %d (confidence %.2f%%)\n", path, result.PredictedClass, result.Confidence*100)

	for i, p := range result.Probabilities {
		fmt.Fprintf(w, "  %d %-40s %.4f\n", i, strings.Repeat("█", bar(p, 40)), p)
	}
}

func bar(p float64, width int) int {
	n := int(p*float64(width) + 0.5)

	return min(max(n, 0), width)
}

func message(err error) string {
	if errors.Is(err, digit.ErrNoDrawing) {
		err = &inference.Error{Kind: inference.NoDrawing, Err: err}
	}

	var e *inference.Error

	if errors.As(err, &e) {
		return e.Message()
	}

	return err.Error()
}
