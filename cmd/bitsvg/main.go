package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/esimov/bitsvg"
	"github.com/esimov/bitsvg/config"
	"github.com/esimov/bitsvg/utils"
	"go.uber.org/zap"
)

const HelpBanner = `
┌┐ ┬┌┬┐┌─┐┬  ┬┌─┐
├┴┐│ │ └─┐└┐┌┘│ ┬
└─┘┴ ┴ └─┘ └┘ └─┘

Flat color logo to SVG vectorizer.
    Version: %s

`

// pipeName is the file name that indicates stdin/stdout is being used.
const pipeName = "-"

// Version indicates the current build version.
var Version string

var (
	// Flags
	source      = flag.String("in", pipeName, "Source image, directory or URL")
	destination = flag.String("out", pipeName, "Destination SVG file or directory")
	configPath  = flag.String("config", "", "YAML configuration file")
	colors      = flag.Int("colors", 0, "Maximum number of color layers")
	epsilon     = flag.Float64("eps", 0, "Outline simplification tolerance in pixels")
	maxError    = flag.Float64("maxerr", 0, "Maximum curve fitting error in pixels")
	maxSegments = flag.Int("segments", 0, "Maximum number of Bézier segments per outline")
	decimals    = flag.Int("decimals", -1, "Decimal places of the SVG coordinates")
	pretty      = flag.Bool("pretty", false, "Write an indented SVG document")
	redisAddr   = flag.String("redis", "", "Redis address of the durable trace cache")
	workers     = flag.Int("conc", runtime.NumCPU(), "Number of files to process concurrently")
	debug       = flag.Bool("debug", false, "Log the pipeline stages")
)

func main() {
	log.SetFlags(0)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, HelpBanner, Version)
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("%s %s",
			utils.DecorateText("Failed to load the configuration:", utils.ErrorMessage),
			utils.DecorateText(err.Error(), utils.DefaultMessage),
		)
	}
	applyFlags(cfg)

	if *debug {
		logger, err := utils.NewLogger("debug")
		if err != nil {
			log.Fatalf("failed to initialize the logger: %v", err)
		}
		defer logger.Sync()
		bitsvg.SetLogger(logger)
		logger.Debug("configuration loaded", zap.Any("config", cfg))
	}

	proc, err := bitsvg.NewProcessor(*cfg)
	if err != nil {
		log.Fatalf("%s %s",
			utils.DecorateText("Invalid settings:", utils.ErrorMessage),
			utils.DecorateText(err.Error(), utils.DefaultMessage),
		)
	}
	defer proc.Close()

	// Cancel the running conversions on CTRL-C, the spinner restores the cursor on return.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	op := &bitsvg.Ops{
		Src:      *source,
		Dst:      *destination,
		PipeName: pipeName,
		Workers:  *workers,
	}
	if err := proc.Execute(ctx, op); err != nil {
		stop()
		proc.Close()
		fmt.Fprintln(os.Stderr, utils.DecorateText(err.Error(), utils.ErrorMessage))
		os.Exit(1)
	}
}

// applyFlags overrides the configuration with the flags set on the command line.
func applyFlags(cfg *bitsvg.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "colors":
			cfg.Colors = *colors
		case "eps":
			cfg.SimplifyEpsilon = *epsilon
		case "maxerr":
			cfg.Fit.MaxError = *maxError
		case "segments":
			cfg.Fit.MaxSegments = *maxSegments
		case "decimals":
			cfg.SVG.Decimals = *decimals
		case "pretty":
			cfg.SVG.Pretty = *pretty
		case "redis":
			cfg.Cache.Redis.Addr = *redisAddr
		}
	})
}
