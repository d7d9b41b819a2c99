package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/cognicore/commentpulse/internal/commentfile"
	"github.com/cognicore/commentpulse/internal/youtube"
	"github.com/cognicore/commentpulse/pkg/pulse"
	"github.com/cognicore/commentpulse/pkg/pulse/analytics"
	"github.com/cognicore/commentpulse/pkg/pulse/config"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to YAML config file (optional)")
		input      = flag.String("file", "", "Comments file: JSON array, {\"comments\": [...]} or JSONL")
		video      = flag.String("video", "", "YouTube watch URL or video ID to fetch comments from")
		maxFetch   = flag.Int("max", youtube.DefaultMaxComments, "Maximum comments to fetch with -video")
		predict    = flag.Bool("predict", false, "Print per-comment labels instead of the full report")
	)
	flag.Parse()

	if (*input == "") == (*video == "") {
		log.Fatal("exactly one of --file or --video required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := cfg.NewLogger(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	components, err := config.NewLoader(cfg, logger).Load()
	if err != nil {
		log.Fatalf("load components: %v", err)
	}

	var comments []analytics.Comment
	if *input != "" {
		comments, err = commentfile.Load(*input, logger)
		if err != nil {
			log.Fatalf("load comments: %v", err)
		}
	} else {
		id, ok := youtube.ExtractVideoID(*video)
		if !ok {
			id = *video
		}
		if cfg.YouTube.APIKey == "" {
			log.Fatal("YOUTUBE_API_KEY required for --video")
		}
		client := youtube.NewClient(cfg.YouTube.APIKey,
			youtube.WithBaseURL(cfg.YouTube.BaseURL),
			youtube.WithLogger(logger))
		comments, err = client.FetchComments(ctx, id, *maxFetch)
		if err != nil {
			log.Fatalf("fetch comments: %v", err)
		}
		logger.Info().Str("video", id).Int("comments", len(comments)).Msg("fetched comments")
	}

	svc, err := pulse.New(pulse.Options{
		Normalizer:  components.Normalizer,
		Classifier:  components.Classifier,
		Engine:      analytics.NewEngine(components.Stoplist, analytics.DefaultLimits),
		Logger:      logger,
		Workers:     cfg.Limits.NormalizeWorkers,
		MaxComments: cfg.Limits.MaxComments,
	})
	if err != nil {
		log.Fatalf("create service: %v", err)
	}

	var out interface{}
	if *predict {
		out, err = svc.PredictWithTimestamps(ctx, comments)
	} else {
		var report *pulse.Report
		report, err = svc.Analyze(ctx, comments)
		if err == nil {
			out = report.Result
		}
	}
	if err != nil {
		log.Fatalf("analyze: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatalf("encode: %v", err)
	}
}
