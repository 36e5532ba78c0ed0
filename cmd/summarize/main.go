package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/acme/call-dispatch/internal/app"
	"github.com/acme/call-dispatch/internal/domain"
	"github.com/acme/call-dispatch/internal/report"
)

func main() {
	today := time.Now().UTC().Format(time.DateOnly)

	configPath := flag.String("config", getEnv("CONFIG_FILE", "configs/config.yaml"), "path to configuration file")
	start := flag.String("start", today, "first day of the window (YYYY-MM-DD)")
	end := flag.String("end", today, "last day of the window (YYYY-MM-DD)")
	goal := flag.String("goal", "", "analysis goal (default: summary.goal)")
	output := flag.String("output", "call_summaries.csv", "where to write the summary CSV")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	container, err := app.Build(ctx, *configPath)
	if err != nil {
		log.Fatalf("failed to bootstrap application: %v", err)
	}
	defer container.Close(context.Background())
	lg := container.Logger

	analysisGoal := *goal
	if analysisGoal == "" {
		analysisGoal = container.Config.Summary.Goal
	}
	questions := domain.QuestionsFromPairs(container.Config.Summary.Questions)

	summaries, err := container.SummaryService.Summarize(ctx, *start, *end, analysisGoal, questions)
	if err != nil {
		if summaries == nil {
			lg.Fatal("summarize", zap.Error(err))
		}
		// Keep whatever was analyzed before the interruption.
		lg.Error("summarize stopped early", zap.Error(err))
	}

	f, err := os.Create(*output)
	if err != nil {
		lg.Fatal("create output", zap.String("output", *output), zap.Error(err))
	}
	if err := report.WriteSummariesCSV(f, summaries); err != nil {
		f.Close()
		lg.Fatal("write summaries", zap.Error(err))
	}
	if err := f.Close(); err != nil {
		lg.Fatal("close output", zap.Error(err))
	}

	lg.Info("summaries written", zap.Int("count", len(summaries)), zap.String("output", *output))
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
