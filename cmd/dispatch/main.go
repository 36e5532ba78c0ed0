package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/acme/call-dispatch/internal/app"
	"github.com/acme/call-dispatch/internal/dispatcher"
	"github.com/acme/call-dispatch/internal/domain"
	"github.com/acme/call-dispatch/internal/report"
	batchsvc "github.com/acme/call-dispatch/internal/service/batch"
)

func main() {
	configPath := flag.String("config", getEnv("CONFIG_FILE", "configs/config.yaml"), "path to configuration file")
	input := flag.String("input", "", "CSV file of phone numbers (required)")
	output := flag.String("output", "call_results.jsonl", "where to write the results")
	format := flag.String("format", "", "csv or jsonl (default: from the output extension)")
	mode := flag.String("mode", "", "sequential or concurrent (default: dispatch.mode)")
	task := flag.String("task", "", "task prompt for every call")
	pathway := flag.String("pathway", "", "pathway id for every call")
	firstSentence := flag.String("first-sentence", "", "opening line when the CSV does not give one")
	model := flag.String("model", "", "model for every call")
	flag.Parse()

	if *input == "" {
		flag.Usage()
		os.Exit(2)
	}

	// Interrupts stop dialing; items not yet dialed are reported as failures.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	container, err := app.Build(ctx, *configPath)
	if err != nil {
		log.Fatalf("failed to bootstrap application: %v", err)
	}
	defer container.Close(context.Background())
	lg := container.Logger

	items, err := readItems(*input)
	if err != nil {
		lg.Fatal("read phone numbers", zap.String("input", *input), zap.Error(err))
	}

	run, results, err := container.BatchService.Run(ctx, batchsvc.Input{
		Items: items,
		Template: domain.CallRequest{
			Task:          *task,
			PathwayID:     *pathway,
			FirstSentence: *firstSentence,
			Model:         *model,
		},
		Mode: dispatcher.Mode(*mode),
	})
	if err != nil {
		lg.Fatal("batch rejected", zap.Error(err))
	}

	if err := writeResults(*output, *format, results); err != nil {
		lg.Fatal("write results", zap.String("output", *output), zap.Error(err))
	}

	lg.Info("batch finished",
		zap.String("batch_id", run.ID.String()),
		zap.Int("succeeded", run.Succeeded),
		zap.Int("failed", run.Failed),
		zap.String("output", *output),
	)
}

func readItems(path string) ([]domain.WorkItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return report.ReadPhoneNumbersCSV(f)
}

func writeResults(path, format string, results []domain.CallResult) error {
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(path), ".")
	}

	var write func(io.Writer, []domain.CallResult) error
	switch strings.ToLower(format) {
	case "csv":
		write = report.WriteResultsCSV
	case "jsonl", "json", "":
		write = report.WriteResultsJSONL
	default:
		return fmt.Errorf("unknown output format %q", format)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f, results); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
