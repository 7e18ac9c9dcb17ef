package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joelkehle/legalscope/internal/contractanalysis"
	"github.com/joelkehle/legalscope/internal/inference"
)

func main() {
	filePath := flag.String("file", "", "path to contract text file (required)")
	format := flag.String("format", "json", "output format: json or markdown")
	enableLLM := flag.Bool("llm", false, "enable LLM insight synthesis (requires ANTHROPIC_API_KEY)")
	concurrency := flag.Int("concurrency", contractanalysis.DefaultSegmentConcurrency, "max segments analyzed in parallel")
	outPath := flag.String("o", "", "write output to file instead of stdout")
	flag.Parse()

	if *filePath == "" {
		flag.Usage()
		os.Exit(2)
	}
	raw, err := os.ReadFile(*filePath)
	if err != nil {
		log.Fatalf("read %s: %v", *filePath, err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	inf := inference.NewClient(inference.ClientConfig{
		APIToken: os.Getenv("HF_API_TOKEN"),
	})

	var synthesizer *contractanalysis.InsightSynthesizer
	if *enableLLM {
		caller, err := contractanalysis.NewAnthropicCallerFromEnv()
		if err != nil {
			log.Fatalf("LLM insights requested but unavailable: %v", err)
		}
		synthesizer = contractanalysis.NewInsightSynthesizer(caller, contractanalysis.SynthesizerConfig{})
	}

	pipeline := contractanalysis.NewPipeline(
		contractanalysis.NewClassifier(inf),
		contractanalysis.NewSummaryWriter(inf),
		contractanalysis.NewRiskDetector(inf),
		synthesizer,
	)
	pipeline.SetConcurrency(*concurrency)

	progress := func(stage, message string) {
		log.Printf("[%s] %s", stage, message)
	}

	result, err := pipeline.AnalyzeWithProgress(ctx, filepath.Base(*filePath), string(raw), contractanalysis.Options{EnableLLM: *enableLLM}, progress)
	if err != nil {
		log.Fatalf("analysis failed at stage %s: %v", contractanalysis.StageNameFromError(err), err)
	}

	var output []byte
	switch *format {
	case "markdown":
		output = []byte(contractanalysis.BuildReportMarkdown(result))
	case "json":
		output, err = json.MarshalIndent(result, "", "  ")
		if err != nil {
			log.Fatalf("marshal result: %v", err)
		}
	default:
		log.Fatalf("unknown format %q (want json or markdown)", *format)
	}

	if *outPath != "" {
		if err := os.WriteFile(*outPath, output, 0o644); err != nil {
			log.Fatalf("write %s: %v", *outPath, err)
		}
		log.Printf("wrote %s", *outPath)
		return
	}
	fmt.Println(string(output))
}
