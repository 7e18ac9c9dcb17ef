package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joelkehle/legalscope/internal/contractanalysis"
	"github.com/joelkehle/legalscope/internal/httpapi"
	"github.com/joelkehle/legalscope/internal/inference"
	"github.com/joelkehle/legalscope/internal/render"
	"github.com/joelkehle/legalscope/internal/store"
	"github.com/joelkehle/legalscope/internal/telemetry"
)

func main() {
	dbFlag := flag.String("db", "", "path to SQLite database file (overrides DB_PATH env var)")
	concurrency := flag.Int("concurrency", contractanalysis.DefaultSegmentConcurrency, "max segments analyzed in parallel")
	flag.Parse()

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}

	dbPath := *dbFlag
	if dbPath == "" {
		dbPath = os.Getenv("DB_PATH")
	}
	if dbPath == "" {
		dbPath = "./data/legalscope.db"
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := telemetry.Setup(ctx, "legalscope", os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	if err != nil {
		log.Fatalf("telemetry setup: %v", err)
	}
	defer func() {
		shutdownCtx, c := context.WithTimeout(context.Background(), 5*time.Second)
		defer c()
		_ = shutdownTracing(shutdownCtx)
	}()

	st, err := store.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to initialize sqlite store (%s): %v", dbPath, err)
	}
	defer st.Close()
	log.Printf("using sqlite store at %s", dbPath)

	inf := inference.NewClient(inference.ClientConfig{
		APIToken: os.Getenv("HF_API_TOKEN"),
	})

	var synthesizer *contractanalysis.InsightSynthesizer
	caller, err := contractanalysis.NewAnthropicCallerFromEnv()
	if err != nil {
		log.Printf("LLM insights unavailable: %v", err)
	} else {
		synthesizer = contractanalysis.NewInsightSynthesizer(caller, contractanalysis.SynthesizerConfig{})
	}

	pipeline := contractanalysis.NewPipeline(
		contractanalysis.NewClassifier(inf),
		contractanalysis.NewSummaryWriter(inf),
		contractanalysis.NewRiskDetector(inf),
		synthesizer,
	)
	pipeline.SetConcurrency(*concurrency)

	h := httpapi.NewServer(pipeline, st, render.NewChromiumPDFRenderer(), render.HTMLReport)
	srv := &http.Server{Addr: addr, Handler: h}

	go func() {
		<-ctx.Done()
		shutdownCtx, c := context.WithTimeout(context.Background(), 10*time.Second)
		defer c()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("legalscope listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	log.Println("legalscope stopped")
}
