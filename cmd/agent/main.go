package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/petasbytes/paper-agent/internal/config"
	"github.com/petasbytes/paper-agent/internal/docs"
	"github.com/petasbytes/paper-agent/internal/logging"
	"github.com/petasbytes/paper-agent/internal/metrics"
	"github.com/petasbytes/paper-agent/internal/provider"
	"github.com/petasbytes/paper-agent/internal/runner"
	"github.com/petasbytes/paper-agent/internal/server"
	"github.com/petasbytes/paper-agent/internal/session"
	"github.com/petasbytes/paper-agent/internal/telemetry"
	"github.com/petasbytes/paper-agent/internal/tokens"
	"github.com/petasbytes/paper-agent/internal/uploads"
	"github.com/petasbytes/paper-agent/internal/windowing"
	"github.com/petasbytes/paper-agent/memory"
)

type CLI struct {
	Config     string   `short:"c" help:"Path to YAML config file." type:"path"`
	Serve      bool     `help:"Serve the HTTP API instead of the interactive prompt."`
	Addr       string   `help:"Listen address for --serve (overrides config)."`
	Transcript string   `help:"Load the conversation from, and save it to, this JSON file." type:"path"`
	Files      []string `arg:"" optional:"" help:"PDF files to upload at start." type:"existingfile"`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("paper-agent"),
		kong.Description("Ask questions about your PDF papers."),
		kong.UsageOnError(),
	)
	kctx.FatalIfErrorf(run(cli))
}

func run(cli CLI) error {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}
	if cli.Addr != "" {
		cfg.Addr = cli.Addr
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	// Set up graceful shutdown on Ctrl-C (SIGINT) / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a, err := wire(cfg, cli.Transcript, reg, log)
	if err != nil {
		return err
	}
	defer a.close()

	if len(cli.Files) > 0 {
		files, err := readFiles(cli.Files)
		if err != nil {
			return err
		}
		report, err := a.sess.Upload(ctx, files)
		printReport(report)
		if err != nil {
			return err
		}
	}

	if cli.Serve {
		return server.New(a.sess, reg, log).ListenAndServe(ctx, cfg.Addr)
	}
	return repl(ctx, a)
}

type app struct {
	sess       *session.Session
	recorder   *telemetry.Recorder
	transcript string
	log        *zap.Logger
}

func (a *app) close() {
	_ = a.sess.Close()
	if err := a.recorder.Close(); err != nil {
		a.log.Warn("close telemetry", zap.Error(err))
	}
}

// wire builds the session and every collaborator from cfg.
func wire(cfg config.Config, transcript string, reg prometheus.Registerer, log *zap.Logger) (*app, error) {
	var rec *telemetry.Recorder
	if cfg.ObserveJSON {
		r, err := telemetry.Open(cfg.EventsDir)
		if err != nil {
			return nil, err
		}
		rec = r
	}
	m := metrics.New(reg)

	client := provider.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicBaseURL)
	model := provider.ResolveModel(cfg.Model)
	completer := &provider.Completer{Client: client, Model: model, MaxTokens: int64(cfg.MaxTokens)}

	embed, err := provider.Embedding(cfg.Embedding)
	if err != nil {
		return nil, err
	}

	counter := tokens.Default()
	var splitter docs.Splitter = tokens.Runes{}
	if tk, err := tokens.NewTiktoken(); err == nil {
		splitter = tk
	} else {
		log.Warn("tiktoken unavailable; chunking by runes", zap.Error(err))
	}

	builder := &docs.Builder{
		Extractor:        docs.PDFExtractor{},
		Splitter:         splitter,
		ChunkSize:        cfg.Chunking.Size,
		ChunkOverlap:     cfg.Chunking.Overlap,
		Embed:            embed,
		Generator:        completer,
		SummaryTTL:       cfg.SummaryCacheTTL,
		EmbedConcurrency: 4,
		Log:              log,
	}
	agent := &runner.Agent{
		Runner: &runner.Runner{
			Client:    client,
			MaxTokens: int64(cfg.MaxTokens),
			Budget:    cfg.TokenBudget,
			Counter:   windowing.MessageCounter{Text: counter},
			Recorder:  rec,
			Metrics:   m,
			Log:       log.Named("runner"),
		},
		Model:    model,
		MaxSteps: cfg.MaxSteps,
		TopK:     cfg.TopK,
		Features: counter,
	}

	store, err := uploads.NewStore(cfg.UploadDir)
	if err != nil {
		return nil, err
	}
	var history []memory.Turn
	if transcript != "" {
		if history, err = memory.LoadTranscript(transcript); err != nil {
			return nil, err
		}
	}

	sess, err := session.New(session.Deps{
		Store:    store,
		Builder:  builder,
		Agent:    agent,
		Embed:    embed,
		Workers:  cfg.IngestWorkers,
		Policy:   cfg.LoadErrorPolicy,
		History:  history,
		Recorder: rec,
		Metrics:  m,
		Log:      log,
	})
	if err != nil {
		return nil, err
	}
	return &app{sess: sess, recorder: rec, transcript: transcript, log: log}, nil
}

func readFiles(paths []string) ([]uploads.File, error) {
	files := make([]uploads.File, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		files = append(files, uploads.File{Name: filepath.Base(p), Data: data})
	}
	return files, nil
}

func printReport(r session.UploadReport) {
	for _, name := range r.Indexed {
		fmt.Printf("Indexed %s\n", name)
	}
	for _, f := range r.Failed {
		fmt.Printf("Skipped %s: %s\n", f.Name, f.Error)
	}
}
