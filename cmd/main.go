package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/xhad/escrito/internal/logger"
	"github.com/xhad/escrito/internal/metrics"
	"github.com/xhad/escrito/internal/types"
	cfgPkg "github.com/xhad/escrito/pkg/config"
	"github.com/xhad/escrito/pkg/editor"
	"github.com/xhad/escrito/pkg/llm"
	"github.com/xhad/escrito/pkg/resolver"
	"github.com/xhad/escrito/pkg/scraper"
	"github.com/xhad/escrito/pkg/store"
	"github.com/xhad/escrito/pkg/tools"
	"github.com/xhad/escrito/server"
)

type Flags struct {
	ConfigPath string
	Serve      bool
	MCP        bool
	Addr       string
	Store      string
	Model      string
	OllamaURL  string
	NoLLM      bool
	SessionID  string
	File       string
}

func main() {
	flags := parseFlags()

	config, err := loadConfig(flags)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config, flags); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() Flags {
	var flags Flags

	flag.StringVar(&flags.ConfigPath, "config", "", "Path to config file")
	flag.BoolVar(&flags.Serve, "serve", false, "Serve the HTTP and WebSocket API")
	flag.BoolVar(&flags.MCP, "mcp", false, "Serve MCP tools over stdio")
	flag.StringVar(&flags.Addr, "addr", "", "HTTP listen address (overrides server.addr)")
	flag.StringVar(&flags.Store, "store", "", "Store backend: memory, postgres or redis")
	flag.StringVar(&flags.Model, "model", "", "LLM model to use")
	flag.StringVar(&flags.OllamaURL, "ollama-url", "", "Ollama server URL")
	flag.BoolVar(&flags.NoLLM, "no-llm", false, "Resolve instructions with pattern rules only")
	flag.StringVar(&flags.SessionID, "session", "local", "Session id for the interactive editor")
	flag.StringVar(&flags.File, "file", "", "Document to open in the interactive editor")
	flag.Parse()

	return flags
}

// loadConfig reads the config file and lets command line flags override it.
func loadConfig(flags Flags) (*cfgPkg.Config, error) {
	config, err := cfgPkg.LoadConfig(flags.ConfigPath)
	if err != nil {
		return nil, err
	}

	if flags.Addr != "" {
		config.Server.Addr = flags.Addr
	}
	if flags.Store != "" {
		config.Store.Backend = flags.Store
	}
	if flags.Model != "" {
		config.LLM.Model = flags.Model
	}
	if flags.OllamaURL != "" {
		config.LLM.BaseURL = flags.OllamaURL
	}
	if flags.NoLLM {
		config.LLM.Disabled = true
	}

	if errs := config.Validate(); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
	}
	return config, nil
}

// app holds the wired components shared by every front end.
type app struct {
	config  *cfgPkg.Config
	log     *logger.Logger
	metrics *metrics.Metrics
	store   store.Store
	service *editor.Service
	locks   *editor.SessionLocks
}

type appOptions struct {
	logOutput     io.Writer
	draftProgress func(string)
}

func newApp(ctx context.Context, config *cfgPkg.Config, opts appOptions) (*app, error) {
	l := logger.NewLogger(logger.Config{
		Level:      config.Log.Level,
		Pretty:     config.Log.Pretty,
		Output:     opts.logOutput,
		WithCaller: config.Log.Caller,
	})
	m := metrics.NewMetrics()

	st, err := store.Open(ctx, store.Config{
		Backend: config.Store.Backend,
		Postgres: store.PostgresConfig{
			ConnString:     config.Database.URL,
			DocumentsTable: config.Database.DocumentsTable,
			HistoryTable:   config.Database.HistoryTable,
			MaxConns:       config.Database.MaxConns,
		},
		Redis: store.RedisConfig{
			URL:    config.Redis.URL,
			Prefix: config.Redis.Prefix,
			TTL:    config.Redis.TTL,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", config.Store.Backend, err)
	}

	pipelineOpts := []resolver.Option{resolver.WithLogger(l), resolver.WithMetrics(m)}
	editorOpts := []editor.Option{editor.WithLogger(l), editor.WithMetrics(m)}

	if !config.LLM.Disabled {
		primary, err := llm.NewWithConfig(chatConfig(config, config.LLM.Model))
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("failed to initialize chat engine: %w", err)
		}

		var fallback types.TextGenerator
		if config.LLM.FallbackModel != "" {
			engine, err := llm.NewWithConfig(chatConfig(config, config.LLM.FallbackModel))
			if err != nil {
				st.Close()
				return nil, fmt.Errorf("failed to initialize fallback chat engine: %w", err)
			}
			fallback = engine
		}

		generative := resolver.NewGenerativeResolver(primary, fallback, resolver.GenerativeConfig{
			MaxDeltaRatio: config.LLM.MaxDeltaRatio,
			Timeout:       config.LLM.Timeout,
		}, l, m)
		pipelineOpts = append(pipelineOpts, resolver.WithGenerative(generative))

		drafter := llm.NewDrafter(primary, config.LLM.DraftTimeout)
		if opts.draftProgress != nil {
			drafter = drafter.WithProgress(opts.draftProgress)
		}
		editorOpts = append(editorOpts, editor.WithDrafter(drafter))
	}

	importer, err := scraper.NewWithConfig(scraper.ScraperConfig{
		RateLimit:      config.Importer.RateLimit,
		Timeout:        config.Importer.Timeout,
		UserAgent:      config.Importer.UserAgent,
		AllowedHosts:   config.Importer.AllowedHosts,
		IgnorePatterns: config.Importer.IgnorePatterns,
	})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to initialize importer: %w", err)
	}
	editorOpts = append(editorOpts, editor.WithImporter(importer.WithLogger(l)))

	pipeline := resolver.NewPipeline(resolver.PipelineConfig{CacheSize: config.Cache.Size}, pipelineOpts...)

	return &app{
		config:  config,
		log:     l,
		metrics: m,
		store:   st,
		service: editor.New(st, pipeline, editorOpts...),
		locks:   editor.NewSessionLocks(),
	}, nil
}

func chatConfig(config *cfgPkg.Config, model string) llm.ChatConfig {
	return llm.ChatConfig{
		Provider:    config.LLM.Provider,
		Model:       model,
		Temperature: config.LLM.Temperature,
		MaxTokens:   config.LLM.MaxTokens,
		BaseURL:     config.LLM.BaseURL,
		APIKey:      config.LLM.APIKey,
	}
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn().Err(err).Msg("Error closing store")
	}
}

func run(ctx context.Context, config *cfgPkg.Config, flags Flags) error {
	switch {
	case flags.MCP:
		// stdout carries the protocol
		a, err := newApp(ctx, config, appOptions{logOutput: os.Stderr})
		if err != nil {
			return err
		}
		defer a.Close()
		return tools.ServeStdio(tools.NewHandlers(a.service, a.locks, a.log))

	case flags.Serve:
		a, err := newApp(ctx, config, appOptions{logOutput: os.Stdout})
		if err != nil {
			return err
		}
		defer a.Close()

		srv := server.NewWSServer(server.Config{
			Addr:            config.Server.Addr,
			AllowedOrigins:  config.Server.AllowedOrigins,
			ShutdownTimeout: config.Server.ShutdownTimeout,
			StoreBackend:    config.Store.Backend,
		}, a.service,
			server.WithLogger(a.log),
			server.WithMetrics(a.metrics),
			server.WithSessionLocks(a.locks),
		)
		return srv.Start(ctx)

	default:
		r := newREPL(os.Stdin, os.Stdout, flags.SessionID)
		a, err := newApp(ctx, config, appOptions{logOutput: io.Discard, draftProgress: r.streamDraft})
		if err != nil {
			return err
		}
		defer a.Close()

		r.service = a.service
		if flags.File != "" {
			r.open(ctx, flags.File)
		}
		return r.run(ctx)
	}
}
