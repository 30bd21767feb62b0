package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/brensch/snekpilot/autopilot"
	"github.com/brensch/snekpilot/command"
	"github.com/brensch/snekpilot/config"
	"github.com/brensch/snekpilot/game"
	"github.com/brensch/snekpilot/logging"
	"github.com/brensch/snekpilot/rules"
	"github.com/brensch/snekpilot/trace"
	"github.com/brensch/snekpilot/tui"
)

func main() {
	configPath := flag.String("config", config.EnvOrDefault("SNAKE_CONFIG", config.DefaultPath), "YAML file describing autopilot providers")
	tick := flag.Duration("tick", config.EnvDurationOrDefault("SNAKE_TICK", tui.DefaultTick), "Simulation step")
	stallTicks := flag.Int("stall-ticks", config.EnvIntOrDefault("SNAKE_STALL_TICKS", rules.DefaultConfig().StallTicks), "Ticks an autopilot snake waits for commands before moving straight (0 waits forever)")
	foodPolicy := flag.String("food-policy", config.EnvOrDefault("SNAKE_FOOD_POLICY", rules.FoodAvoidBody.String()), "Where food may spawn: avoid-body or loose")
	logFile := flag.String("log-file", config.EnvOrDefault("SNAKE_LOG_FILE", "snake.log"), "File receiving JSON logs (the terminal belongs to the game)")
	logIndent := flag.Bool("log-indent", config.EnvBoolOrDefault("SNAKE_LOG_INDENT", false), "Indent JSON log records")
	logLevel := flag.String("log-level", config.EnvOrDefault("SNAKE_LOG_LEVEL", "info"), "debug, info, warn or error")
	ringSize := flag.Int("ring-size", config.EnvIntOrDefault("SNAKE_RING_SIZE", logging.DefaultRingSize), "Log lines kept for the debug panel")
	traceDir := flag.String("trace-dir", config.EnvOrDefault("SNAKE_TRACE_DIR", ""), "Directory for parquet traces of provider exchanges (empty disables)")
	traceFlush := flag.Int("trace-flush", config.EnvIntOrDefault("SNAKE_TRACE_FLUSH", trace.DefaultFlushRows), "Exchanges per trace file")
	provider := flag.String("provider", config.EnvOrDefault("SNAKE_PROVIDER", ""), "Start in autopilot mode with this provider (empty starts in player mode)")
	dumpTrace := flag.String("dump-trace", "", "Print the exchanges recorded in this trace directory and exit")
	flag.Parse()

	if *dumpTrace != "" {
		if err := printTrace(*dumpTrace); err != nil {
			log.Fatalf("dump trace: %v", err)
		}
		return
	}

	policy, err := rules.ParseFoodPolicy(*foodPolicy)
	if err != nil {
		log.Fatalf("invalid -food-policy: %v", err)
	}
	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		log.Fatalf("invalid -log-level: %v", err)
	}

	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer f.Close()

	ring := logging.NewRing(*ringSize, slog.LevelDebug)
	fileHandler := logging.NewPrettyJSONHandler(f, &logging.Options{
		HandlerOptions: slog.HandlerOptions{Level: level},
		Indent:         *logIndent,
	})
	logger := slog.New(logging.NewFanout(fileHandler, ring))
	slog.SetDefault(logger)
	log.SetOutput(f)

	file, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	registry := config.Build(file, logger)
	defer registry.Close()
	logger.Info("providers ready", "config", *configPath, "providers", fmt.Sprint(registry.Order))

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	ch := autopilot.NewChannel()
	worker := autopilot.NewWorker(autopilot.DefaultConfig(), ch, registry.Providers, logger.With("component", "worker"))

	var recorder *trace.Recorder
	if *traceDir != "" {
		recorder, err = trace.NewRecorder(*traceDir, *traceFlush, logger)
		if err != nil {
			log.Fatalf("create trace recorder: %v", err)
		}
		worker.SetRecorder(recorder)
	}

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("worker stopped", "err", err)
		}
	}()

	cfg := rules.DefaultConfig()
	cfg.FoodPolicy = policy
	cfg.StallTicks = *stallTicks
	cfg.Providers = registry.Order

	board := tui.NewBoard()
	pilot := command.NewAutopilotSource(ch, logger.With("component", "autopilot"))
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	machine := rules.NewMachine(cfg, board, pilot, rng, logger.With("component", "game"))
	if *provider != "" {
		id := game.ProviderID(*provider)
		if _, ok := registry.Providers[id]; !ok {
			log.Fatalf("unknown -provider %q (have %v)", *provider, registry.Order)
		}
		machine.SetMode(game.AutopilotMode(id))
	}

	p := tea.NewProgram(tui.NewModel(machine, board, ring, *tick, logger), tea.WithAltScreen(), tea.WithContext(ctx))
	_, runErr := p.Run()

	// In-flight provider calls are abandoned.
	cancel()
	<-workerDone
	if recorder != nil {
		if err := recorder.Close(); err != nil {
			logger.Error("close trace", "err", err)
		}
	}
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		log.Fatal(runErr)
	}
	fmt.Printf("Final score: %d\n", machine.Score())
}

func printTrace(dir string) error {
	rows, err := trace.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, r := range rows {
		outcome := r.Commands
		if r.Error != "" {
			outcome = "error: " + r.Error
		}
		fmt.Printf("%s seq=%d provider=%s head=(%d,%d) food=(%d,%d) dir=%s %dms %s\n",
			time.Unix(0, r.StartedAt).Format(time.RFC3339), r.Seq, r.Provider,
			r.HeadX, r.HeadY, r.FoodX, r.FoodY, r.Direction, r.LatencyMs, outcome)
	}
	fmt.Printf("%d exchanges\n", len(rows))
	return nil
}
