package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"famcal/internal/config"
	"famcal/internal/ics"
	"famcal/internal/intake"
	"famcal/internal/lexicon"
	appLog "famcal/internal/log"
	"famcal/internal/model"
	"famcal/internal/retention"
	"famcal/internal/route"
	"famcal/internal/store"
	"famcal/internal/web"
)

type flagConfig struct {
	configPath string
	listen     string
	parse      string
	events     string
	pruneNow   bool
}

// writer is what the intake service and the retention job need from a
// calendar backend.
type writer interface {
	intake.Writer
	retention.Pruner
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	conf.ApplyEnv(os.Environ())

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	appLog.Info("famcal starting", "version", "0.1.0")

	loc, err := time.LoadLocation(conf.Timezone)
	if err != nil {
		appLog.Warn("unknown timezone, falling back to local", "timezone", conf.Timezone, "err", err)
		loc = time.Local
	}

	tables := lexicon.FromConfig(conf)
	registry := route.FromConfig(conf)
	parser := intake.NewParser(tables, loc)

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", loc.String(),
		"users", len(conf.Users),
		"calendars", registry.Len(),
		"writer", conf.Writer.Backend,
		"retention_cron", conf.Retention.Cron,
	)

	// --parse prints the structured event without routing or writing.
	if flags.parse != "" {
		ev := parser.Parse(flags.parse, "")
		calendarID, _ := registry.Route(ev.Person, ev.Category)
		out, _ := json.MarshalIndent(intake.Summarize(ev, calendarID, model.Receipt{}), "", "  ")
		fmt.Println(string(out))
		return
	}

	w, closeWriter, err := openWriter(conf)
	if err != nil {
		appLog.Error("failed to open calendar writer", err, "backend", conf.Writer.Backend)
		os.Exit(1)
	}
	defer closeWriter()

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if flags.events != "" {
		if err := printEvents(ctx, w, conf, flags.events); err != nil {
			appLog.Error("failed to list events", err, "key", flags.events)
			os.Exit(1)
		}
		return
	}

	var sched *retention.Scheduler
	if conf.Retention.Cron != "" {
		sched, err = retention.New(conf.Retention.Cron, conf.Retention.KeepDays, w, loc)
		if err != nil {
			appLog.Error("invalid retention schedule", err)
			os.Exit(1)
		}
	}

	if flags.pruneNow {
		if sched == nil {
			appLog.Info("retention disabled; nothing to prune")
			return
		}
		if _, err := sched.RunOnce(ctx); err != nil {
			appLog.Error("prune failed", err)
			os.Exit(1)
		}
		return
	}

	if sched != nil {
		sched.Start()
		defer func() {
			stopCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
			defer stop()
			sched.Stop(stopCtx)
		}()
	}

	svc := intake.NewService(parser, registry, w)
	srv := web.NewServer(conf, svc)
	if err := srv.Run(ctx); err != nil {
		appLog.Error("HTTP server failed", err, "listen", conf.Listen)
		os.Exit(1)
	}

	appLog.Info("famcal exiting")
}

func openWriter(conf *config.Config) (writer, func(), error) {
	switch conf.Writer.Backend {
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(conf.Writer.SQLitePath), 0o700); err != nil {
			return nil, nil, err
		}
		db, err := store.Open(conf.Writer.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return db, func() {
			if err := db.Close(); err != nil {
				appLog.Error("failed to close database", err)
			}
		}, nil
	default:
		return ics.NewStore(conf.Writer.ICSDir), func() {}, nil
	}
}

// printEvents writes the events stored for a routing key to stdout.
func printEvents(ctx context.Context, w writer, conf *config.Config, key string) error {
	calendarID, ok := conf.Calendars[strings.ToLower(key)]
	if !ok {
		return fmt.Errorf("no calendar configured for %q", key)
	}

	var (
		events any
		err    error
	)
	switch s := w.(type) {
	case *ics.Store:
		events, err = s.Events(calendarID)
	case *store.Store:
		events, err = s.Events(ctx, calendarID)
	default:
		return fmt.Errorf("writer %T cannot list events", w)
	}
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/famcal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.parse, "parse", "", "Parse one utterance, print the routed event as JSON and exit")
	flag.StringVar(&cfg.events, "events", "", "Print the stored events of one routing key (e.g. family) as JSON and exit")
	flag.BoolVar(&cfg.pruneNow, "prune-now", false, "Run one retention prune and exit")

	flag.Parse()

	return cfg
}
