package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	ossignal "os/signal"

	"github.com/tailored-agentic-units/mirror/codec"
	"github.com/tailored-agentic-units/mirror/engine"
	"github.com/tailored-agentic-units/mirror/mirror"
	"github.com/tailored-agentic-units/mirror/signal"
)

func main() {
	var (
		configFile = flag.String("config", "", "Path to mirror config JSON file")
		driver     = flag.String("driver", "", "Backing driver: memory, file, sqlite (overrides config)")
		path       = flag.String("path", "", "File root or sqlite database path (overrides config)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging to stderr")
	)
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: mirror [flags] <get|set|del|list|watch> [key] [value]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *driver != "" {
		cfg.Backing.Driver = *driver
	}
	if *path != "" {
		cfg.Backing.Path = *path
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	command := flag.Arg(0)
	if command == "watch" {
		cfg.Sync.Watch = true
	}

	m, err := mirror.New(cfg, mirror.WithLogger(logger))
	if err != nil {
		log.Fatalf("Failed to create mirror: %v", err)
	}
	defer m.Close()

	ctx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, m, command, flag.Args()[1:]); err != nil {
		log.Fatalf("Command failed: %v", err)
	}
}

func loadConfig(filename string) (*mirror.Config, error) {
	if filename != "" {
		return mirror.LoadConfig(filename)
	}
	cfg := mirror.DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func run(ctx context.Context, m *mirror.Mirror, command string, args []string) error {
	switch command {
	case "get":
		if len(args) < 1 {
			return fmt.Errorf("get requires a key")
		}
		return runGet(ctx, m, args[0])
	case "set":
		if len(args) < 2 {
			return fmt.Errorf("set requires a key and a value")
		}
		return runSet(ctx, m, args[0], args[1])
	case "del":
		if len(args) < 1 {
			return fmt.Errorf("del requires a key")
		}
		if m.Store() == nil {
			return nil
		}
		if err := m.Store().Delete(ctx, args[0]); err != nil {
			return err
		}
		if m.Bus() != nil {
			m.Bus().Publish(ctx, signal.NewRemove(m.Store().ID(), m.Runtime().ID(), args[0]))
		}
		return nil
	case "list":
		return runList(ctx, m)
	case "watch":
		if len(args) < 1 {
			return fmt.Errorf("watch requires a key")
		}
		return runWatch(ctx, m, args[0])
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

func runGet(ctx context.Context, m *mirror.Mirror, key string) error {
	slot, err := openRaw(ctx, m, key)
	if err != nil {
		return err
	}
	value, err := slot.Snapshot(ctx)
	if err != nil {
		return err
	}
	switch {
	case value.IsAbsent():
		fmt.Println("(absent)")
	case value.IsNull():
		fmt.Println("(null)")
	default:
		raw, _ := value.Get()
		fmt.Println(raw)
	}
	return nil
}

func runSet(ctx context.Context, m *mirror.Mirror, key, value string) error {
	slot, err := openRaw(ctx, m, key)
	if err != nil {
		return err
	}
	return slot.Set(ctx, value)
}

func runList(ctx context.Context, m *mirror.Mirror) error {
	if m.Store() == nil {
		return nil
	}
	keys, err := m.Store().List(ctx)
	if err != nil {
		return err
	}
	for _, key := range keys {
		fmt.Println(key)
	}
	return nil
}

func runWatch(ctx context.Context, m *mirror.Mirror, key string) error {
	slot, err := openRaw(ctx, m, key)
	if err != nil {
		return err
	}

	report := func() {
		value, err := slot.Snapshot(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "snapshot failed: %v\n", err)
			return
		}
		switch {
		case value.IsAbsent():
			fmt.Printf("%s: (absent)\n", key)
		case value.IsNull():
			fmt.Printf("%s: (null)\n", key)
		default:
			raw, _ := value.Get()
			fmt.Printf("%s: %s\n", key, raw)
		}
	}

	detach := slot.Subscribe(engine.NewListener(report))
	defer detach()

	if err := m.Start(ctx); err != nil {
		return err
	}

	report()
	<-ctx.Done()
	return nil
}

// openRaw opens key as an uninterpreted string slot, letting get and set
// work with whatever encoding the stored value uses.
func openRaw(ctx context.Context, m *mirror.Mirror, key string) (engine.Slot[string], error) {
	return mirror.Slot[string](ctx, m, key, engine.WithCodec(codec.String()))
}
