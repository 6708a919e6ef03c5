package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"trainload/internal/api"
	"trainload/internal/auth"
	"trainload/internal/config"
	"trainload/internal/export"
	"trainload/internal/service"
	"trainload/internal/store"
	"trainload/internal/strava"
	"trainload/internal/tui"
)

const usage = `Usage: trainload [--config path] <command> [args]

Commands:
  tui                 interactive dashboard (default)
  sync                fetch new activities and streams from Strava
  import FILE...      import FIT activity files
  wellness FILE.csv   import HRV, sleep and resting HR (date,hrv,sleep_hours,resting_hr)
  serve               serve the read-only HTTP API
  export [--out DIR]  write load, readiness and peaks as parquet files
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("trainload", flag.ExitOnError)
	configPath := fs.String("config", "", "config file (default ~/.trainload/config.json)")
	fs.Usage = func() { fmt.Fprint(fs.Output(), usage) }
	if err := fs.Parse(args); err != nil {
		return err
	}

	command := "tui"
	rest := fs.Args()
	if len(rest) > 0 {
		command, rest = rest[0], rest[1:]
	}

	cfg, err := loadConfig(*configPath)
	if err != nil || cfg == nil {
		return err
	}

	logger, closeLog, err := newLogger(cfg, command == "tui")
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPath, err := cfg.DatabasePath()
	if err != nil {
		return err
	}
	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	pipeline := service.NewPipeline(db, service.PipelineOptions{
		Constants:           cfg.LoadConstants(),
		MonotonySentinel:    cfg.Load.MonotonySentinel,
		Coverage:            cfg.Peaks.Coverage,
		BaselineDays:        cfg.Readiness.BaselineDays,
		SimulateWhenMissing: cfg.Wellness.SimulateWhenMissing,
		Seed:                cfg.AthleteSettings(),
	}, logger)

	switch command {
	case "tui":
		return runTUI(ctx, cfg, db, pipeline, logger)
	case "sync":
		return runSync(ctx, cfg, db, pipeline, logger)
	case "import":
		return runImport(rest, db, pipeline, logger)
	case "wellness":
		return runWellness(rest, db)
	case "serve":
		return runServe(ctx, cfg, pipeline, logger)
	case "export":
		return runExport(ctx, rest, cfg, pipeline)
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

// loadConfig returns a nil config without error when an example was just written
func loadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path == "" {
		path, err = config.ConfigPath()
		if err != nil {
			return nil, err
		}
	}
	cfg, err = config.LoadFile(path)
	if errors.Is(err, config.ErrNoConfig) {
		fmt.Println("No config file found. Creating example config...")
		if err := config.CreateExampleFile(path); err != nil {
			return nil, fmt.Errorf("creating example config: %w", err)
		}
		fmt.Printf("\nPlease edit the config file at:\n  %s\n\n", path)
		fmt.Println("Add your heart rate anchors, and Strava API credentials to sync.")
		fmt.Println("Get them from: https://www.strava.com/settings/api")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w (edit %s)", err, path)
	}
	return cfg, nil
}

// newLogger writes to stderr, or to ~/.trainload/trainload.log while the TUI
// owns the terminal
func newLogger(cfg *config.Config, toFile bool) (*slog.Logger, func(), error) {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel()}
	if !toFile {
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), func() {}, nil
	}

	dir, err := config.GetConfigDir()
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, fmt.Errorf("creating config directory: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "trainload.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	return slog.New(slog.NewJSONHandler(f, opts)), func() { f.Close() }, nil
}

// stravaClient returns a client with a refreshing token, running the OAuth
// flow first when nothing usable is stored
func stravaClient(ctx context.Context, cfg *config.Config, db *store.DB, logger *slog.Logger) (*strava.Client, error) {
	oauthCfg := auth.NewOAuthConfig(auth.Config{
		ClientID:     cfg.Strava.ClientID,
		ClientSecret: cfg.Strava.ClientSecret,
		CallbackPort: cfg.Strava.CallbackPort,
	})

	storedAuth, err := db.GetAuth()
	if errors.Is(err, store.ErrNoAuth) {
		fmt.Println("No authentication found. Starting OAuth flow...")
		if storedAuth, err = authenticate(ctx, db, cfg, logger); err != nil {
			return nil, fmt.Errorf("authentication: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("checking auth: %w", err)
	}

	tokenSource := auth.NewPersistentTokenSource(oauthCfg, auth.TokenFromAuth(storedAuth), db).WithContext(ctx)

	// Test token is valid by getting a fresh one
	if _, err := tokenSource.Token(); err != nil {
		fmt.Println("Stored token is invalid or expired. Re-authenticating...")
		if storedAuth, err = authenticate(ctx, db, cfg, logger); err != nil {
			return nil, fmt.Errorf("re-authentication: %w", err)
		}
		tokenSource = auth.NewPersistentTokenSource(oauthCfg, auth.TokenFromAuth(storedAuth), db).WithContext(ctx)
	}

	return strava.NewClient(tokenSource), nil
}

func authenticate(ctx context.Context, db *store.DB, cfg *config.Config, logger *slog.Logger) (*store.Auth, error) {
	oauthCfg := auth.NewOAuthConfig(auth.Config{
		ClientID:     cfg.Strava.ClientID,
		ClientSecret: cfg.Strava.ClientSecret,
		CallbackPort: cfg.Strava.CallbackPort,
	})

	result, err := auth.Authenticate(ctx, oauthCfg, cfg.Strava.CallbackPort, os.Stdout, logger)
	if err != nil {
		return nil, err
	}

	storedAuth := result.StoreAuth()
	if err := db.SaveAuth(storedAuth); err != nil {
		return nil, fmt.Errorf("saving auth: %w", err)
	}

	fmt.Println()
	fmt.Printf("Successfully authenticated as athlete %d!\n", result.AthleteID)
	return storedAuth, nil
}

func runTUI(ctx context.Context, cfg *config.Config, db *store.DB, pipeline *service.Pipeline, logger *slog.Logger) error {
	// Without credentials the TUI still works over imported activities
	var syncSvc *service.SyncService
	if cfg.ValidateStrava() == nil {
		client, err := stravaClient(ctx, cfg, db, logger)
		if err != nil {
			return err
		}
		syncSvc = service.NewSyncService(client, db, pipeline, logger)
	}
	querySvc := service.NewQueryService(db, pipeline)

	app := tui.NewApp(pipeline, querySvc, syncSvc, tui.NewUnits(cfg.Display), cfg.PeakLookback(), logger)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}

func runSync(ctx context.Context, cfg *config.Config, db *store.DB, pipeline *service.Pipeline, logger *slog.Logger) error {
	if err := cfg.ValidateStrava(); err != nil {
		return err
	}
	client, err := stravaClient(ctx, cfg, db, logger)
	if err != nil {
		return err
	}

	progress := make(chan service.SyncProgress, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for p := range progress {
			if p.Total > 0 {
				fmt.Printf("\r%-10s %d/%d", p.Phase, p.Completed, p.Total)
			}
		}
		fmt.Println()
	}()

	result, err := service.NewSyncService(client, db, pipeline, logger).SyncAll(ctx, progress)
	<-done
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	fmt.Printf("Stored %d activities, downloaded %d streams\n", result.ActivitiesStored, result.StreamsFetched)
	if result.RateLimited {
		fmt.Printf("Rate limit reached, %d streams left for the next sync\n", result.StreamsPending)
	}
	for _, e := range result.Errors {
		fmt.Fprintf(os.Stderr, "  %v\n", e)
	}
	return nil
}

func runImport(paths []string, db *store.DB, pipeline *service.Pipeline, logger *slog.Logger) error {
	if len(paths) == 0 {
		return errors.New("import needs at least one FIT file")
	}

	result := service.NewImportService(db, pipeline, logger).ImportFiles(paths)
	for _, a := range result.Imported {
		fmt.Printf("Imported %s  %s  %s\n", a.StartDateLocal.Format("2006-01-02"), a.Sport, a.Name)
	}
	for _, e := range result.Errors {
		fmt.Fprintf(os.Stderr, "  %v\n", e)
	}
	if len(result.Imported) == 0 && len(result.Errors) > 0 {
		return fmt.Errorf("no files imported (%d failed)", len(result.Errors))
	}
	return nil
}

func runWellness(args []string, db *store.DB) error {
	if len(args) != 1 {
		return errors.New("wellness needs one CSV file, or - for stdin")
	}

	var r io.Reader = os.Stdin
	source := "stdin"
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
		source = filepath.Base(args[0])
	}

	n, err := service.ImportWellnessCSV(db, r, source)
	if err != nil {
		return fmt.Errorf("importing wellness: %w", err)
	}
	total, err := db.CountMeasuredWellness()
	if err != nil {
		return fmt.Errorf("counting wellness: %w", err)
	}
	fmt.Printf("Stored %d wellness days (%d measured days in total)\n", n, total)
	return nil
}

func runServe(ctx context.Context, cfg *config.Config, pipeline *service.Pipeline, logger *slog.Logger) error {
	handler := api.NewHandler(pipeline, cfg.PeakLookback(), logger)
	return api.NewServer(cfg.Server.Address, handler.Routes(), logger).Run(ctx)
}

func runExport(ctx context.Context, args []string, cfg *config.Config, pipeline *service.Pipeline) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	out := fs.String("out", ".", "output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	snap, err := pipeline.Compute(ctx, service.ComputeOptions{
		Lookback: cfg.PeakLookback(),
		Now:      time.Now(),
	})
	if err != nil {
		return err
	}

	paths, err := export.WriteSnapshot(*out, snap)
	if err != nil {
		return fmt.Errorf("exporting: %w", err)
	}
	for _, p := range paths {
		fmt.Println(p)
	}
	return nil
}
