package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	app "github.com/docforge/backend/internal/application/printing"
	"github.com/docforge/backend/internal/domain/printing"
	"github.com/docforge/backend/internal/infrastructure/config"
	"github.com/docforge/backend/internal/infrastructure/logger"
	"github.com/docforge/backend/internal/infrastructure/persistence"
	infra "github.com/docforge/backend/internal/infrastructure/printing"
	"github.com/docforge/backend/internal/infrastructure/storage"
	"github.com/docforge/backend/internal/infrastructure/telemetry"
)

type encoderFactory func(cfg *config.Config, files *storage.FileStore, log *zap.Logger) (infra.Encoder, error)

// App is the wired process for one command invocation
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Files   *storage.FileStore
	Service *app.GenerationService

	db       *persistence.Database
	encoder  infra.Encoder
	tracer   *telemetry.TracerProvider
	registry *prometheus.Registry
}

// openApp loads configuration and builds the generation service.
// Without withDB the template and asset repositories are left unset, which
// only the stateless render command relies on.
func openApp(ctx context.Context, opts *RootOptions, withDB bool) (*App, error) {
	cfg, err := config.LoadFrom(opts.ConfigFile)
	if err != nil {
		return nil, err
	}

	logCfg := &logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output}
	if opts.Verbose {
		logCfg.Level = "debug"
	}
	log, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	a := &App{Config: cfg, Logger: log, registry: prometheus.NewRegistry()}
	if err := a.wire(ctx, opts, withDB); err != nil {
		a.Close(context.WithoutCancel(ctx))
		return nil, err
	}
	return a, nil
}

func (a *App) wire(ctx context.Context, opts *RootOptions, withDB bool) error {
	cfg, log := a.Config, a.Logger

	tracer, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return err
	}
	a.tracer = tracer

	metrics, err := telemetry.NewGenerationMetrics(a.registry)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	var (
		templates printing.TemplateRepository
		assets    printing.AssetRepository
	)
	if withDB {
		if err := a.openDatabase(ctx); err != nil {
			return err
		}
		templates = persistence.NewGormTemplateRepository(a.db.DB)
		assets = persistence.NewGormAssetRepository(a.db.DB)
	}

	files, err := storage.NewFileStore(storage.FileStoreConfig{
		BasePath: cfg.Storage.BasePath,
		BaseURL:  cfg.Storage.BaseURL,
		Optimize: cfg.Storage.Optimize,
		Logger:   log.Named("storage"),
	})
	if err != nil {
		return err
	}
	a.Files = files

	newEncoder := opts.newEncoder
	if newEncoder == nil {
		newEncoder = configuredEncoder
	}
	encoder, err := newEncoder(cfg, files, log.Named("encoder"))
	if err != nil {
		return err
	}
	a.encoder = encoder

	pageSize, err := cfg.Printing.ParsedPageSize()
	if err != nil {
		return err
	}
	styles, err := infra.NewStyleComposer(cfg.Printing.DefaultFontFamily, pageSize)
	if err != nil {
		return err
	}

	serviceOpts := []app.Option{app.WithLogger(log.Named("generation")), app.WithMetrics(metrics)}
	mirror, err := storage.NewObjectStore(&cfg.Storage, log.Named("mirror"))
	if err != nil {
		return err
	}
	if mirror != nil {
		if err := mirror.EnsureBucket(ctx); err != nil {
			log.Warn("document mirror unavailable, continuing with local storage only",
				zap.String("bucket", mirror.Bucket()), zap.Error(err))
		} else {
			serviceOpts = append(serviceOpts, app.WithMirror(mirror))
		}
	}

	a.Service = app.NewGenerationService(templates, assets, files, styles, encoder, app.Config{
		Strict:         cfg.Generation.Strict,
		PageSize:       pageSize,
		EncodeTimeout:  cfg.Printing.Timeout,
		TempCleanupAge: cfg.Generation.TempCleanupAge,
		PresignExpiry:  cfg.Storage.PresignExpiration,
		QRModuleSize:   cfg.Printing.QRModuleSize,
		Engine:         cfg.Printing.Engine,
	}, serviceOpts...)
	return nil
}

// openDatabase connects and, for sqlite, creates the schema.
// PostgreSQL schemas are applied with the migrate command.
func (a *App) openDatabase(ctx context.Context) error {
	cfg := a.Config
	tracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:        cfg.Database.Driver,
	}, a.Logger)

	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithLogger(a.Logger.Named("gorm"), cfg.Log.Level),
		persistence.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		persistence.WithTracing(tracing))
	if err != nil {
		return err
	}
	a.db = db

	if db.Driver() == "sqlite" {
		if err := db.AutoMigrate(ctx); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

func configuredEncoder(cfg *config.Config, files *storage.FileStore, log *zap.Logger) (infra.Encoder, error) {
	switch cfg.Printing.Engine {
	case "wkhtmltopdf":
		return infra.NewWkhtmltopdfEncoder(infra.WkhtmltopdfConfig{
			BinaryPath:     cfg.Printing.WkhtmltopdfPath,
			DefaultTimeout: cfg.Printing.Timeout,
			TempDir:        files.TempPath(),
			Logger:         log,
		})
	default:
		return infra.NewChromedpEncoder(infra.ChromedpConfig{
			DefaultTimeout: cfg.Printing.Timeout,
			RemoteURL:      cfg.Printing.ChromeRemoteURL,
			NoSandbox:      cfg.Printing.NoSandbox,
			Logger:         log,
		}), nil
	}
}

// Close releases everything openApp acquired and writes the metrics textfile
// when one is configured. It is safe on a partially wired App.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.encoder != nil {
		errs = append(errs, a.encoder.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if a.tracer != nil {
		errs = append(errs, a.tracer.Shutdown(ctx))
	}
	if path := a.Config.Telemetry.MetricsTextfile; path != "" {
		if err := telemetry.WriteTextfile(path, a.registry); err != nil {
			errs = append(errs, fmt.Errorf("failed to write metrics: %w", err))
		}
	}
	err := errors.Join(errs...)
	if err != nil {
		a.Logger.Warn("shutdown incomplete", zap.Error(err))
	}
	_ = logger.Sync(a.Logger)
	return err
}

// runWithApp opens the App for one command and closes it afterwards
func runWithApp(cmd *cobra.Command, opts *RootOptions, withDB bool, fn func(a *App) error) error {
	a, err := openApp(cmd.Context(), opts, withDB)
	if err != nil {
		return WrapExitError(ExitCommandError, "startup failed", err)
	}
	defer a.Close(context.WithoutCancel(cmd.Context()))

	ctx, log := logger.WithRequestID(cmd.Context(), a.Logger, uuid.NewString())
	cmd.SetContext(ctx)
	log.Debug("command started", zap.String("command", cmd.CommandPath()))

	err = fn(a)
	if err != nil {
		logger.FromContext(ctx).Debug("command failed", zap.Error(err))
	}
	return err
}
