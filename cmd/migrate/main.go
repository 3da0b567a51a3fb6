package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strconv"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/docforge/backend/internal/infrastructure/config"
	"github.com/docforge/backend/internal/infrastructure/logger"
	"github.com/docforge/backend/internal/infrastructure/migration"
)

const defaultMigrationsDir = "migrations"

func main() {
	var (
		configFile     string
		migrationsPath string
		logLevel       string
	)

	flag.StringVar(&configFile, "config", "", "Config file (default: ./config.toml)")
	flag.StringVar(&migrationsPath, "path", "", "Read migrations from this directory instead of the embedded set")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(2)
	}
	command := args[0]

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	// create and list work on a directory and need no database
	switch command {
	case "create":
		if len(args) < 2 {
			log.Fatal("Migration name required. Usage: migrate create <name> [description]")
		}
		description := ""
		if len(args) > 2 {
			description = args[2]
		}
		mf, err := migration.NewCreator(dirOrDefault(migrationsPath)).Create(args[1], description)
		if err != nil {
			log.Fatal("Failed to create migration", zap.Error(err))
		}
		log.Info("Migration created",
			zap.String("version", mf.Version),
			zap.String("up_file", mf.UpPath),
			zap.String("down_file", mf.DownPath))
		return

	case "list":
		names, err := migration.ListMigrations(dirOrDefault(migrationsPath))
		if err != nil {
			log.Fatal("Failed to list migrations", zap.Error(err))
		}
		if len(names) == 0 {
			log.Info("No migrations found")
			return
		}
		for _, name := range names {
			fmt.Println("  -", name)
		}
		return
	}

	cfg, err := config.LoadFrom(configFile)
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}
	if cfg.Database.Driver != "postgres" {
		log.Fatal("Migrations apply to PostgreSQL only; sqlite databases are created by docgen itself",
			zap.String("driver", cfg.Database.Driver))
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database", zap.Error(err))
	}

	var m *migration.Migrator
	if migrationsPath != "" {
		m, err = migration.New(db, migrationsPath, log)
	} else {
		m, err = migration.NewEmbedded(db, log)
	}
	if err != nil {
		log.Fatal("Failed to create migrator", zap.Error(err))
	}
	defer m.Close()

	switch command {
	case "up":
		err = m.Up()

	case "down":
		err = m.Down()

	case "steps":
		n, convErr := strconv.Atoi(argAt(args, 1, log, "migrate steps <n>"))
		if convErr != nil {
			log.Fatal("Invalid step count", zap.String("value", args[1]))
		}
		err = m.Steps(n)

	case "goto":
		version, convErr := strconv.ParseUint(argAt(args, 1, log, "migrate goto <version>"), 10, 32)
		if convErr != nil {
			log.Fatal("Invalid version number", zap.String("value", args[1]))
		}
		err = m.GoTo(uint(version))

	case "version":
		version, dirty, verr := m.Version()
		if verr != nil {
			log.Fatal("Failed to read version", zap.Error(verr))
		}
		if version == 0 {
			log.Info("No migrations applied")
		} else {
			log.Info("Current migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))
		}

	case "force":
		version, convErr := strconv.Atoi(argAt(args, 1, log, "migrate force <version>"))
		if convErr != nil {
			log.Fatal("Invalid version number", zap.String("value", args[1]))
		}
		log.Warn("Forcing migration version")
		err = m.Force(version)

	default:
		log.Error("Unknown command", zap.String("command", command))
		printUsage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatal("Migration failed", zap.String("command", command), zap.Error(err))
	}
}

func dirOrDefault(path string) string {
	if path == "" {
		return defaultMigrationsDir
	}
	return path
}

func argAt(args []string, i int, log *zap.Logger, usage string) string {
	if len(args) <= i {
		log.Fatal("Missing argument. Usage: " + usage)
	}
	return args[i]
}

func printUsage() {
	fmt.Println(`docgen database migration tool

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    Apply all pending migrations
  down                  Roll back all migrations
  steps <n>             Apply n migrations (positive=up, negative=down)
  goto <version>        Migrate to a specific version
  version               Show current migration version
  force <version>       Force set migration version (use with caution)
  create <name> [desc]  Create a new migration file pair
  list                  List migration files

Flags:
  -config string        Config file (default: ./config.toml)
  -path string          Read migrations from a directory instead of the embedded set
  -log-level string     Log level: debug, info, warn, error (default: info)

Environment Variables:
  DOCGEN_DATABASE_HOST, DOCGEN_DATABASE_PORT, DOCGEN_DATABASE_USER,
  DOCGEN_DATABASE_PASSWORD, DOCGEN_DATABASE_DBNAME, DOCGEN_DATABASE_SSLMODE

Examples:
  migrate up
  migrate steps -1
  migrate create add_document_index "Index documents by template"`)
}
