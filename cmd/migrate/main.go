package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strconv"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/boletohub/backend/internal/infrastructure/config"
	"github.com/boletohub/backend/internal/infrastructure/logger"
	"github.com/boletohub/backend/internal/infrastructure/migration"
)

const defaultMigrationsPath = "migrations"

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: migrate <command> [args]

Commands:
  up              apply all pending migrations
  down            roll back the last migration
  steps <n>       apply n migrations (negative rolls back)
  goto <version>  migrate to a specific version
  force <version> set the version without running migrations
  version         print the current version
  create <name>   create a new migration file pair
  list            list the migration pairs on disk
`)
	os.Exit(2)
}

func main() {
	path := flag.String("path", defaultMigrationsPath, "migrations directory")
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	command := flag.Arg(0)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}
	log, err := logger.NewForEnvironment(cfg.App.Env)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logger:", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	if command == "list" {
		names, err := migration.ListMigrations(*path)
		if err != nil {
			log.Fatal("Failed to list migrations", zap.Error(err))
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return
	}

	if command == "create" {
		if flag.NArg() < 2 {
			usage()
		}
		pair, err := migration.CreateMigration(*path, flag.Arg(1))
		if err != nil {
			log.Fatal("Failed to create migration", zap.Error(err))
		}
		log.Info("Migration created",
			zap.String("up", pair.UpPath),
			zap.String("down", pair.DownPath),
		)
		return
	}

	var migrator *migration.Migrator
	if url := cfg.Database.URL; url != "" {
		migrator, err = migration.NewFromURL(url, *path, log)
	} else {
		var db *sql.DB
		db, err = sql.Open("postgres", databaseDSN(&cfg.Database))
		if err != nil {
			log.Fatal("Failed to open database", zap.Error(err))
		}
		defer func() {
			_ = db.Close()
		}()
		migrator, err = migration.New(db, *path, log)
	}
	if err != nil {
		log.Fatal("Failed to initialize migrator", zap.Error(err))
	}
	defer func() {
		_ = migrator.Close()
	}()

	switch command {
	case "up":
		err = migrator.Up()
	case "down":
		err = migrator.Down()
	case "steps":
		if flag.NArg() < 2 {
			usage()
		}
		var n int
		n, err = strconv.Atoi(flag.Arg(1))
		if err == nil {
			err = migrator.Steps(n)
		}
	case "goto":
		if flag.NArg() < 2 {
			usage()
		}
		var v uint64
		v, err = strconv.ParseUint(flag.Arg(1), 10, 32)
		if err == nil {
			err = migrator.GoTo(uint(v))
		}
	case "force":
		if flag.NArg() < 2 {
			usage()
		}
		var v int
		v, err = strconv.Atoi(flag.Arg(1))
		if err == nil {
			err = migrator.Force(v)
		}
	case "version":
		version, dirty, verr := migrator.Version()
		if verr != nil {
			log.Fatal("Failed to read version", zap.Error(verr))
		}
		log.Info("Current migration version",
			zap.Uint("version", version),
			zap.Bool("dirty", dirty),
		)
		return
	default:
		usage()
	}

	if err != nil {
		log.Fatal("Migration failed", zap.String("command", command), zap.Error(err))
	}
	log.Info("Migration complete", zap.String("command", command))
}

func databaseDSN(cfg *config.DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
}
