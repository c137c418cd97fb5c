package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/overload/internal/backup"
	"github.com/claude/overload/internal/config"
	"github.com/claude/overload/internal/importer"
	"github.com/claude/overload/internal/ingest/alpha"
	"github.com/claude/overload/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	exportPath := flag.String("path", "", "directory of Alpha Progression CSV exports")
	backupPath := flag.String("backup", "", "JSON backup file to restore (replaces the user's log)")
	login := flag.String("user", "local", "login of the user to import for (created if missing)")
	dryRun := flag.Bool("dry-run", false, "parse and validate without writing to the database")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if (*exportPath == "") == (*backupPath == "") {
		fmt.Fprintf(os.Stderr, "Usage: overload-import -config config.yaml (-path /path/to/exports | -backup backup.json) [-user login] [-dry-run]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if *exportPath != "" {
		info, err := os.Stat(*exportPath)
		if err != nil || !info.IsDir() {
			log.Error("export path does not exist or is not a directory", "path", *exportPath)
			os.Exit(1)
		}
	}

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	dsn := cfg.Database.DSN()

	// Run migrations
	if err := storage.RunMigrations(dsn, "migrations"); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	ctx := context.Background()

	if *dryRun {
		log.Info("DRY RUN mode: no data will be written to the database")
	}

	// Connect database
	db, err := storage.New(ctx, dsn)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	userID, err := db.GetOrCreateUser(ctx, *login, *login)
	if err != nil {
		log.Error("failed to resolve user", "login", *login, "error", err)
		os.Exit(1)
	}

	imp := importer.New(
		alpha.NewProvider(db, cfg.Progression.Defaults(), log),
		backup.NewService(db, log),
		log,
		*dryRun,
	).WithImportLog(db)

	if *backupPath != "" {
		doc, err := imp.RestoreBackup(ctx, *backupPath, userID)
		if err != nil {
			log.Error("restore failed", "error", err)
			os.Exit(1)
		}
		log.Info("restore complete", "user", *login,
			"exercises", len(doc.Exercises),
			"routines", len(doc.Routines),
			"sessions", len(doc.Sessions),
			"sets", len(doc.Sets),
		)
		return
	}

	stats, err := imp.ImportDir(ctx, *exportPath, userID)
	if err != nil {
		log.Error("import failed", "error", err)
		if stats != nil {
			printStats(log, stats)
		}
		os.Exit(1)
	}

	printStats(log, stats)
	log.Info("import complete")
}

func printStats(log *slog.Logger, stats *importer.Stats) {
	log.Info("import stats",
		"files_processed", stats.FilesProcessed,
		"files_errored", stats.FilesErrored,
		"sessions_received", stats.Result.SessionsReceived,
		"sessions_inserted", stats.Result.SessionsInserted,
		"sessions_replaced", stats.Result.SessionsReplaced,
		"exercises_created", stats.Result.ExercisesCreated,
		"sets_received", stats.Result.SetsReceived,
		"sets_inserted", stats.Result.SetsInserted,
	)
}
