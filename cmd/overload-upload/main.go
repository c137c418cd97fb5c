package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/claude/overload/internal/upload"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "Overload server URL (e.g. https://overload.tail1234.ts.net)")
	exportPath := flag.String("path", "", "directory of Alpha Progression CSV exports")
	apiKey := flag.String("api-key", os.Getenv("OVERLOAD_API_KEY"), "server API key (default $OVERLOAD_API_KEY)")
	dryRun := flag.Bool("dry-run", false, "parse exports but don't send to server")
	watch := flag.Duration("watch", 0, "rescan the directory at this interval instead of exiting (e.g. 5m)")
	status := flag.Bool("status", false, "list uploaded exports and exit")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("overload-upload", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Open state database
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Error("failed to get home directory", "error", err)
		os.Exit(1)
	}
	state, err := upload.OpenStateDB(filepath.Join(homeDir, ".overload-upload"))
	if err != nil {
		log.Error("failed to open state database", "error", err)
		os.Exit(1)
	}
	defer state.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *status {
		records, err := state.List(ctx)
		if err != nil {
			log.Error("failed to list uploads", "error", err)
			os.Exit(1)
		}
		for _, r := range records {
			fmt.Printf("%s  %s  sessions=%d sets=%d\n", r.UploadedAt.Local().Format(time.DateTime), r.Path, r.Sessions, r.SetsInserted)
		}
		return
	}

	if *exportPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: overload-upload -server <URL> -path <exports dir> [-api-key KEY] [-watch 5m] [-dry-run]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if !*dryRun && (*serverURL == "" || *apiKey == "") {
		fmt.Fprintf(os.Stderr, "Error: -server and -api-key are required (or use -dry-run)\n")
		os.Exit(1)
	}
	info, err := os.Stat(*exportPath)
	if err != nil || !info.IsDir() {
		log.Error("export directory not found", "path", *exportPath)
		os.Exit(1)
	}

	client := upload.NewClient(*serverURL, *apiKey)
	defer client.Close()

	if *dryRun {
		log.Info("DRY RUN mode: exports will be parsed but not sent")
	} else if err := client.Ping(ctx); err != nil {
		log.Error("server unreachable", "error", err)
		os.Exit(1)
	}

	uploader := upload.New(client, state, *exportPath, *dryRun, log)
	for {
		stats, err := uploader.Run(ctx)
		if stats != nil {
			printStats(stats)
		}
		if err != nil && ctx.Err() == nil {
			log.Error("upload failed", "error", err)
			if *watch == 0 {
				os.Exit(1)
			}
		}
		if *watch == 0 {
			break
		}
		select {
		case <-ctx.Done():
			log.Info("stopping")
			return
		case <-time.After(*watch):
		}
	}
	log.Info("upload complete")
}

func printStats(stats *upload.Stats) {
	fmt.Println()
	fmt.Println("=== Upload Summary ===")
	fmt.Printf("  Files total:       %d\n", stats.FilesTotal)
	fmt.Printf("  Files uploaded:    %d\n", stats.FilesUploaded)
	fmt.Printf("  Files skipped:     %d (already uploaded)\n", stats.FilesSkipped)
	fmt.Printf("  Files errored:     %d\n", stats.FilesErrored)
	fmt.Println()
	fmt.Printf("  Sessions received: %d\n", stats.Server.SessionsReceived)
	fmt.Printf("  Sessions inserted: %d\n", stats.Server.SessionsInserted)
	fmt.Printf("  Sessions replaced: %d\n", stats.Server.SessionsReplaced)
	fmt.Printf("  Exercises created: %d\n", stats.Server.ExercisesCreated)
	fmt.Printf("  Sets inserted:     %d\n", stats.Server.SetsInserted)
	fmt.Println()
}
