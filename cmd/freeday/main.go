package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dukerupert/freeday/internal/config"
	"github.com/dukerupert/freeday/internal/logging"
)

const usage = `Usage: freeday <command> [options]

Backend:
  serve                  run the HTTP + WebSocket backend
  people add             add a person to the backend database

Client:
  month                  print the visible month
  watch                  live month view; type a day to toggle it
  who <name|id>          choose who you are
  toggle <YYYY-MM-DD>... flip your status for each day
  show all|none|onlyUnavailable
  select <name|id>...    choose whose rows are shown
  lock                   forget the unlocked state

Other:
  hash-password          print an Argon2id hash for FREEDAY_PASSWORD
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cmd, args := os.Args[1], os.Args[2:]

	if cmd == "hash-password" {
		if err := runHashPassword(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cmd, args, cfg, logger); err != nil {
		slog.Error(cmd+" failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd string, args []string, cfg *config.Config, logger *slog.Logger) error {
	switch cmd {
	case "serve":
		return runServe(ctx, cfg, logger)
	case "people":
		return runPeople(args, cfg, logger)
	case "month":
		return runMonth(ctx, args, cfg, logger)
	case "watch":
		return runWatch(ctx, args, cfg, logger)
	case "who":
		return runWho(ctx, args, cfg, logger)
	case "toggle":
		return runToggle(ctx, args, cfg, logger)
	case "show":
		return runShow(ctx, args, cfg, logger)
	case "select":
		return runSelect(ctx, args, cfg, logger)
	case "lock":
		return runLock(cfg, logger)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}
