package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/freeday/internal/calendar"
	"github.com/dukerupert/freeday/internal/config"
	"github.com/dukerupert/freeday/internal/database"
	"github.com/dukerupert/freeday/internal/gate"
	"github.com/dukerupert/freeday/internal/metrics"
	"github.com/dukerupert/freeday/internal/prefs"
	"github.com/dukerupert/freeday/internal/remote"
	"github.com/dukerupert/freeday/internal/remotesync"
	"github.com/dukerupert/freeday/internal/session"
	"github.com/dukerupert/freeday/internal/store"
)

const prefsScope = "freeday"

// client wires the local preference database, the backend client, the sync
// controller and the session in front of it.
type client struct {
	db         *sql.DB
	prefs      *prefs.Store
	controller *remotesync.Controller
	session    *session.Session
	metrics    *metrics.Metrics
}

func openClient(cfg *config.Config, logger *slog.Logger, onChange func(remotesync.State)) (*client, error) {
	db, err := database.Open(cfg.ClientDBPath)
	if err != nil {
		return nil, err
	}

	// Preferences are kept per backend.
	kv := store.NewKVStore(db, cfg.ServerURL)
	ps := prefs.New(kv, prefsScope, logger.With("component", "prefs"))
	m := metrics.New()

	backend := remote.NewClient(remote.Config{BaseURL: cfg.ServerURL}, logger.With("component", "remote"))
	ctrl := remotesync.New(backend, remotesync.Config{
		PollInterval: cfg.PollInterval,
		Initial:      ps.Load(),
		Prefs:        ps,
		OnChange:     onChange,
		Metrics:      m,
	}, logger.With("component", "sync"))

	sess := session.New(gate.New(cfg.Password), ps, ctrl, logger.With("component", "session"))

	return &client{
		db:         db,
		prefs:      ps,
		controller: ctrl,
		session:    sess,
		metrics:    m,
	}, nil
}

func (c *client) Close() {
	c.session.Close()
	c.db.Close()
}

// unlock resumes an earlier session or asks for the password.
func (c *client) unlock(ctx context.Context) error {
	if c.session.Restore(ctx) {
		return nil
	}
	password, err := readPassword("Password: ")
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	if err := c.session.Unlock(ctx, password); err != nil {
		if errors.Is(err, gate.ErrWrongPassword) {
			return errors.New("wrong password")
		}
		return err
	}
	return nil
}

// withClient opens and unlocks a client, runs fn, and closes it.
func withClient(ctx context.Context, cfg *config.Config, logger *slog.Logger, onChange func(remotesync.State), fn func(*client) error) error {
	c, err := openClient(cfg, logger, onChange)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.unlock(ctx); err != nil {
		return err
	}
	return fn(c)
}

func (c *client) print() {
	render(os.Stdout, c.controller.Snapshot(), time.Now())
}

func runMonth(ctx context.Context, args []string, cfg *config.Config, logger *slog.Logger) error {
	fs := flag.NewFlagSet("month", flag.ContinueOnError)
	at := fs.String("at", "", "month to show, YYYY-MM")
	next := fs.Bool("next", false, "move one month forward")
	prev := fs.Bool("prev", false, "move one month back")
	today := fs.Bool("today", false, "jump to the current month")
	if err := fs.Parse(args); err != nil {
		return err
	}

	return withClient(ctx, cfg, logger, nil, func(c *client) error {
		switch {
		case *at != "":
			t, err := time.ParseInLocation("2006-01", *at, time.Local)
			if err != nil {
				return fmt.Errorf("parse -at: %w", err)
			}
			c.controller.SetCursor(ctx, t)
		case *next:
			c.controller.NextMonth(ctx)
		case *prev:
			c.controller.PrevMonth(ctx)
		case *today:
			c.controller.GoToToday(ctx)
		}
		c.print()
		return nil
	})
}

func runWho(ctx context.Context, args []string, cfg *config.Config, logger *slog.Logger) error {
	return withClient(ctx, cfg, logger, nil, func(c *client) error {
		s := c.controller.Snapshot()
		if len(args) == 0 {
			if p, ok := findPerson(s.People, s.CurrentUserID); ok {
				fmt.Println(p.Name)
			} else {
				fmt.Println("nobody")
			}
			return nil
		}

		if args[0] == "-" {
			return c.controller.SetCurrentUser("")
		}
		p, ok := findPerson(s.People, strings.Join(args, " "))
		if !ok {
			return fmt.Errorf("no person %q", strings.Join(args, " "))
		}
		if err := c.controller.SetCurrentUser(p.ID); err != nil {
			return err
		}
		fmt.Printf("You are %s.\n", p.Name)
		return nil
	})
}

func runToggle(ctx context.Context, args []string, cfg *config.Config, logger *slog.Logger) error {
	if len(args) == 0 {
		return errors.New("usage: freeday toggle YYYY-MM-DD...")
	}
	return withClient(ctx, cfg, logger, nil, func(c *client) error {
		for _, day := range args {
			if err := c.controller.ToggleDay(ctx, day); err != nil {
				if errors.Is(err, remotesync.ErrNoCurrentUser) {
					return errors.New("choose who you are first: freeday who NAME")
				}
				// The write failed but the view is already reconciled.
				logger.Warn("toggle", "day", day, "error", err)
			}
		}
		c.print()
		return nil
	})
}

func runShow(ctx context.Context, args []string, cfg *config.Config, logger *slog.Logger) error {
	if len(args) != 1 {
		return errors.New("usage: freeday show all|none|onlyUnavailable")
	}
	mode, err := remotesync.ParseShowMode(args[0])
	if err != nil {
		return err
	}
	return withClient(ctx, cfg, logger, nil, func(c *client) error {
		c.controller.SetShowMode(mode)
		c.print()
		return nil
	})
}

func runSelect(ctx context.Context, args []string, cfg *config.Config, logger *slog.Logger) error {
	fs := flag.NewFlagSet("select", flag.ContinueOnError)
	toggle := fs.Bool("toggle", false, "add or remove the named people instead of replacing the selection")
	if err := fs.Parse(args); err != nil {
		return err
	}

	return withClient(ctx, cfg, logger, nil, func(c *client) error {
		people := c.controller.Snapshot().People
		ids := make([]string, 0, fs.NArg())
		for _, arg := range fs.Args() {
			p, ok := findPerson(people, arg)
			if !ok {
				return fmt.Errorf("no person %q", arg)
			}
			ids = append(ids, p.ID)
		}

		if *toggle {
			for _, id := range ids {
				c.controller.ToggleSelected(id)
			}
		} else {
			c.controller.SetSelected(ids)
		}
		c.print()
		return nil
	})
}

func runLock(cfg *config.Config, logger *slog.Logger) error {
	c, err := openClient(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	c.session.Lock()
	fmt.Println("Locked.")
	return nil
}

func runWatch(ctx context.Context, args []string, cfg *config.Config, logger *slog.Logger) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	metricsAddr := fs.String("metrics", "", "serve client metrics on this address, e.g. :9101")
	if err := fs.Parse(args); err != nil {
		return err
	}

	redraw := func(s remotesync.State) {
		fmt.Print("\033[H\033[2J")
		render(os.Stdout, s, time.Now())
		fmt.Println("\n[n]ext [p]rev [t]oday [a]ll [0]none [u]navailable, YYYY-MM-DD or day number toggles, [q]uit")
	}

	return withClient(ctx, cfg, logger, redraw, func(c *client) error {
		if *metricsAddr != "" {
			ms := &http.Server{Addr: *metricsAddr, Handler: c.metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
			go func() {
				if err := ms.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Warn("metrics listener", "error", err)
				}
			}()
			defer ms.Close()
		}
		redraw(c.controller.Snapshot())

		lines := make(chan string)
		go func() {
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				lines <- strings.TrimSpace(scanner.Text())
			}
			close(lines)
		}()

		for {
			select {
			case <-ctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok || line == "q" {
					return nil
				}
				c.handleWatchInput(ctx, line, logger)
			}
		}
	})
}

func (c *client) handleWatchInput(ctx context.Context, line string, logger *slog.Logger) {
	ctrl := c.controller
	switch line {
	case "":
		return
	case "n":
		ctrl.NextMonth(ctx)
	case "p":
		ctrl.PrevMonth(ctx)
	case "t":
		ctrl.GoToToday(ctx)
	case "a":
		ctrl.SetShowMode(remotesync.ShowAll)
	case "0":
		ctrl.SetShowMode(remotesync.ShowNone)
	case "u":
		ctrl.SetShowMode(remotesync.ShowOnlyUnavailable)
	default:
		day, ok := resolveDay(line, ctrl.Snapshot().Cursor)
		if !ok {
			return
		}
		if err := ctrl.ToggleDay(ctx, day); err != nil {
			logger.Warn("toggle", "day", day, "error", err)
		}
	}
}

// resolveDay accepts an ISO date or a day number of the visible month.
func resolveDay(input string, cursor time.Time) (string, bool) {
	if _, err := calendar.ParseISODate(input, time.UTC); err == nil {
		return input, true
	}
	n, err := strconv.Atoi(input)
	if err != nil {
		return "", false
	}
	if n < 1 || n > calendar.EndOfMonth(cursor).Day() {
		return "", false
	}
	return calendar.ISODate(calendar.AddDays(calendar.StartOfMonth(cursor), n-1)), true
}
