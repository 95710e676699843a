// Package remotesync keeps a local copy of the shared availability for the
// visible month in step with the backend.
//
// Three channels feed one Availability value: a bulk refresh of the 42
// visible days (on start, on every month change, after every local write and
// on a fixed poll interval), optimistic local writes, and single-cell patches
// from the backend's change feed.
//
// Overlapping refreshes are applied in completion order. A slow response
// for an older request can overwrite a newer result until the next refresh
// corrects it; there is no version check per cell.
package remotesync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/freeday/internal/availability"
	"github.com/dukerupert/freeday/internal/calendar"
	"github.com/dukerupert/freeday/internal/metrics"
	"github.com/dukerupert/freeday/internal/model"
	"github.com/dukerupert/freeday/internal/prefs"
)

// DefaultPollInterval is the fallback refresh period.
const DefaultPollInterval = 10 * time.Second

// Refresh triggers, used as metric labels.
const (
	TriggerStart  = "start"
	TriggerCursor = "cursor"
	TriggerWrite  = "write"
	TriggerPoll   = "poll"
	TriggerManual = "manual"
)

var (
	ErrNoCurrentUser = errors.New("no current user")
	ErrUnknownPerson = errors.New("unknown person")
)

// Backend is the remote store of people and availability.
type Backend interface {
	ListPeople(ctx context.Context) ([]model.Person, error)
	ListAvailability(ctx context.Context, from, to string) ([]model.AvailabilityRow, error)
	UpsertAvailability(ctx context.Context, personID, day string, available bool) error
	Subscribe(ctx context.Context, handler func(model.AvailabilityRow)) (func(), error)
}

// PrefsSaver persists UI preferences. *prefs.Store satisfies it.
type PrefsSaver interface {
	Save(prefs.Preferences)
}

type ShowMode string

const (
	ShowAll             ShowMode = "all"
	ShowNone            ShowMode = "none"
	ShowOnlyUnavailable ShowMode = "onlyUnavailable"
)

// ParseShowMode accepts the mode names, case-sensitively.
func ParseShowMode(s string) (ShowMode, error) {
	switch m := ShowMode(s); m {
	case ShowAll, ShowNone, ShowOnlyUnavailable:
		return m, nil
	}
	return "", fmt.Errorf("unknown show mode %q", s)
}

// State is an immutable snapshot of the controller. Its maps and slices are
// replaced, never modified, after publication.
type State struct {
	People        []model.Person
	Availability  availability.Availability
	Selected      map[string]bool
	CurrentUserID string
	// Cursor is the first day of the visible month.
	Cursor   time.Time
	ShowMode ShowMode
}

// Config holds the optional collaborators of a Controller.
type Config struct {
	PollInterval time.Duration
	// Initial seeds the cursor, selection and current user.
	Initial prefs.Preferences
	Prefs   PrefsSaver
	// OnChange receives every new state, in order. It runs under a lock
	// and must not call the controller's mutating methods.
	OnChange func(State)
	Metrics  *metrics.Metrics
	Now      func() time.Time
}

type Controller struct {
	backend  Backend
	interval time.Duration
	saver    PrefsSaver
	onChange func(State)
	metrics  *metrics.Metrics
	now      func() time.Time
	logger   *slog.Logger

	mu    sync.Mutex
	state State
	// selectAll is set until a selection exists; the first roster fetch
	// then selects everyone.
	selectAll bool

	pubMu sync.Mutex

	runMu       sync.Mutex
	cancel      context.CancelFunc
	unsubscribe func()
	done        chan struct{}
}

func New(backend Backend, cfg Config, logger *slog.Logger) *Controller {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	cursor := cfg.Initial.Cursor
	if cursor.IsZero() {
		cursor = cfg.Now()
	}
	selected := make(map[string]bool, len(cfg.Initial.SelectedIDs))
	for _, id := range cfg.Initial.SelectedIDs {
		selected[id] = true
	}

	return &Controller{
		backend:  backend,
		interval: cfg.PollInterval,
		saver:    cfg.Prefs,
		onChange: cfg.OnChange,
		metrics:  cfg.Metrics,
		now:      cfg.Now,
		logger:   logger,
		state: State{
			Availability:  availability.Availability{},
			Selected:      selected,
			CurrentUserID: cfg.Initial.CurrentUserID,
			Cursor:        calendar.StartOfMonth(cursor),
			ShowMode:      ShowAll,
		},
		selectAll: cfg.Initial.SelectedIDs == nil,
	}
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Grid returns the 42 cells of the visible month.
func (c *Controller) Grid() []calendar.Cell {
	c.mu.Lock()
	cursor := c.state.Cursor
	c.mu.Unlock()
	return calendar.BuildMonthGrid(cursor, c.now())
}

// Rows returns the selected people in roster order.
func (s State) Rows() []model.Person {
	rows := make([]model.Person, 0, len(s.Selected))
	for _, p := range s.People {
		if s.Selected[p.ID] {
			rows = append(rows, p)
		}
	}
	return rows
}

// Rows returns the selected people of the current state.
func (c *Controller) Rows() []model.Person {
	return c.Snapshot().Rows()
}

// update applies fn to the state under c.mu, then publishes the result
// and, when persist is set, saves the preferences.
func (c *Controller) update(persist bool, fn func(s *State)) {
	c.mu.Lock()
	fn(&c.state)
	p := c.preferencesLocked()
	c.mu.Unlock()

	if persist && c.saver != nil {
		c.saver.Save(p)
	}
	c.publish()
}

func (c *Controller) publish() {
	if c.onChange == nil {
		return
	}
	c.pubMu.Lock()
	defer c.pubMu.Unlock()
	c.onChange(c.Snapshot())
}

func (c *Controller) preferencesLocked() prefs.Preferences {
	ids := make([]string, 0, len(c.state.Selected))
	for _, p := range c.state.People {
		if c.state.Selected[p.ID] {
			ids = append(ids, p.ID)
		}
	}
	// Keep ids of people not in the roster yet.
	for id := range c.state.Selected {
		if !containsPerson(c.state.People, id) {
			ids = append(ids, id)
		}
	}
	return prefs.Preferences{
		Version:       prefs.CurrentVersion,
		SelectedIDs:   ids,
		CurrentUserID: c.state.CurrentUserID,
		Cursor:        c.state.Cursor,
	}
}

func containsPerson(people []model.Person, id string) bool {
	for _, p := range people {
		if p.ID == id {
			return true
		}
	}
	return false
}

func allIDs(people []model.Person) map[string]bool {
	ids := make(map[string]bool, len(people))
	for _, p := range people {
		ids[p.ID] = true
	}
	return ids
}

// RefreshPeople replaces the roster.
func (c *Controller) RefreshPeople(ctx context.Context) error {
	people, err := c.backend.ListPeople(ctx)
	if err != nil {
		c.logger.Warn("refresh people", "error", err)
		return err
	}

	c.mu.Lock()
	first := c.selectAll
	c.selectAll = false
	c.mu.Unlock()

	c.update(first, func(s *State) {
		s.People = people
		if first {
			s.Selected = allIDs(people)
		}
	})
	return nil
}

// RefreshAvailability replaces the whole mapping with the backend rows of the
// visible 42 days.
func (c *Controller) RefreshAvailability(ctx context.Context) error {
	return c.refresh(ctx, TriggerManual)
}

func (c *Controller) refresh(ctx context.Context, trigger string) error {
	first, last := calendar.Bounds(c.Grid())

	rows, err := c.backend.ListAvailability(ctx, first, last)
	c.metrics.Refresh(trigger, err)
	if err != nil {
		c.logger.Warn("refresh availability", "trigger", trigger, "from", first, "to", last, "error", err)
		return err
	}

	next := availability.FromRows(rows)
	c.update(false, func(s *State) {
		s.Availability = next
	})
	return nil
}

// ToggleDay flips the current user's status for day: applied locally first,
// then written to the backend, then reconciled by a refresh whatever the
// outcome of the write. Without a current user it does nothing and returns
// ErrNoCurrentUser. The write error is returned for information only; the
// state is already reconciled.
func (c *Controller) ToggleDay(ctx context.Context, day string) error {
	if _, err := calendar.ParseISODate(day, time.UTC); err != nil {
		return err
	}

	c.mu.Lock()
	user := c.state.CurrentUserID
	c.mu.Unlock()
	if user == "" {
		return ErrNoCurrentUser
	}

	var next availability.Status
	c.update(false, func(s *State) {
		next = availability.GetStatus(s.Availability, user, day).Toggle()
		s.Availability = availability.SetStatus(s.Availability, user, day, next)
	})

	err := c.backend.UpsertAvailability(ctx, user, day, next.Available())
	c.metrics.Write(err)
	if err != nil {
		c.logger.Warn("write availability", "person_id", user, "day", day, "error", err)
	}

	c.refresh(ctx, TriggerWrite)
	return err
}

// applyPush patches one notified row into the mapping.
func (c *Controller) applyPush(row model.AvailabilityRow) {
	if row.PersonID == "" || row.Day == "" {
		return
	}
	c.metrics.PushPatch()
	c.update(false, func(s *State) {
		s.Availability = availability.SetStatus(s.Availability, row.PersonID, row.Day, availability.FromBool(row.Available))
	})
}

// SetShowMode switches the filter and recomputes the selection from it.
func (c *Controller) SetShowMode(mode ShowMode) {
	days := calendar.VisibleDays(c.Grid())

	c.update(true, func(s *State) {
		c.selectAll = false
		s.ShowMode = mode
		switch mode {
		case ShowAll:
			s.Selected = allIDs(s.People)
		case ShowNone:
			s.Selected = map[string]bool{}
		case ShowOnlyUnavailable:
			selected := make(map[string]bool)
			for _, p := range s.People {
				if availability.HasUnavailable(s.Availability, p.ID, days) {
					selected[p.ID] = true
				}
			}
			s.Selected = selected
		}
	})
}

// SetCursor shows the month containing t and refreshes it.
func (c *Controller) SetCursor(ctx context.Context, t time.Time) error {
	cursor := calendar.StartOfMonth(t)
	c.update(true, func(s *State) {
		s.Cursor = cursor
	})
	return c.refresh(ctx, TriggerCursor)
}

func (c *Controller) NextMonth(ctx context.Context) error {
	return c.SetCursor(ctx, c.Snapshot().Cursor.AddDate(0, 1, 0))
}

func (c *Controller) PrevMonth(ctx context.Context) error {
	return c.SetCursor(ctx, c.Snapshot().Cursor.AddDate(0, -1, 0))
}

func (c *Controller) GoToToday(ctx context.Context) error {
	return c.SetCursor(ctx, c.now())
}

// SetCurrentUser chooses whose days ToggleDay edits. An empty id clears it.
// Once the roster is loaded, ids outside it are rejected.
func (c *Controller) SetCurrentUser(id string) error {
	c.mu.Lock()
	people := c.state.People
	c.mu.Unlock()
	if id != "" && len(people) > 0 && !containsPerson(people, id) {
		return fmt.Errorf("%w: %s", ErrUnknownPerson, id)
	}

	c.update(true, func(s *State) {
		s.CurrentUserID = id
	})
	return nil
}

// ToggleSelected adds or removes one person from the selection.
func (c *Controller) ToggleSelected(id string) {
	c.update(true, func(s *State) {
		c.selectAll = false
		next := make(map[string]bool, len(s.Selected)+1)
		for k := range s.Selected {
			next[k] = true
		}
		if next[id] {
			delete(next, id)
		} else {
			next[id] = true
		}
		s.Selected = next
	})
}

// SetSelected replaces the selection.
func (c *Controller) SetSelected(ids []string) {
	next := make(map[string]bool, len(ids))
	for _, id := range ids {
		next[id] = true
	}
	c.update(true, func(s *State) {
		c.selectAll = false
		s.Selected = next
	})
}

// Start fetches the roster and the visible month, subscribes to the change
// feed and starts the poll loop. Fetch and subscribe failures are logged;
// polling covers for a missing feed. Start on a running controller does
// nothing.
func (c *Controller) Start(ctx context.Context) {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	if c.cancel != nil {
		return
	}

	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})

	c.RefreshPeople(ctx)
	c.refresh(ctx, TriggerStart)

	unsubscribe, err := c.backend.Subscribe(ctx, c.applyPush)
	if err != nil {
		c.logger.Warn("subscribe to changes, polling only", "error", err)
	} else {
		c.unsubscribe = unsubscribe
	}

	done := c.done
	go func() {
		defer close(done)
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.refresh(ctx, TriggerPoll)
			}
		}
	}()
}

// Stop unsubscribes, stops the poll loop and waits for it. It is safe to
// call more than once and on a controller that was never started.
func (c *Controller) Stop() {
	c.runMu.Lock()
	cancel, unsubscribe, done := c.cancel, c.unsubscribe, c.done
	c.cancel, c.unsubscribe, c.done = nil, nil, nil
	c.runMu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}
