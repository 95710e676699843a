// Package prefs persists UI-only preferences of the client: the selected
// people, the current user and the viewed month, plus the unlocked flag.
//
// Shared state (the roster and availability) is never written here. Every
// storage failure is swallowed: a broken store degrades to defaults.
package prefs

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/dukerupert/freeday/internal/calendar"
	"github.com/go-playground/validator/v10"
)

// CurrentVersion is the schema version written by Save.
//
//	0: unversioned blob that may carry copies of shared state
//	1: preferences only
const CurrentVersion = 1

// legacyFields are keys of old blobs holding shared state.
var legacyFields = []string{"people", "availability", "data"}

// KV is a string key-value store. store.KVStore satisfies it.
type KV interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Remove(key string) error
}

// Preferences are the persisted UI preferences.
type Preferences struct {
	Version int
	// SelectedIDs is nil when no selection was ever saved and empty when
	// the user cleared it.
	SelectedIDs   []string
	CurrentUserID string
	// Cursor is the first day of the viewed month.
	Cursor time.Time
}

type blob struct {
	Version       int      `json:"version"`
	SelectedIDs   []string `json:"selected_ids"`
	CurrentUserID string   `json:"current_user_id,omitempty"`
	Cursor        string   `json:"cursor"`
}

type Store struct {
	kv       KV
	scope    string
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
}

func New(kv KV, scope string, logger *slog.Logger) *Store {
	return &Store{
		kv:       kv,
		scope:    scope,
		validate: validator.New(),
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Store) key(name string) string {
	return s.scope + ":" + name
}

// Defaults returns the preferences used when nothing valid is stored.
func (s *Store) Defaults() Preferences {
	return Preferences{
		Version: CurrentVersion,
		Cursor:  calendar.StartOfMonth(s.now()),
	}
}

// Load reads the stored preferences. Each field is decoded on its own and
// falls back to its default when missing or malformed. Blobs older than
// CurrentVersion are upgraded and written back.
func (s *Store) Load() Preferences {
	p := s.Defaults()

	raw, err := s.kv.Get(s.key("prefs"))
	if err != nil {
		s.logger.Debug("load prefs", "error", err)
		return p
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		s.logger.Debug("decode prefs", "error", err)
		return p
	}

	var version int
	if v, ok := fields["version"]; ok {
		if err := json.Unmarshal(v, &version); err != nil {
			version = 0
		}
	}

	if v, ok := fields["selected_ids"]; ok {
		p.SelectedIDs = s.decodeIDs(v)
	}
	if v, ok := fields["current_user_id"]; ok {
		var id string
		if err := json.Unmarshal(v, &id); err == nil && s.validID(id) {
			p.CurrentUserID = id
		}
	}
	if v, ok := fields["cursor"]; ok {
		if t, ok := decodeCursor(v, s.now().Location()); ok {
			p.Cursor = calendar.StartOfMonth(t)
		}
	}

	legacy := false
	for _, f := range legacyFields {
		if _, ok := fields[f]; ok {
			legacy = true
		}
	}
	if version < CurrentVersion || legacy {
		s.upgrade(version, p)
	}
	return p
}

// upgrade rewrites an old blob at the current version. Legacy keys that
// lived beside the blob are removed as well.
func (s *Store) upgrade(from int, p Preferences) {
	s.logger.Info("upgrade prefs", "from", from, "to", CurrentVersion)
	for _, f := range legacyFields {
		if err := s.kv.Remove(s.key(f)); err != nil {
			s.logger.Debug("remove legacy key", "key", s.key(f), "error", err)
		}
	}
	s.Save(p)
}

// decodeIDs keeps the valid, distinct ids of a JSON string array. A value
// that is not an array yields nil; null means nothing was saved.
func (s *Store) decodeIDs(v json.RawMessage) []string {
	var items []json.RawMessage
	if err := json.Unmarshal(v, &items); err != nil || items == nil {
		return nil
	}
	ids := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		var id string
		if err := json.Unmarshal(item, &id); err != nil || id == "" || !s.validID(id) || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

func (s *Store) validID(id string) bool {
	return s.validate.Var(id, "omitempty,max=64,printascii") == nil
}

// decodeCursor accepts an RFC 3339 string or a Unix timestamp in
// milliseconds.
func decodeCursor(v json.RawMessage, loc *time.Location) (time.Time, bool) {
	var str string
	if err := json.Unmarshal(v, &str); err == nil {
		t, err := time.Parse(time.RFC3339, str)
		if err != nil {
			return time.Time{}, false
		}
		return t.In(loc), true
	}
	var ms int64
	if err := json.Unmarshal(v, &ms); err == nil && ms > 0 {
		return time.UnixMilli(ms).In(loc), true
	}
	return time.Time{}, false
}

// Save writes p at the current version.
func (s *Store) Save(p Preferences) {
	cursor := p.Cursor
	if cursor.IsZero() {
		cursor = s.now()
	}
	data, err := json.Marshal(blob{
		Version:       CurrentVersion,
		SelectedIDs:   p.SelectedIDs,
		CurrentUserID: p.CurrentUserID,
		Cursor:        calendar.StartOfMonth(cursor).Format(time.RFC3339),
	})
	if err != nil {
		s.logger.Debug("encode prefs", "error", err)
		return
	}
	if err := s.kv.Set(s.key("prefs"), string(data)); err != nil {
		s.logger.Debug("save prefs", "error", err)
	}
}

// Unlocked reports whether the password gate was passed in an earlier
// session.
func (s *Store) Unlocked() bool {
	v, err := s.kv.Get(s.key("unlocked"))
	if err != nil {
		return false
	}
	return v == "1"
}

// SetUnlocked persists the flag; false removes it.
func (s *Store) SetUnlocked(unlocked bool) {
	var err error
	if unlocked {
		err = s.kv.Set(s.key("unlocked"), "1")
	} else {
		err = s.kv.Remove(s.key("unlocked"))
	}
	if err != nil {
		s.logger.Debug("save unlocked flag", "error", err)
	}
}
