// Package prefs stores device-local preferences as a single JSON document.
// Values are read and updated by key path, so unknown keys written by other
// versions survive a rewrite.
package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"github.com/starford/notex/internal/apperr"
	"github.com/starford/notex/internal/storage"
)

// File is the preferences document inside the app-data directory.
const File = "prefs.json"

// Known preference keys.
const (
	KeyAutosave       = "autosave"
	KeyGlobalShortcut = "globalShortcut"
	KeyOnboarding     = "hasSeenOnboarding"
)

// Autosave controls periodic saving. Interval is in milliseconds.
type Autosave struct {
	Enabled  bool `json:"enabled"`
	Interval int  `json:"interval"`
}

// Validate implements validation.Validatable.
func (a Autosave) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Interval, validation.Required, validation.Min(1000)),
	)
}

// GlobalShortcut describes the quick-note hotkey.
type GlobalShortcut struct {
	Enabled          bool   `json:"enabled"`
	Shortcut         string `json:"shortcut"`
	DefaultExtension string `json:"defaultExtension"`
}

// Validate implements validation.Validatable.
func (g GlobalShortcut) Validate() error {
	return validation.ValidateStruct(&g,
		validation.Field(&g.Shortcut, validation.When(g.Enabled, validation.Required)),
		validation.Field(&g.DefaultExtension, validation.Required, validation.By(dotPrefixed)),
	)
}

func dotPrefixed(v interface{}) error {
	s, _ := v.(string)
	if !strings.HasPrefix(s, ".") || len(s) < 2 {
		return errors.New("must start with a dot")
	}
	return nil
}

// Defaults returns the value used for each key that has never been set.
func Defaults() map[string]any {
	return map[string]any{
		KeyAutosave:       Autosave{Enabled: true, Interval: 5000},
		KeyGlobalShortcut: GlobalShortcut{Shortcut: "CommandOrControl+Shift+N", DefaultExtension: ".txt"},
		KeyOnboarding:     false,
	}
}

// Store is the preferences document backed by File in the app-data directory.
type Store struct {
	files  storage.Provider
	logger *slog.Logger

	mu  sync.Mutex
	doc []byte
}

// Open loads the preferences document. A missing or malformed file starts
// from an empty document.
func Open(files storage.Provider, logger *slog.Logger) *Store {
	s := &Store{files: files, logger: logger, doc: []byte("{}")}
	data, err := files.Read(File)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
	case err != nil:
		logger.Warn("prefs: read failed", slog.String("error", err.Error()))
	case !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject():
		logger.Warn("prefs: ignoring malformed document", slog.String("file", File))
	default:
		s.doc = data
	}
	return s
}

// Get returns the raw JSON value of key, falling back to its default.
func (s *Store) Get(key string) (json.RawMessage, error) {
	def, ok := Defaults()[key]
	if !ok {
		return nil, fmt.Errorf("prefs: key %q: %w", key, apperr.ErrNotFound)
	}
	s.mu.Lock()
	res := gjson.GetBytes(s.doc, key)
	s.mu.Unlock()
	if res.Exists() {
		return json.RawMessage(res.Raw), nil
	}
	raw, err := json.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("prefs: encode default %q: %w", key, err)
	}
	return raw, nil
}

// All returns every known key with its current or default value.
func (s *Store) All() map[string]json.RawMessage {
	out := make(map[string]json.RawMessage)
	for key := range Defaults() {
		if v, err := s.Get(key); err == nil {
			out[key] = v
		}
	}
	return out
}

// Set validates value against the key's shape and persists it.
func (s *Store) Set(key string, value json.RawMessage) error {
	if err := validate(key, value); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := sjson.SetRawBytes(s.doc, key, value)
	if err != nil {
		return fmt.Errorf("prefs: set %q: %w", key, err)
	}
	if err := s.files.Write(File, pretty.Pretty(next)); err != nil {
		return fmt.Errorf("prefs: save: %w", err)
	}
	s.doc = next
	s.logger.Debug("prefs: updated", slog.String("key", key))
	return nil
}

func validate(key string, value json.RawMessage) error {
	var target validation.Validatable
	switch key {
	case KeyAutosave:
		var a Autosave
		if err := json.Unmarshal(value, &a); err != nil {
			return fmt.Errorf("prefs: %s: %w: %v", key, apperr.ErrInvalid, err)
		}
		target = a
	case KeyGlobalShortcut:
		var g GlobalShortcut
		if err := json.Unmarshal(value, &g); err != nil {
			return fmt.Errorf("prefs: %s: %w: %v", key, apperr.ErrInvalid, err)
		}
		target = g
	case KeyOnboarding:
		var b bool
		if err := json.Unmarshal(value, &b); err != nil {
			return fmt.Errorf("prefs: %s: %w: %v", key, apperr.ErrInvalid, err)
		}
		return nil
	default:
		return fmt.Errorf("prefs: key %q: %w", key, apperr.ErrNotFound)
	}
	if err := target.Validate(); err != nil {
		return fmt.Errorf("prefs: %s: %w: %v", key, apperr.ErrInvalid, err)
	}
	return nil
}

// Autosave returns the autosave preference.
func (s *Store) Autosave() Autosave {
	a := Defaults()[KeyAutosave].(Autosave)
	s.mu.Lock()
	defer s.mu.Unlock()
	if v := gjson.GetBytes(s.doc, KeyAutosave+".enabled"); v.Exists() {
		a.Enabled = v.Bool()
	}
	if v := gjson.GetBytes(s.doc, KeyAutosave+".interval"); v.Exists() {
		a.Interval = int(v.Int())
	}
	return a
}

// AutosaveSettings adapts Autosave to the workspace autosaver.
func (s *Store) AutosaveSettings() (bool, time.Duration) {
	a := s.Autosave()
	return a.Enabled, time.Duration(a.Interval) * time.Millisecond
}

// GlobalShortcut returns the global shortcut preference.
func (s *Store) GlobalShortcut() GlobalShortcut {
	g := Defaults()[KeyGlobalShortcut].(GlobalShortcut)
	s.mu.Lock()
	defer s.mu.Unlock()
	res := gjson.GetManyBytes(s.doc,
		KeyGlobalShortcut+".enabled",
		KeyGlobalShortcut+".shortcut",
		KeyGlobalShortcut+".defaultExtension")
	if res[0].Exists() {
		g.Enabled = res[0].Bool()
	}
	if res[1].Exists() {
		g.Shortcut = res[1].String()
	}
	if res[2].Exists() {
		g.DefaultExtension = res[2].String()
	}
	return g
}

// HasSeenOnboarding reports whether the onboarding flag is set.
func (s *Store) HasSeenOnboarding() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gjson.GetBytes(s.doc, KeyOnboarding).Bool()
}
