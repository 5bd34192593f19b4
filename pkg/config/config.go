// Package config implements the server's YAML configuration file and its
// hot-reload watcher: server identity, default log level, dispatcher pool
// size and timeout, HTTP listen address, and the HTTP origin allowlist.
package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/cmarsh/mcpgo/internal/logger"
)

// Duration wraps time.Duration so the YAML file can carry human-readable
// values like "30s" or "2m" - yaml.v3 has no native duration decoding.
type Duration time.Duration

// UnmarshalYAML decodes either a Go duration string ("10s") or a plain
// integer nanosecond count.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("config: invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("config: invalid duration value: %w", err)
	}
	*d = Duration(n)
	return nil
}

// Config is the server's on-disk configuration.
type Config struct {
	Server struct {
		Name         string `yaml:"name"`
		Version      string `yaml:"version"`
		Title        string `yaml:"title"`
		Instructions string `yaml:"instructions"`
	} `yaml:"server"`

	DefaultLogLevel string `yaml:"defaultLogLevel"`

	Dispatcher struct {
		PoolSize int      `yaml:"poolSize"`
		Timeout  Duration `yaml:"timeout"`
	} `yaml:"dispatcher"`

	HTTP struct {
		Addr            string   `yaml:"addr"`
		OriginAllowlist []string `yaml:"originAllowlist"`
	} `yaml:"http"`

	EnableLogging bool `yaml:"enableLogging"`
}

// Default returns a Config with sane defaults for running the bundled
// demo server, used when no config file is supplied.
func Default() *Config {
	c := &Config{}
	c.Server.Name = "mcpgo"
	c.Server.Version = "0.1.0"
	c.DefaultLogLevel = "error"
	c.Dispatcher.PoolSize = 0 // dispatcher.DefaultPoolSize()
	c.Dispatcher.Timeout = Duration(30 * time.Second)
	c.HTTP.Addr = ":8080"
	return c
}

// Load reads and parses a YAML config file at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return c, nil
}

// OriginAllowed builds the predicate function pkg/transport's HTTP
// transport consults for every request's Origin header, from this
// config's allowlist. An empty allowlist allows every origin.
func (c *Config) OriginAllowed() func(origin string) bool {
	if len(c.HTTP.OriginAllowlist) == 0 {
		return func(string) bool { return true }
	}
	allowed := make(map[string]bool, len(c.HTTP.OriginAllowlist))
	for _, o := range c.HTTP.OriginAllowlist {
		allowed[o] = true
	}
	return func(origin string) bool { return allowed[origin] }
}

// Watcher watches a config file for changes via fsnotify and hands each
// successfully reparsed version to every registered callback, and makes
// it available through Current. Applying the new config to a live server
// is the caller's responsibility, not the watcher's: cmd/mcpd consults
// Current for the HTTP origin allowlist on every request, and applies no
// other field (such as the default log level) after startup.
type Watcher struct {
	path string

	mu       sync.RWMutex
	current  *Config
	watchers []func(*Config)

	fsw  *fsnotify.Watcher
	done chan struct{}
}

// NewWatcher loads path once and prepares a Watcher; call Start to begin
// watching for subsequent changes.
func NewWatcher(path string) (*Watcher, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: new fsnotify watcher: %w", err)
	}
	if err := fsw.Add(path); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("config: watch %s: %w", path, err)
	}
	return &Watcher{path: path, current: cfg, fsw: fsw, done: make(chan struct{})}, nil
}

// Current returns the most recently loaded configuration.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// OnChange registers fn to be called, with the newly reloaded config,
// every time the watched file changes and reparses successfully. A parse
// failure logs a warning and leaves Current() unchanged.
func (w *Watcher) OnChange(fn func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.watchers = append(w.watchers, fn)
}

// Start launches the background goroutine that reloads the file on every
// fsnotify write/create event.
func (w *Watcher) Start() {
	go func() {
		for {
			select {
			case <-w.done:
				return
			case ev, ok := <-w.fsw.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				w.reload()
			case err, ok := <-w.fsw.Errors:
				if !ok {
					return
				}
				logger.Warn("config watcher error", err)
			}
		}
	}()
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		logger.Warn("config: reload failed, keeping previous config", w.path, err)
		return
	}
	w.mu.Lock()
	w.current = cfg
	callbacks := append([]func(*Config){}, w.watchers...)
	w.mu.Unlock()
	for _, fn := range callbacks {
		fn(cfg)
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
