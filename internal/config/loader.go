package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/af-corp/genroute/internal/models"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:default} patterns in a string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		submatch := envVarPattern.FindStringSubmatch(match)
		if len(submatch) < 2 {
			return match
		}
		varName := submatch[1]
		defaultVal := ""
		if len(submatch) >= 3 {
			defaultVal = submatch[2]
		}
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return defaultVal
	})
}

// LoadFile reads a YAML file, expands env vars, and unmarshals into dest.
func LoadFile(path string, dest any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	expanded := expandEnvVars(string(data))
	if err := yaml.Unmarshal([]byte(expanded), dest); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Loader manages configuration loading and hot-reload via fsnotify.
type Loader struct {
	configDir string
	mu        sync.RWMutex
	cfg       *Config
	model     models.ModelConfig
	providers *ProvidersConfig
	watchers  []func()
	logger    *slog.Logger
}

func NewLoader(configDir string, logger *slog.Logger) *Loader {
	return &Loader{
		configDir: configDir,
		logger:    logger,
	}
}

// Load reads genroute.yaml and providers.yaml. Nothing is swapped in unless both files
// parse and the generation section names valid tiers, so a bad edit keeps the previous config.
func (l *Loader) Load() error {
	cfg := DefaultConfig()
	if err := LoadFile(filepath.Join(l.configDir, "genroute.yaml"), cfg); err != nil {
		return fmt.Errorf("load genroute config: %w", err)
	}

	model, err := cfg.Generation.ModelConfig()
	if err != nil {
		return fmt.Errorf("invalid generation config: %w", err)
	}

	providers := &ProvidersConfig{}
	if err := LoadFile(filepath.Join(l.configDir, "providers.yaml"), providers); err != nil {
		return fmt.Errorf("load providers config: %w", err)
	}
	if err := providers.Validate(); err != nil {
		return fmt.Errorf("invalid providers config: %w", err)
	}
	for _, t := range providers.Unserved(model.Chain()) {
		l.logger.Warn("no provider configured for model tier", "model", string(t), "provider", t.Provider())
	}

	l.mu.Lock()
	l.cfg = cfg
	l.model = model
	l.providers = providers
	l.mu.Unlock()

	l.logger.Info("configuration loaded",
		"dir", l.configDir,
		"primary_model", string(model.Primary),
		"fallback_chain", len(model.FallbackChain),
	)
	return nil
}

func (l *Loader) Config() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg
}

// ModelConfig returns the validated model configuration of the last successful load.
func (l *Loader) ModelConfig() models.ModelConfig {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.model
}

func (l *Loader) Providers() *ProvidersConfig {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.providers
}

// OnReload registers a callback that fires after config is reloaded.
func (l *Loader) OnReload(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.watchers = append(l.watchers, fn)
}

// reloadDebounce coalesces the burst of events an editor save produces into one reload.
const reloadDebounce = 200 * time.Millisecond

// Watch reloads the configuration when a YAML file in the config directory changes.
// Callbacks registered with OnReload run only after a successful reload.
func (l *Loader) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := watcher.Add(l.configDir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch config dir %s: %w", l.configDir, err)
	}

	go func() {
		defer watcher.Close()
		var pending *time.Timer
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !isConfigFile(event.Name) || !event.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
					continue
				}
				l.logger.Debug("config file changed", "file", event.Name, "op", event.Op.String())
				if pending != nil {
					pending.Stop()
				}
				pending = time.AfterFunc(reloadDebounce, l.reload)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				l.logger.Error("fsnotify error", "error", err)
			}
		}
	}()

	return nil
}

func (l *Loader) reload() {
	if err := l.Load(); err != nil {
		l.logger.Error("failed to reload config, keeping previous", "error", err)
		return
	}
	l.mu.RLock()
	watchers := append([]func(){}, l.watchers...)
	l.mu.RUnlock()
	for _, fn := range watchers {
		fn()
	}
}

func isConfigFile(name string) bool {
	switch filepath.Ext(name) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
