// Package config resolves, for each fenced-code language, which child
// language server to spawn. Configuration layers embedded defaults below
// a user-global file below a workspace-local file, and forbids spawning
// any documentation-format server as a child to prevent a literate server
// from recursively becoming its own child (a fork bomb).
package config

import (
	"bytes"
	_ "embed"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("config")

//go:embed defaults.toml
var embeddedDefaults []byte

// globalConfigRelPath is the user-global config file's path below the
// config home (see GlobalConfigPath), silently skipped if unreadable or
// absent.
const globalConfigRelPath = "literate-ls/languages.toml"

// workspaceConfigName is the project-local override file, resolved
// relative to the resolver's working directory.
const workspaceConfigName = ".literate-ls.toml"

// ForbiddenFormats are documentation languages that must never be
// resolved as a child server: literate-ls would then be a child of
// itself, recursing without bound the moment it opened a fence in its
// own target language.
var ForbiddenFormats = map[string]bool{
	"md":               true,
	"markdown":         true,
	"typst":            true,
	"rst":              true,
	"restructuredtext": true,
	"org":              true,
	"asciidoc":         true,
	"latex":            true,
	"tex":              true,
}

// IsFormatForbidden reports whether name (case-insensitive) names a
// documentation format literate-ls may never spawn as a child.
func IsFormatForbidden(name string) bool {
	return ForbiddenFormats[strings.ToLower(name)]
}

// aliases maps short/common language names to the language-server name
// health checks should look for.
var aliases = map[string]string{
	"md": "marksman",
}

// ResolveAlias maps name to its canonical language-server name for
// health-check lookups (e.g. "md" -> "marksman"); names with no known
// alias pass through lower-cased.
func ResolveAlias(name string) string {
	lower := strings.ToLower(name)
	if alias, ok := aliases[lower]; ok {
		return alias
	}
	return lower
}

// LanguageServer is one spawnable child server definition.
type LanguageServer struct {
	Command string         `mapstructure:"command" toml:"command"`
	Args    []string       `mapstructure:"args" toml:"args"`
	Config  map[string]any `mapstructure:"config" toml:"config,omitempty"`
}

// Language maps a fenced-code language name to the ordered list of
// language-server names to try.
type Language struct {
	Name            string   `mapstructure:"name" toml:"name"`
	LanguageServers []string `mapstructure:"language-servers" toml:"language-servers"`
}

// Config is the fully merged, decoded configuration tree.
type Config struct {
	Language       []Language                `mapstructure:"language" toml:"language"`
	LanguageServer map[string]LanguageServer `mapstructure:"language-server" toml:"language-server"`
}

// Resolver holds a merged Config and re-resolves it when the backing
// files change on disk.
type Resolver struct {
	mu       sync.RWMutex
	v        *viper.Viper
	cfg      Config
	watcher  *fsnotify.Watcher
	onChange func(Config)
}

// New builds a Resolver by merging embedded defaults, the user's global
// config, and the workspace's local config, in that order (later layers
// win). Missing global/local files are not an error.
func New(workspaceDir string) (*Resolver, error) {
	r := &Resolver{v: viper.New()}
	r.v.SetConfigType("toml")

	if err := r.v.ReadConfig(bytes.NewReader(embeddedDefaults)); err != nil {
		return nil, err
	}
	log.Info("loaded embedded default language configuration")

	globalPath := GlobalConfigPath()
	if globalPath != "" {
		r.v.SetConfigFile(globalPath)
		if err := r.v.MergeInConfig(); err != nil {
			log.Debugf("no usable global config at %s: %v", globalPath, err)
		} else {
			log.Infof("merged global config: %s", globalPath)
		}
	}

	localPath := filepath.Join(workspaceDir, workspaceConfigName)
	r.v.SetConfigFile(localPath)
	if err := r.v.MergeInConfig(); err != nil {
		log.Debugf("no usable workspace config at %s: %v", localPath, err)
	} else {
		log.Infof("merged workspace config: %s", localPath)
	}

	if err := r.decode(); err != nil {
		return nil, err
	}
	r.filterForbidden()

	r.watchFiles(globalPath, localPath)

	return r, nil
}

func (r *Resolver) decode() error {
	var cfg Config
	if err := r.v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.StringToSliceHookFunc(","))); err != nil {
		return err
	}
	r.mu.Lock()
	r.cfg = cfg
	r.mu.Unlock()
	return nil
}

// filterForbidden strips every language-server entry that either is
// itself named after a forbidden format or is listed as a server for any
// forbidden format, so it can never be chosen as a spawn target.
func (r *Resolver) filterForbidden() {
	r.mu.Lock()
	defer r.mu.Unlock()

	forbiddenServers := r.forbiddenLSPsLocked()
	for name := range r.cfg.LanguageServer {
		if IsFormatForbidden(name) || forbiddenServers[name] {
			delete(r.cfg.LanguageServer, name)
		}
	}
}

func (r *Resolver) forbiddenLSPsLocked() map[string]bool {
	out := make(map[string]bool)
	for _, lang := range r.cfg.Language {
		if !IsFormatForbidden(lang.Name) {
			continue
		}
		for _, server := range lang.LanguageServers {
			out[server] = true
		}
	}
	return out
}

// GlobalConfigPath resolves ~/.config/literate-ls/languages.toml
// (honoring XDG_CONFIG_HOME), or "" if no home directory can be found.
func GlobalConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, globalConfigRelPath)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", globalConfigRelPath)
}

// OnChange registers a callback invoked (with the freshly re-resolved
// config) whenever a watched config file changes. Only one callback is
// kept; a later call replaces an earlier one.
func (r *Resolver) OnChange(fn func(Config)) {
	r.mu.Lock()
	r.onChange = fn
	r.mu.Unlock()
}

func (r *Resolver) watchFiles(paths ...string) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warningf("config live-reload disabled: %v", err)
		return
	}
	r.watcher = watcher

	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := watcher.Add(p); err != nil {
			log.Debugf("could not watch %s: %v", p, err)
		}
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				log.Infof("config file changed, re-resolving: %s", event.Name)
				fresh := viper.New()
				fresh.SetConfigType("toml")
				if err := fresh.ReadConfig(bytes.NewReader(embeddedDefaults)); err != nil {
					log.Warningf("failed to reload config: %v", err)
					continue
				}
				for _, p := range paths {
					if p == "" {
						continue
					}
					fresh.SetConfigFile(p)
					if err := fresh.MergeInConfig(); err != nil {
						log.Debugf("no usable config at %s: %v", p, err)
					}
				}
				r.v = fresh
				if err := r.decode(); err != nil {
					log.Warningf("failed to decode reloaded config: %v", err)
					continue
				}
				r.filterForbidden()

				r.mu.RLock()
				cb := r.onChange
				cfg := r.cfg
				r.mu.RUnlock()
				if cb != nil {
					cb(cfg)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warningf("config watcher error: %v", err)
			}
		}
	}()
}

// Close stops watching config files for changes.
func (r *Resolver) Close() error {
	if r.watcher == nil {
		return nil
	}
	return r.watcher.Close()
}

// Snapshot returns a copy of the currently resolved configuration.
func (r *Resolver) Snapshot() Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg
}

// MarshalTOML renders the currently resolved configuration (the merge of
// embedded defaults, global, and workspace files, with forbidden entries
// already stripped) back into TOML, for the --dump-config diagnostic
// flag: what the resolver actually decided, rather than any one layer on
// its own.
func (r *Resolver) MarshalTOML() ([]byte, error) {
	return toml.Marshal(r.Snapshot())
}

// Command implements child.Resolver: it returns the command/args to spawn
// for lang, trying a direct language-server-name lookup first and, if
// that fails, walking lang's configured language-servers list and
// choosing the first one with a command that exists on PATH. Forbidden
// entries were already stripped out of LanguageServer at decode time.
func (r *Resolver) Command(lang string) (command string, args []string, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if srv, found := r.cfg.LanguageServer[lang]; found && srv.Command != "" {
		return srv.Command, srv.Args, true
	}

	for _, language := range r.cfg.Language {
		if language.Name != lang {
			continue
		}
		for _, serverName := range language.LanguageServers {
			srv, found := r.cfg.LanguageServer[serverName]
			if !found || srv.Command == "" {
				continue
			}
			if commandExists(srv.Command) {
				return srv.Command, srv.Args, true
			}
		}
	}

	return "", nil, false
}

// commandExists reports whether cmd is found on PATH.
func commandExists(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}
