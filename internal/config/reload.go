package config

import (
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/opsgate/slb-mcp-gateway/internal/patterns"
)

// Watcher watches the user/project config files and, on change, reloads
// them and republishes a new pattern snapshot into store — the live-reload
// path for `security.additionalSafe/additionalBlocked/suppressPatterns`
// described in §4.1's pattern cache invalidation story.
type Watcher struct {
	opts    LoadOptions
	store   *patterns.Store
	fsw     *fsnotify.Watcher
	onApply func(Config)
}

// NewWatcher builds a Watcher and starts watching the config paths that
// exist on disk. Paths that don't exist yet are skipped; reload only fires
// for files present at watcher start (matches fsnotify's own limitation of
// not watching not-yet-created files without watching the parent dir).
func NewWatcher(opts LoadOptions, store *patterns.Store, onApply func(Config)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	userPath, projectPath := ConfigPaths(opts.ProjectDir)
	if opts.ConfigPathOverride != "" {
		userPath = opts.ConfigPathOverride
	}
	if opts.ProjectConfigPath != "" {
		projectPath = opts.ProjectConfigPath
	}
	for _, p := range []string{userPath, projectPath} {
		if p == "" {
			continue
		}
		if err := fsw.Add(p); err != nil {
			log.Debug("config watcher: not watching path", "path", p, "err", err)
		}
	}

	w := &Watcher{opts: opts, store: store, fsw: fsw, onApply: onApply}
	return w, nil
}

// Run blocks, reloading and reapplying config on every write/create event,
// until stop is closed.
func (w *Watcher) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			w.fsw.Close()
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
			log.Warn("config watcher error", "err", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.opts)
	if err != nil {
		log.Warn("config reload failed, keeping previous config", "err", err)
		return
	}

	w.store.ApplyOverrides(
		cfg.Security.AdditionalSafe,
		cfg.Security.AdditionalBlocked,
		cfg.Security.SuppressPatterns,
	)
	if w.onApply != nil {
		w.onApply(cfg)
	}
	log.Info("config reloaded", "patternVersion", w.store.CurrentSnapshot().Version())
}
