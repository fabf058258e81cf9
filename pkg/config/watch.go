package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/techmatters/terraso-go/pkg/logging"
)

// watchDebounce is how long the file must stay quiet before a reload.
var watchDebounce = 100 * time.Millisecond

// Watch reloads the config once its YAML file settles after a write or
// create and hands the new value to onChange. An empty file is ignored so a
// truncate-then-write never resets the live config. It blocks until ctx is
// done.
func Watch(ctx context.Context, onChange func(*TerrasoConfig)) error {
	path := Get().ConfigFilePath()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Editors replace files on save, so watch the directory.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	log := logging.Component("config")
	log.Info().Str("path", path).Msg("watching config file")

	settled := make(chan struct{}, 1)
	timer := time.AfterFunc(time.Hour, func() {
		select {
		case settled <- struct{}{}:
		default:
		}
	})
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			timer.Reset(watchDebounce)
		case <-settled:
			if info, err := os.Stat(path); err != nil || info.Size() == 0 {
				log.Warn().Str("path", path).Msg("config file empty or missing, keeping previous config")
				continue
			}
			cfg, err := Load()
			if err == nil {
				err = cfg.Validate()
			}
			if err != nil {
				log.Error().Err(err).Msg("config reload failed, keeping previous config")
				continue
			}
			Set(cfg)
			log.Info().Msg("config reloaded")
			if onChange != nil {
				onChange(cfg)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Msg("watcher error")
		}
	}
}
