package minimap

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"minimaprender/internal/logging"
)

// Watch re-renders maps whenever their .tmx file is written, until ctx is
// done. Renders run one at a time on the calling goroutine. The result is
// the number of failed renders (capped like Run), or a fatal Exit* code
// if watching never started.
func (d *Driver) Watch(ctx context.Context) int {
	renderer, code := d.prepare()
	if renderer == nil {
		return code
	}

	dir := MapsDir(d.WorkDir, d.Layout)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		d.styles.Errorf(d.Stderr, "Could not start watcher: %v", err)
		return ExitFailure
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		d.styles.Errorf(d.Stderr, "Could not watch %s: %v", dir, err)
		return ExitFailure
	}
	fmt.Fprintf(d.Stdout, "Watching %s for map changes.\n", dir)
	logging.Watch("Watching %s (debounce %s)", dir, d.WatchDebounce)

	debounce := time.NewTimer(time.Hour)
	debounce.Stop()
	defer debounce.Stop()

	pending := make(map[string]struct{})
	failures := 0
	for {
		select {
		case <-ctx.Done():
			logging.Watch("Watch stopped: %v", ctx.Err())
			return failureStatus(failures)

		case event, ok := <-watcher.Events:
			if !ok {
				return failureStatus(failures)
			}
			name, ok := watchedMap(event)
			if !ok {
				continue
			}
			logging.WatchDebug("%s %s", event.Op, event.Name)
			pending[name] = struct{}{}
			debounce.Reset(d.WatchDebounce)

		case <-debounce.C:
			names := make([]string, 0, len(pending))
			for name := range pending {
				names = append(names, name)
			}
			sort.Strings(names)
			clear(pending)
			failures += d.batch(ctx, renderer, names)

		case err, ok := <-watcher.Errors:
			if !ok {
				return failureStatus(failures)
			}
			logging.WatchWarn("Watcher error: %v", err)
		}
	}
}

// watchedMap returns the map file name an event concerns, if it is a write
// or create of a validly named map.
func watchedMap(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return "", false
	}
	base := filepath.Base(event.Name)
	if !strings.HasSuffix(base, MapExt) {
		return "", false
	}
	if !ValidMapName(base) {
		logging.WatchDebug("Ignoring %s: not a map name", base)
		return "", false
	}
	return base, true
}
