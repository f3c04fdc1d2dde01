package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/urfave/cli/v3"

	"github.com/folia-dh/folia/pkg/config"
	"github.com/folia-dh/folia/pkg/index"
	"github.com/folia-dh/folia/pkg/log"
)

// Rebuilds triggered by the watcher are debounced so a burst of file
// writes produces one build.
const watchDebounce = 2 * time.Second

// BuildCommand creates the build command
func BuildCommand() *cli.Command {
	return &cli.Command{
		Name:  "build",
		Usage: "Build the search index from manifest files",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Rebuild even when no source file changed",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Keep running and rebuild when manifest files change",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if c.Bool("watch") {
				return watchAndBuild(ctx, cfg)
			}
			return buildIndex(cfg, c.Bool("force"))
		},
	}
}

func buildIndex(cfg *config.Config, force bool) error {
	builder := index.NewBuilder(cfg)

	if force {
		stats, err := builder.Build()
		if err != nil {
			return fmt.Errorf("building index: %w", err)
		}
		printBuildStats(stats)
		return nil
	}

	stats, built, err := builder.BuildIfStale()
	if err != nil {
		return fmt.Errorf("building index: %w", err)
	}
	if !built {
		fmt.Println("Index is up to date")
		return nil
	}
	printBuildStats(stats)
	return nil
}

// watchAndBuild builds once, then rebuilds whenever the manifest tree
// changes, until interrupted.
func watchAndBuild(ctx context.Context, cfg *config.Config) error {
	logger := log.ForComponent("watch")

	if err := buildIndex(cfg, false); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			logger.Warnf("failed to close file watcher: %v", err)
		}
	}()

	if err := watchTree(watcher, cfg.FilesDir); err != nil {
		return fmt.Errorf("watching %s: %w", cfg.FilesDir, err)
	}
	fmt.Printf("Watching %s for changes (Ctrl+C to stop)\n", cfg.FilesDir)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var debounce *time.Timer
	rebuild := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sigCh:
			fmt.Println("\nShutting down...")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevantEvent(event) {
				continue
			}
			// New directories must join the watch set before their
			// contents change.
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := watchTree(watcher, event.Name); err != nil {
						logger.Warnf("watching new directory %s: %v", event.Name, err)
					}
				}
			}
			logger.Debugf("change detected: %s %s", event.Op, event.Name)
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(watchDebounce, func() {
				select {
				case rebuild <- struct{}{}:
				default:
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("watcher error: %v", err)
		case <-rebuild:
			if err := buildIndex(cfg, true); err != nil {
				logger.Errorf("rebuild failed: %v", err)
			}
		}
	}
}

func watchTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}

// relevantEvent reports whether an event can affect the index: anything
// touching a .json file or a directory.
func relevantEvent(event fsnotify.Event) bool {
	if strings.EqualFold(filepath.Ext(event.Name), ".json") {
		return true
	}
	info, err := os.Stat(event.Name)
	return err == nil && info.IsDir()
}

func printBuildStats(stats *index.Stats) {
	fmt.Printf("Indexed %d documents (%d skipped) in %s\n",
		stats.Indexed, stats.Skipped, stats.Duration.Round(time.Millisecond))
}
