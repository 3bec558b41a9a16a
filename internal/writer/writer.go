// Package writer renders the generated Prometheus files and replaces them
// atomically, optionally reloading Prometheus afterwards.
package writer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/promgen/internal/discovery"
	"github.com/leapstack-labs/promgen/internal/metrics"
	"github.com/leapstack-labs/promgen/internal/rules"
	"golang.org/x/sync/errgroup"
)

// File names used in logs and metrics.
const (
	FileTargets = "targets"
	FileConfig  = "config"
	FileRules   = "rules"
)

// filePerm is the mode of generated files.
const filePerm = 0o644

// Reloader triggers a configuration reload.
type Reloader interface {
	Reload(ctx context.Context) error
}

// Paths are the destinations of the generated files. An empty path
// disables that file in WriteAll.
type Paths struct {
	Targets string
	Config  string
	Rules   string
}

// Config wires a Writer.
type Config struct {
	Exporter *discovery.Exporter
	Renderer *rules.Renderer
	// Checker validates rules before they are written. Nil skips
	// validation.
	Checker  *rules.Checker
	Reloader Reloader
	Paths    Paths
	Logger   *slog.Logger
}

// Writer renders and writes the generated files.
type Writer struct {
	exporter *discovery.Exporter
	renderer *rules.Renderer
	checker  *rules.Checker
	reloader Reloader
	paths    Paths
	logger   *slog.Logger
}

// New creates a Writer.
func New(cfg Config) *Writer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Writer{
		exporter: cfg.Exporter,
		renderer: cfg.Renderer,
		checker:  cfg.Checker,
		reloader: cfg.Reloader,
		paths:    cfg.Paths,
		logger:   logger,
	}
}

// Paths returns the configured destinations.
func (w *Writer) Paths() Paths {
	return w.paths
}

// WriteTargets writes the URL target file. An empty path uses the
// configured one.
func (w *Writer) WriteTargets(ctx context.Context, path string, reload bool) error {
	return w.writeOne(ctx, FileTargets, orDefault(path, w.paths.Targets), reload, w.renderTargets)
}

// WriteConfig writes the exporter target file.
func (w *Writer) WriteConfig(ctx context.Context, path string, reload bool) error {
	return w.writeOne(ctx, FileConfig, orDefault(path, w.paths.Config), reload, w.renderConfig)
}

// WriteRules renders, validates and writes the rule file. A rule file that
// fails validation is never written.
func (w *Writer) WriteRules(ctx context.Context, path string, reload bool) error {
	return w.writeOne(ctx, FileRules, orDefault(path, w.paths.Rules), reload, w.renderRules)
}

// WriteAll renders every configured file concurrently, writes them once all
// rendered successfully, and reloads once.
func (w *Writer) WriteAll(ctx context.Context, reload bool) error {
	tasks := []struct {
		name   string
		path   string
		render func(context.Context) (string, error)
	}{
		{FileTargets, w.paths.Targets, w.renderTargets},
		{FileConfig, w.paths.Config, w.renderConfig},
		{FileRules, w.paths.Rules, w.renderRules},
	}

	outputs := make([]string, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	for i, task := range tasks {
		if task.path == "" {
			w.logger.Warn("no path configured, skipping", "file", task.name)
			continue
		}
		g.Go(func() error {
			out, err := task.render(gctx)
			if err != nil {
				return fmt.Errorf("render %s: %w", task.name, err)
			}
			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	written := 0
	for i, task := range tasks {
		if task.path == "" {
			continue
		}
		start := time.Now()
		err := WriteFileAtomic(task.path, []byte(outputs[i]), filePerm)
		metrics.ObserveWrite(task.name, start, err)
		if err != nil {
			return err
		}
		w.logger.Info("wrote file", "file", task.name, "path", task.path)
		written++
	}

	if written == 0 {
		return errors.New("no output paths configured")
	}
	if reload {
		return w.reload(ctx)
	}
	return nil
}

func (w *Writer) writeOne(ctx context.Context, name, path string, reload bool, render func(context.Context) (string, error)) error {
	if path == "" {
		return fmt.Errorf("no path configured for %s", name)
	}

	start := time.Now()
	out, err := render(ctx)
	if err == nil {
		err = WriteFileAtomic(path, []byte(out), filePerm)
	}
	metrics.ObserveWrite(name, start, err)
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	w.logger.Info("wrote file", "file", name, "path", path)

	if reload {
		return w.reload(ctx)
	}
	return nil
}

func (w *Writer) reload(ctx context.Context) error {
	if w.reloader == nil {
		return errors.New("reload requested but no reloader configured")
	}
	return w.reloader.Reload(ctx)
}

func (w *Writer) renderTargets(ctx context.Context) (string, error) {
	return w.exporter.ExportTargets(ctx)
}

func (w *Writer) renderConfig(ctx context.Context) (string, error) {
	return w.exporter.ExportExporterConfig(ctx, nil, nil)
}

func (w *Writer) renderRules(ctx context.Context) (string, error) {
	rendered, err := w.renderer.Render(ctx)
	if err != nil {
		return "", err
	}
	if w.checker != nil {
		if err := w.checker.CheckRendered(ctx, rendered); err != nil {
			return "", err
		}
	}
	return rendered, nil
}

func orDefault(path, def string) string {
	if path != "" {
		return path
	}
	return def
}
