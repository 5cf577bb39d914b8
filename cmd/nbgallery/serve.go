package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-nbgallery/internal/config"
	"github.com/alnah/go-nbgallery/internal/fileutil"
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
	rebuildDebounce   = 300 * time.Millisecond
)

// runServe serves the output directory, rebuilding on changes with --watch.
func runServe(ctx context.Context, args []string, env *Environment) error {
	f, pos, err := parseRunFlags(cmdServe, args, env.Stderr)
	if err != nil {
		return err
	}
	if err := applyPositional(cmdServe, f, pos); err != nil {
		return err
	}
	cfg, err := resolveConfig(f, env)
	if err != nil {
		return withHint(err, "")
	}
	log, err := newLogger(cfg, env)
	if err != nil {
		return err
	}

	if f.serve.watch {
		if _, err := buildAll(ctx, cfg, env, log); err != nil {
			return withHint(err, cfg.Converter.Command)
		}
	} else if !fileutil.DirExists(cfg.Output.Dir) {
		return fmt.Errorf("output directory %s: %w (run `nbgallery build` first)", cfg.Output.Dir, os.ErrNotExist)
	}

	ln, err := net.Listen("tcp", f.serve.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", f.serve.addr, err)
	}
	fmt.Fprintf(env.Stdout, "Serving %s on http://%s\n", cfg.Output.Dir, ln.Addr())

	return serve(ctx, ln, cfg, env, log, f.serve.watch)
}

// serve runs the HTTP server on ln until ctx ends, plus the rebuild loop
// when watch is set.
func serve(ctx context.Context, ln net.Listener, cfg *config.Config, env *Environment, log logrus.FieldLogger, watch bool) error {
	srv := &http.Server{
		Handler:           newRouter(cfg.Output.Dir, log),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		log.Debug("server stopped")
		return nil
	})
	if watch {
		g.Go(func() error {
			return watchAndRebuild(gctx, cfg, env, log)
		})
	}
	return g.Wait()
}

// newRouter serves dir as a static site.
func newRouter(dir string, log logrus.FieldLogger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Handle("/*", http.FileServer(http.Dir(dir)))
	return r
}

// requestLogger logs one debug entry per request.
func requestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   ww.Status(),
				"bytes":    ww.BytesWritten(),
				"duration": time.Since(start).Round(time.Microsecond),
				"req_id":   middleware.GetReqID(r.Context()),
			}).Debug("request")
		})
	}
}

// watchAndRebuild rebuilds the site when notebooks, templates or static
// files change. Bursts of events collapse into one rebuild and rebuilds
// never overlap.
func watchAndRebuild(ctx context.Context, cfg *config.Config, env *Environment, log logrus.FieldLogger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer w.Close()

	for _, dir := range watchedDirs(cfg) {
		if err := addDirsRecursive(w, dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}
	outputDir, _ := filepath.Abs(cfg.Output.Dir)
	log.WithField("dirs", watchedDirs(cfg)).Info("watching for changes")

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ignoredPath(ev.Name, outputDir) {
				continue
			}
			if ev.Has(fsnotify.Create) && fileutil.DirExists(ev.Name) {
				if err := addDirsRecursive(w, ev.Name); err != nil {
					log.WithError(err).WithField("dir", ev.Name).Warn("cannot watch new directory")
				}
			}
			log.WithFields(logrus.Fields{"path": ev.Name, "op": ev.Op.String()}).Debug("change")
			if timer == nil {
				timer = time.NewTimer(rebuildDebounce)
			} else {
				timer.Reset(rebuildDebounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			log.Info("change detected, rebuilding")
			if _, err := buildAll(ctx, cfg, env, log); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				log.WithError(err).Error("rebuild failed")
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("watcher error")
		}
	}
}

// watchedDirs lists the inputs of a build.
func watchedDirs(cfg *config.Config) []string {
	dirs := []string{cfg.Input.Dir}
	for _, d := range []string{cfg.Site.TemplatesDir, cfg.Site.StaticDir} {
		if d != "" {
			dirs = append(dirs, d)
		}
	}
	return dirs
}

// ignoredPath skips the build's own output and editor temporaries.
func ignoredPath(path, outputDir string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return true
	}
	if abs, err := filepath.Abs(path); err == nil && outputDir != "" {
		if abs == outputDir || strings.HasPrefix(abs, outputDir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
