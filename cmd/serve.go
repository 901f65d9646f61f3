package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/lance13c/shopassist/internal/assetcache"
	"github.com/lance13c/shopassist/internal/browser"
	"github.com/lance13c/shopassist/internal/logging"
	"github.com/lance13c/shopassist/internal/messaging"
	"github.com/lance13c/shopassist/internal/server"
	"github.com/lance13c/shopassist/web"
)

const shutdownTimeout = 5 * time.Second

func (a *app) newServeCmd() *cobra.Command {
	var (
		port     int
		openPage bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the assistant page, its asset cache and the message hub",
		Long: `Serve the assistant page through the cache-first asset worker.

The server also exposes the profile and settings API under /api, the
websocket message hub at /ws, and worker messages at /sw/message. With
assets.dir set and assets.watch on, edited assets are reinstalled under a
new cache version.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			return a.serve(cmd.Context(), openPage)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides server.port)")
	cmd.Flags().BoolVar(&openPage, "open", false, "open the assistant page in Chrome and deliver messages to it")
	return cmd
}

func (a *app) serve(ctx context.Context, openPage bool) error {
	cfg := a.cfg
	hub := messaging.NewHub(cfg.Server.AllowedOrigins)
	// the TUI and 'settings set' run in other processes and reach the page
	// through the hub, which passes their messages on to every other client
	hub.Relay(messaging.ActionUpdateSettings, messaging.ActionTriggerAutoFill)
	pages := messaging.NewNotifier()
	notifier := messaging.NewNotifier(hub, pages)

	svc, db, err := a.openAssistant(notifier)
	if err != nil {
		return err
	}
	defer db.Close()

	assets, assetsFrom := assetSource(cfg.Assets.Dir)
	origin := "http://" + cfg.Addr()
	reg, err := assetcache.NewRegistration(
		assetcache.NewSQLStorage(db),
		assetcache.HandlerTransport{Handler: web.Handler(assets)},
		assetcache.Options{
			Assets:               cfg.Assets.Files,
			Shell:                cfg.Assets.Shell,
			SkipWaitingOnInstall: cfg.Assets.SkipWaitingOnInstall,
			Origin:               origin,
		},
	)
	if err != nil {
		return err
	}
	var watcher *assetcache.Watcher
	if cfg.Assets.Watch && cfg.Assets.Dir != "" {
		watcher, err = assetcache.NewWatcher(reg, cfg.Assets.Dir, cfg.Assets.CacheVersion,
			time.Duration(cfg.Assets.WatchDebounceMS)*time.Millisecond)
		if err != nil {
			return err
		}
		defer watcher.Stop()
		watcher.OnInstall(func(worker *assetcache.Worker, err error) {
			if err != nil {
				logging.Warn("Asset reinstall failed: %v", err)
				return
			}
			fmt.Fprintf(a.out, "🔄 Assets reinstalled as %s\n", worker.Version())
		})
	}

	if _, err := reg.Install(ctx, cfg.Assets.CacheVersion); err != nil {
		return err
	}
	hub.Handle(messaging.ActionSkipWaiting, reg.HandleMessage)

	srv := server.New(cfg.Server, server.NewRouter(server.Dependencies{
		Assistant:      svc,
		Assets:         reg,
		Hub:            hub,
		Health:         db,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	g.Go(srv.Start)

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if watcher != nil {
		g.Go(func() error {
			if err := watcher.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if openPage {
		g.Go(func() error {
			return a.attachPage(gctx, origin, pages)
		})
	}

	fmt.Fprintf(a.out, "🛍️  Shop Assistant serving on %s (cache %s, %s assets)\n", origin, cfg.Assets.CacheVersion, assetsFrom)
	fmt.Fprintln(a.out, "Press Ctrl+C to stop")

	if err := g.Wait(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "👋 Stopped")
	return nil
}

// attachPage opens the assistant page in Chrome and registers it as a message
// sink until ctx is done. A Chrome launch failure is reported and the server
// keeps running.
func (a *app) attachPage(ctx context.Context, origin string, pages *messaging.Notifier) error {
	manager, err := browser.NewChromeDPManager(a.cfg.Browser)
	if err != nil {
		logging.Warn("%s", browser.GetLaunchInstructions(browser.DetectLaunchError(err)))
		return nil
	}
	defer manager.Close()

	if err := manager.Navigate(ctx, origin+"/"); err != nil {
		logging.Warn("Failed to open assistant page: %v", err)
		return nil
	}
	page := manager.Document()
	pages.Add(page)
	defer pages.Remove(page)
	logging.Info("Assistant page attached")

	<-ctx.Done()
	return nil
}

// assetSource reports where served assets come from
func assetSource(dir string) (fs.FS, string) {
	if dir == "" {
		return web.Assets(), "embedded"
	}
	return os.DirFS(dir), dir
}
