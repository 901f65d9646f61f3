package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lance13c/shopassist/internal/browser"
	"github.com/lance13c/shopassist/internal/config"
	"github.com/lance13c/shopassist/internal/database"
)

var errDoctorFailed = errors.New("some checks failed")

// check is one doctor line; warn marks a failure that does not fail the run
type check struct {
	name string
	err  error
	warn bool
	info string
}

func (a *app) newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, storage, Chrome and assets",
		RunE: func(cmd *cobra.Command, args []string) error {
			checks := a.runChecks(cmd.Context())

			failed := false
			for _, c := range checks {
				switch {
				case c.err == nil:
					fmt.Fprintf(a.out, "✅ %s", c.name)
				case c.warn:
					fmt.Fprintf(a.out, "⚠️  %s: %v", c.name, c.err)
				default:
					fmt.Fprintf(a.out, "❌ %s: %v", c.name, c.err)
					failed = true
				}
				if c.info != "" {
					fmt.Fprintf(a.out, " (%s)", c.info)
				}
				fmt.Fprintln(a.out)
			}

			if failed {
				return errDoctorFailed
			}
			fmt.Fprintln(a.out, "\nAll checks passed")
			return nil
		},
	}
}

func (a *app) runChecks(ctx context.Context) []check {
	loader := config.NewLoader(a.projectDir)
	checks := []check{a.configCheck(loader)}
	checks = append(checks, a.storageCheck(ctx))
	checks = append(checks, a.chromeCheck())
	checks = append(checks, a.assetsCheck())
	return checks
}

func (a *app) configCheck(loader *config.Loader) check {
	c := check{name: "Config", info: "defaults"}
	if loader.IsInitialized() {
		root, _ := loader.GetProjectRoot()
		c.info = root
	}
	c.err = a.cfg.Validate()
	return c
}

func (a *app) storageCheck(ctx context.Context) check {
	c := check{name: "Storage", info: a.cfg.Storage.Driver + " " + a.cfg.Storage.Path}
	db, err := database.New(a.cfg.Storage.Driver, a.cfg.Storage.Path)
	if err != nil {
		c.err = err
		return c
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if c.err = db.Ping(pingCtx); c.err != nil {
		return c
	}

	stats, err := db.GetStatistics(pingCtx)
	if err != nil {
		c.err = err
		return c
	}
	c.info += fmt.Sprintf(", %d fill runs (%d failed), %d caches", stats.FillRuns, stats.FailedRuns, stats.Caches)
	return c
}

// chromeCheck only warns: everything except page fills works without Chrome
func (a *app) chromeCheck() check {
	c := check{name: "Chrome", warn: true}
	path := a.cfg.Browser.ChromePath
	if path == "" {
		found, err := browser.FindChrome()
		if err != nil {
			c.err = errors.New(browser.GetLaunchInstructions(err))
			return c
		}
		path = found
	} else if _, err := os.Stat(path); err != nil {
		c.err = fmt.Errorf("configured chrome_path: %w", err)
		return c
	}
	c.info = path
	return c
}

func (a *app) assetsCheck() check {
	assets, from := assetSource(a.cfg.Assets.Dir)
	c := check{name: "Assets", info: from}
	for _, file := range a.cfg.Assets.Files {
		name := strings.TrimPrefix(file, "/")
		if name == "" {
			name = "index.html"
		}
		if _, err := fs.Stat(assets, name); err != nil {
			c.err = fmt.Errorf("missing %s", file)
			return c
		}
	}
	return c
}
