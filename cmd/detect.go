package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lance13c/shopassist/internal/browser"
	"github.com/lance13c/shopassist/internal/logging"
)

const pageLoadTimeout = 30 * time.Second

func (a *app) newDetectCmd() *cobra.Command {
	var htmlPath string

	cmd := &cobra.Command{
		Use:   "detect [url]",
		Short: "List the checkout fields found on a page",
		Long: `Detect the name, phone, address and postal code fields of a checkout page
without filling them. Give a URL to load it in Chrome, or --html to read a
saved page from disk.`,
		Example: `  shopassist detect --html checkout.html
  shopassist detect https://shop.example/checkout`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := pageSource(args, htmlPath); err != nil {
				return err
			}

			svc, db, err := a.openAssistant(nil)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			cli := a.cli()

			if htmlPath != "" {
				doc, err := browser.LoadStaticDocument(htmlPath)
				if err != nil {
					return err
				}
				a.showControls(doc.Controls())

				fields, err := svc.Detect(ctx, doc)
				if err != nil {
					return err
				}
				cli.ShowFields(fields)
				return nil
			}

			return a.withPage(ctx, args[0], func(doc *browser.PageDocument) error {
				if title, url, err := doc.Title(ctx); err == nil {
					fmt.Fprintf(a.out, "%s (%s)\n\n", title, url)
				}
				controls, err := doc.Controls(ctx)
				if err != nil {
					return err
				}
				a.showControls(controls)

				fields, err := svc.Detect(ctx, doc)
				if err != nil {
					return err
				}
				cli.ShowFields(fields)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&htmlPath, "html", "", "read the page from an HTML file")
	return cmd
}

func (a *app) showControls(controls []browser.FormControl) {
	rows := make([][]string, 0, len(controls))
	for _, c := range controls {
		rows = append(rows, []string{c.Tag, c.String()})
	}
	a.cli().ShowTable([]string{"TAG", "CONTROL"}, rows)
	fmt.Fprintln(a.out)
}

// pageSource checks that exactly one of a URL argument and --html is given
func pageSource(args []string, htmlPath string) error {
	switch {
	case len(args) == 0 && htmlPath == "":
		return fmt.Errorf("give a page URL or --html <file>")
	case len(args) > 0 && htmlPath != "":
		return fmt.Errorf("give either a page URL or --html, not both")
	}
	return nil
}

// withPage starts Chrome, loads url and runs fn on the loaded page
func (a *app) withPage(ctx context.Context, url string, fn func(doc *browser.PageDocument) error) error {
	manager, err := browser.NewChromeDPManager(a.cfg.Browser)
	if err != nil {
		err = browser.DetectLaunchError(err)
		fmt.Fprintln(a.errOut, browser.GetLaunchInstructions(err))
		return err
	}
	defer manager.Close()

	logging.Info("Loading %s", url)
	if err := manager.Navigate(ctx, url); err != nil {
		return err
	}
	if err := manager.WaitForPageLoad(ctx, pageLoadTimeout); err != nil {
		return err
	}
	return fn(manager.Document())
}
