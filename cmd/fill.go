package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lance13c/shopassist/internal/autofill"
	"github.com/lance13c/shopassist/internal/browser"
	"github.com/lance13c/shopassist/internal/services"
	"github.com/lance13c/shopassist/web"
)

func (a *app) newFillCmd() *cobra.Command {
	var (
		htmlPath string
		outPath  string
		testPage bool
		auto     bool
	)

	cmd := &cobra.Command{
		Use:   "fill [url]",
		Short: "Fill a checkout page with the saved profile",
		Long: `Fill the checkout fields of a page with the saved profile and record the
run in history.

  fill <url>          load the page in Chrome and fill it in place
  fill --html <file>  fill a saved page; --out writes the filled HTML
  fill --test         fill the bundled sample checkout form`,
		Example: `  shopassist fill --test
  shopassist fill --html checkout.html --out filled.html
  shopassist fill --auto https://shop.example/checkout`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if testPage {
				if len(args) > 0 || htmlPath != "" {
					return fmt.Errorf("--test takes no page")
				}
			} else if err := pageSource(args, htmlPath); err != nil {
				return err
			}
			if outPath != "" && len(args) > 0 {
				return fmt.Errorf("--out only applies to --html or --test")
			}

			svc, db, err := a.openAssistant(nil)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			cli := a.cli()
			req := services.FillRequest{RequireAutoFill: auto}

			if len(args) > 0 {
				req.URL = args[0]
				req.Source = services.SourceBrowser
				return a.withPage(ctx, args[0], func(doc *browser.PageDocument) error {
					req.Document = doc
					result, _, err := svc.Fill(ctx, req)
					if err != nil {
						return err
					}
					cli.ShowFillResult(result)
					return nil
				})
			}

			var doc *browser.StaticDocument
			if testPage {
				html, err := web.CheckoutHTML()
				if err != nil {
					return err
				}
				if doc, err = browser.ParseStaticDocument(html); err != nil {
					return err
				}
				req.URL = web.CheckoutPage
				req.Source = services.SourceTest
			} else {
				if doc, err = browser.LoadStaticDocument(htmlPath); err != nil {
					return err
				}
				req.URL = htmlPath
				req.Source = services.SourceHTML
			}
			req.Document = doc

			result, _, err := svc.Fill(ctx, req)
			if err != nil {
				return err
			}
			cli.ShowFillResult(result)
			return writeFilled(doc, outPath, result)
		},
	}

	cmd.Flags().StringVar(&htmlPath, "html", "", "fill a page read from an HTML file")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write the filled HTML to this file")
	cmd.Flags().BoolVar(&testPage, "test", false, "fill the bundled sample checkout form")
	cmd.Flags().BoolVar(&auto, "auto", false, "only fill when Auto-Fill Mode is on")
	return cmd
}

func writeFilled(doc *browser.StaticDocument, outPath string, result autofill.Result) error {
	if outPath == "" || !result.Completed() {
		return nil
	}
	html, err := doc.Render()
	if err != nil {
		return fmt.Errorf("failed to render filled page: %w", err)
	}
	if err := os.WriteFile(outPath, []byte(html), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outPath, err)
	}
	return nil
}
