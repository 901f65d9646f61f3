package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lance13c/shopassist/internal/config"
	"github.com/lance13c/shopassist/internal/database"
	"github.com/lance13c/shopassist/internal/logging"
	"github.com/lance13c/shopassist/internal/messaging"
	"github.com/lance13c/shopassist/internal/services"
	"github.com/lance13c/shopassist/internal/ui/adapters"
)

// app carries what every command needs once the config is loaded
type app struct {
	projectDir string
	verbose    bool
	cfg        *config.Config
	in         io.Reader
	out        io.Writer
	errOut     io.Writer
}

// Execute runs the root command until it finishes or ctx is cancelled
func Execute(ctx context.Context) error {
	root := NewRootCmd(os.Stdin, os.Stdout, os.Stderr)
	return root.ExecuteContext(ctx)
}

// NewRootCmd builds the command tree reading from in and writing to out
func NewRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	a := &app{in: in, out: out, errOut: errOut}

	rootCmd := &cobra.Command{
		Use:   "shopassist",
		Short: "Shop Assistant - checkout auto-fill helper",
		Long: `Shop Assistant keeps your shipping profile and fills it into online
checkout forms: name, phone number, address and postal code.

When run without arguments it opens the interactive terminal UI.
Use subcommands to edit the profile, fill a page, or serve the assistant
page with its offline asset cache.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.initConfig,
		RunE:              a.runTUI,
	}
	rootCmd.SetIn(in)
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "V", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&a.projectDir, "project", "p", ".", "project directory")

	rootCmd.AddCommand(
		a.newInitCmd(),
		a.newProfileCmd(),
		a.newSettingsCmd(),
		a.newDetectCmd(),
		a.newFillCmd(),
		a.newHistoryCmd(),
		a.newServeCmd(),
		a.newDoctorCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// initConfig sets up logging and loads the configuration
func (a *app) initConfig(cmd *cobra.Command, args []string) error {
	startTime := time.Now()

	if err := logging.Initialize(a.projectDir); err != nil {
		fmt.Fprintf(a.errOut, "Warning: Failed to initialize logging: %v\n", err)
	} else {
		logging.RedirectStandardLog()
	}

	cfg, err := config.NewLoader(a.projectDir).Load()
	if err != nil {
		return err
	}
	a.cfg = cfg

	if a.verbose || cfg.Debug {
		logging.GetLogger().SetLevel(logging.DEBUG)
	}
	logging.Debug("Config loaded in %v", time.Since(startTime))
	return nil
}

func (a *app) cli() *adapters.CLIAdapter {
	return adapters.NewCLIAdapter(a.in, a.out)
}

// openAssistant opens the database and builds the service over it. sink may
// be nil.
func (a *app) openAssistant(sink messaging.Sink) (*services.AssistantService, *database.DB, error) {
	db, err := database.New(a.cfg.Storage.Driver, a.cfg.Storage.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open storage: %w", err)
	}
	return services.NewAssistantService(db, a.cfg.Fill, db, sink), db, nil
}

// hubClient returns a sink that reaches the message hub of a running
// 'shopassist serve'. Close it when done.
func (a *app) hubClient() *messaging.Client {
	return messaging.NewClient("ws://" + a.cfg.Addr() + "/ws")
}
