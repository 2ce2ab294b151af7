// Command objtrans syncs custom object field translations between a
// Salesforce org and an .xlsx workbook.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/minios-linux/objtrans/i18n"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

type globalFlags struct {
	configPath   string
	instanceURL  string
	sessionID    string
	apiVersion   string
	snapshotPath string
	concurrency  int
	verbose      bool
	jsonOutput   bool
}

var global globalFlags

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "objtrans",
		Short: i18n.T("Sync custom object field translations between an org and a workbook"),
		Long: `objtrans: object field translation sync.

Reads field labels, descriptions, related list labels and picklist value
translations of custom object fields from an org's Metadata API into an
.xlsx workbook (one sheet per object), and writes edited labels and
descriptions back.

Commands:
  export     Org → workbook, fields from the object definitions
  retrieve   Org → workbook, fields read one by one
  import     Workbook → org, empty cells keep the org value
  deploy     Workbook → org, empty cells clear the org value
  locales    List the org's translation locales

Connection:
  --instance-url / OBJTRANS_INSTANCE_URL / instance_url in .objtrans.yaml
  --session-id   / OBJTRANS_SESSION_ID
  --snapshot     run against a YAML org snapshot instead`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&global.configPath, "config", "", "Config file (default ./.objtrans.yaml)")
	pf.StringVar(&global.instanceURL, "instance-url", "", "Org instance URL")
	pf.StringVar(&global.sessionID, "session-id", "", "Session id for the Metadata API")
	pf.StringVar(&global.apiVersion, "api-version", "", "Metadata API version (default 46.0)")
	pf.StringVar(&global.snapshotPath, "snapshot", "", "Use a YAML org snapshot instead of a live org")
	pf.IntVar(&global.concurrency, "concurrency", -1, "Max in-flight calls per stage (0 = unbounded)")
	pf.BoolVarP(&global.verbose, "verbose", "v", false, "Log every API request")
	pf.BoolVar(&global.jsonOutput, "json", false, "Print the result as JSON")

	root.AddCommand(
		newExportCmd(),
		newRetrieveCmd(),
		newImportCmd(),
		newDeployCmd(),
		newLocalesCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")

	// Setup signal handling for graceful cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		logWarning(i18n.T("Interrupted, cancelling pending requests..."))
		cancel()
	}()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version (display version information)
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: i18n.T("Show version information"),
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("objtrans version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
			fmt.Printf("  language:  %s\n", i18n.Lang())
		},
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
