// Package cli implements the qotdd command line.
package cli

import (
	"fmt"
	"io"
	"log"
	"math/rand"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dreamware/qotd/internal/quotes"
	"github.com/dreamware/qotd/internal/server"
)

var (
	allFlag        bool
	categoriesFlag string
	dirFlag        string
	hostFlag       string
	logFileFlag    string
	offensiveFlag  bool
	portFlag       uint16
	quietFlag      bool
	userFlag       string
	verbosity      int
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "qotdd",
	Short: "A Quote of the Day Protocol (RFC 865) server",
	Long: `A Quote of the Day Protocol (RFC 865) server.

Quote files are simple text files. Individual quotes may span multiple
lines; lines beginning with the '%' character are treated as quote
delimiters and otherwise ignored. A file whose name ends with "-o" is
considered to contain offensive quotes, otherwise it is assumed to hold
generally acceptable, "clean" quotes (see --categories). A file
containing the token "$SerrOFQ$" is assumed to be rot13-encoded; absent
that token, or if "$FreeBSD$" is encountered first, the file is plain.`,
	Args:          cobra.NoArgs,
	RunE:          run,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	flags := RootCmd.Flags()
	flags.BoolVarP(&allFlag, "all", "a", false, "choose from all available quotes, both offensive and not (see --categories)")
	flags.StringVarP(&categoriesFlag, "categories", "c", "", "allowed quote categories: decorous, offensive or all")
	flags.StringVarP(&dirFlag, "dir", "d", "", `directory to read quote files from (default $QOTD_DIR or "data")`)
	flags.StringVarP(&hostFlag, "host", "i", "", `IP or hostname to bind to (default $QOTD_HOST or "127.0.0.1")`)
	flags.StringVarP(&logFileFlag, "log-file", "l", "", "log all output to the provided file as well as stderr")
	flags.BoolVarP(&offensiveFlag, "offensive", "o", false, "choose only from offensive quotes (see --categories)")
	flags.Uint16VarP(&portFlag, "port", "p", 0, "port to listen on (default $QOTD_PORT or 17)")
	flags.BoolVarP(&quietFlag, "quiet", "q", false, "reduce output; ignored if --verbose is present")
	flags.StringVarP(&userFlag, "user", "u", "nobody", "unprivileged user to drop to after binding")
	flags.CountVarP(&verbosity, "verbose", "v", "increase verbosity (repeatable)")
}

func run(cmd *cobra.Command, _ []string) error {
	// A .env file, if present, supplies the QOTD_* defaults.
	_ = godotenv.Load()

	if err := configureLogging(); err != nil {
		return err
	}

	dir := firstNonEmpty(dirFlag, os.Getenv("QOTD_DIR"), "data")
	host := firstNonEmpty(hostFlag, os.Getenv("QOTD_HOST"), "127.0.0.1")
	port, err := resolvePort(cmd)
	if err != nil {
		return err
	}

	allowed, err := allowedCategories()
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	corpus, err := quotes.Build(dir, allowed, rng)
	if err != nil {
		return err
	}
	defer corpus.Close()

	srv := server.New()
	if err := srv.Bind(net.JoinHostPort(host, strconv.Itoa(int(port)))); err != nil {
		return err
	}
	if err := server.DropPrivileges(userFlag); err != nil {
		return err
	}

	// Close the server on SIGINT/SIGTERM; Serve then returns nil.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		log.Println("shutting down")
		srv.Close()
	}()

	err = srv.Serve(corpus)
	stats := corpus.Stats()
	log.Printf("served %d quotes from %d files (%d quotes indexed)",
		stats.Served, stats.Files, stats.Quotes)
	return err
}

// allowedCategories resolves the category flags with the legacy
// precedence: an explicit --categories wins, then --all, then
// --offensive; absent all three only decorous quotes are served.
func allowedCategories() ([]quotes.QuoteCategory, error) {
	if categoriesFlag != "" {
		sel, err := quotes.ParseSelection(categoriesFlag)
		if err != nil {
			return nil, err
		}
		return sel.Categories(), nil
	}
	if allFlag {
		return quotes.SelectAll.Categories(), nil
	}
	if offensiveFlag {
		return quotes.SelectOffensive.Categories(), nil
	}
	return quotes.SelectDecorous.Categories(), nil
}

// configureLogging sets up the stdlib logger: --quiet discards output
// (unless --verbose overrides it), --log-file tees everything to a
// file, and any --verbose turns on the server's per-connection logs.
func configureLogging() error {
	server.SetVerbose(verbosity > 0)

	var w io.Writer = os.Stderr
	if quietFlag && verbosity == 0 {
		w = io.Discard
	}
	if logFileFlag != "" {
		f, err := os.Create(logFileFlag)
		if err != nil {
			return fmt.Errorf("unable to create log file: %w", err)
		}
		w = io.MultiWriter(w, f)
	}
	log.SetOutput(w)
	return nil
}

// resolvePort applies the port default chain: explicit flag, then
// $QOTD_PORT, then the RFC 865 port.
func resolvePort(cmd *cobra.Command) (uint16, error) {
	if cmd.Flags().Changed("port") {
		return portFlag, nil
	}
	if env := os.Getenv("QOTD_PORT"); env != "" {
		p, err := strconv.ParseUint(env, 10, 16)
		if err != nil {
			return 0, fmt.Errorf("invalid QOTD_PORT %q: %w", env, err)
		}
		return uint16(p), nil
	}
	return 17, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
