// Command tvctl is a terminal client for the tvcatalog service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/voyagen/tvcatalog/internal/catalog"
	"github.com/voyagen/tvcatalog/internal/logging"
)

const defaultAPIURL = "http://localhost:8080/api"

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, app *app, args []string) error
}

var commands = []command{
	{"playlists", "list playlists", runPlaylists},
	{"categories", "list categories", runCategories},
	{"channels", "list channels [-category C] [-search S]", runChannels},
	{"upload", "upload FILE [-name N]", runUpload},
	{"add-url", "add-url URL", runAddURL},
	{"delete", "delete ID", runDelete},
	{"refresh", "refresh ID", runRefresh},
	{"play", "play [-category C] [-file FILE] [-player mpv] NAME", runPlay},
}

type app struct {
	cat catalog.Catalog
	log *logrus.Entry
}

func main() {
	apiURL := flag.String("api", envOr("TVCATALOG_API_URL", defaultAPIURL), "tvcatalog API base URL")
	logLevel := flag.String("log-level", envOr("LOG_LEVEL", "warn"), "log level")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	log := logging.New("tvctl", *logLevel, "text")
	a := &app{cat: catalog.NewClient(*apiURL, nil), log: log}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	name, args := flag.Arg(0), flag.Args()[1:]
	for _, c := range commands {
		if c.name != name {
			continue
		}
		if err := c.run(ctx, a, args); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %s\n", name, describe(err))
			log.WithError(err).Debug("command failed")
			os.Exit(1)
		}
		return
	}
	fmt.Fprintf(os.Stderr, "unknown command %q\n", name)
	usage()
	os.Exit(2)
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: tvctl [-api URL] <command> [args]\n\ncommands:\n")
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-11s %s\n", c.name, c.usage)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var errUsage = errors.New("missing argument")

func oneArg(fs *flag.FlagSet, args []string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return "", errUsage
	}
	return fs.Arg(0), nil
}

// describe prefers the service's user-facing message for catalog errors.
func describe(err error) string {
	var terr *catalog.TransportError
	var verr *catalog.ValidationError
	if errors.As(err, &terr) || errors.As(err, &verr) {
		return catalog.UserMessage(err)
	}
	return err.Error()
}
