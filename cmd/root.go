package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/fatih/color"
	"github.com/tantalor93/dnsperf/pkg/printutils"
)

var (
	// Version is set during release of project during build process.
	Version = "development"

	author = "Ondrej Benkovsky <obenky@gmail.com>"
)

// command is a subcommand of the application, executed once its flags are parsed.
type command interface {
	run(ctx context.Context, logger log.Interface, stdout io.Writer) error
}

type app struct {
	kingpin *kingpin.Application

	verbose bool
	color   bool

	commands map[string]command
}

func newApp() *app {
	a := &app{
		kingpin:  kingpin.New("dnsperf", "A DNS resolution benchmark recording every lookup into an ordered key-value store.").Author(author),
		commands: make(map[string]command),
	}
	a.kingpin.Version(Version)

	a.kingpin.Flag("verbose", "Log every lookup.").Short('v').BoolVar(&a.verbose)

	a.kingpin.Flag("color", "ANSI Color output. Enabled by default.").
		Default("true").BoolVar(&a.color)

	a.register(newRunCommand(a.kingpin))
	a.register(newRunsCommand(a.kingpin))
	a.register(newDumpCommand(a.kingpin))
	a.register(newReportCommand(a.kingpin))
	a.register(newSyncCommand(a.kingpin))
	return a
}

func (a *app) register(name string, c command) {
	a.commands[name] = c
}

func (a *app) logger(w io.Writer) log.Interface {
	level := log.InfoLevel
	if a.verbose {
		level = log.DebugLevel
	}
	return &log.Logger{Handler: cli.New(w), Level: level}
}

// execute parses args and runs the selected command.
func (a *app) execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a.kingpin.UsageWriter(stderr).ErrorWriter(stderr)
	selected, err := a.kingpin.Parse(args)
	if err != nil {
		return err
	}
	color.NoColor = !a.color

	c, ok := a.commands[selected]
	if !ok {
		return fmt.Errorf("unknown command '%s'", selected)
	}
	logger := a.logger(stderr)
	logger.WithField("version", Version).Debug("dnsperf starting")
	return c.run(ctx, logger, stdout)
}

// Execute starts main logic of command.
func Execute() {
	sigsInt := make(chan os.Signal, 8)
	signal.Notify(sigsInt, syscall.SIGINT)

	defer close(sigsInt)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_, ok := <-sigsInt
		if !ok {
			// standard exit based on channel close
			return
		}
		fmt.Fprintf(os.Stderr, "\nCancelling benchmark ^C, again to terminate now.\n")
		cancel()
		<-sigsInt
		os.Exit(1)
	}()

	if err := newApp().execute(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		printError(os.Stderr, err)
		signal.Stop(sigsInt)
		os.Exit(1)
	}
}

func printError(w io.Writer, err error) {
	printutils.ErrFprintf(w, "%s\n", err)
}
