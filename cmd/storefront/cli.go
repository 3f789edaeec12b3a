package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	appkg "github.com/studioform/storefront/internal/app"
	"github.com/studioform/storefront/internal/domain/route"
	"github.com/studioform/storefront/internal/notice"
)

// errUsage is returned for malformed command lines.
var errUsage = errors.New("usage")

var errAdminOnly = errors.New("admin account required")

// env is the process environment of a command.
type env struct {
	in   io.Reader
	out  io.Writer
	err  io.Writer
	opts appkg.Options
	// load overrides config loading in tests.
	load func(file string) (*appkg.Config, error)
}

// command is a top-level CLI command.
type command struct {
	usage string
	// route is the location the command represents. A func is used when the
	// route depends on the arguments.
	route func(args []string) string
	run   func(ctx context.Context, c *cli, args []string) error
}

// cli is the state shared by commands.
type cli struct {
	app *appkg.App
	env env
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.env.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) notify(n notice.Notice) { c.app.Notifier.Notify(n) }

// fail reports err as a notice and returns it.
func (c *cli) fail(title string, err error) error {
	c.notify(notice.FromError(title, err))
	return err
}

func static(path string) func([]string) string {
	return func([]string) string { return path }
}

func run(ctx context.Context, lg *zap.Logger, args []string, e env) error {
	global := flag.NewFlagSet("storefront", flag.ContinueOnError)
	global.SetOutput(e.err)
	configFile := global.String("config", "", "path to a YAML config file")
	global.Usage = func() { usage(e.err) }
	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() < 1 {
		usage(e.err)
		return errUsage
	}
	name, rest := global.Arg(0), global.Args()[1:]
	cmd, ok := commands[name]
	if !ok {
		usage(e.err)
		return errors.Errorf("unknown command %q", name)
	}

	load := e.load
	if load == nil {
		load = appkg.LoadConfig
	}
	cfg, err := load(*configFile)
	if err != nil {
		return err
	}

	if e.opts.Notifier == nil {
		e.opts.Notifier = notice.NewWriterNotifier(e.err)
	}
	a, err := appkg.New(lg, cfg, e.opts)
	if err != nil {
		return errors.Wrap(err, "init")
	}

	ctx = zctx.Base(ctx, lg)
	a.Navigate(cmd.route(rest))
	err = cmd.run(ctx, &cli{app: a, env: e}, rest)
	if err != nil && name != "login" && a.Navigator.Path() == route.Login {
		a.Notifier.Notify(notice.Notice{
			Kind:        notice.Warning,
			Title:       "Please log in",
			Description: "Your session has ended. Run storefront login to continue.",
		})
	}
	return err
}

func usage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("storefront: Studioform store client\n\n")
	b.WriteString("Usage:\n  storefront [-config file] <command> [args]\n\nCommands:\n")
	for _, name := range names {
		fmt.Fprintf(&b, "  %-14s %s\n", name, commands[name].usage)
	}
	_, _ = io.WriteString(w, b.String())
}

// subcommand splits "cart add ..." style arguments.
func subcommand(args []string, def string) (string, []string) {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return def, args
	}
	return args[0], args[1:]
}

func newFlags(name string, e env) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.err)
	return fs
}

// require reports a usage error when any of the named values is empty.
func require(fs *flag.FlagSet, values map[string]string) error {
	var missing []string
	for name, v := range values {
		if v == "" {
			missing = append(missing, "-"+name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	fs.Usage()
	return errors.Errorf("%s: missing %s", fs.Name(), strings.Join(missing, ", "))
}
