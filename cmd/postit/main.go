// Command postit drives the page side of the system from a terminal: it
// plays the page (window, bridge and storage facade) for one URL and runs a
// single board operation against it.
//
//	postit -page https://example.com/ list
//	postit -page https://example.com/ add "<b>call</b> Anna"
//	postit -page https://example.com/ rm 01HZX3J8Q4T9V6W2Y5B7C1D0EF
//	postit -page https://example.com/ urls
//	postit -page https://example.com/ watch
//	postit -page https://example.com/ -remote http://localhost:8080 list
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"postit/internal/bridge"
	"postit/internal/clients/sqlite"
	"postit/internal/config"
	"postit/internal/facade"
	"postit/internal/kv"
	"postit/internal/logger"
	"postit/internal/remote"
	"postit/internal/services/postit"
	"postit/internal/transport"
	"postit/internal/utils/sanitize"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"
)

// ErrUsage is returned for a missing or unknown command.
var ErrUsage = errors.New("usage: postit -page URL [flags] list|add [content]|rm ID|urls|watch")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		log.New(os.Stderr, "postit: ", 0).Println(err)
		os.Exit(1)
	}
}

type options struct {
	page    string
	gateway string
	token   string
	tab     string
	local   string
	remote  string
	cfg     config.Config
	log     *slog.Logger
}

func parse(args []string, cfg config.Config) (options, []string, error) {
	o := options{cfg: cfg}
	fs := flag.NewFlagSet("postit", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&o.page, "page", "", "URL of the page the notes belong to")
	fs.StringVar(&o.gateway, "gateway", cfg.GatewayURL, "websocket URL of the gateway; empty runs without a bridge")
	fs.StringVar(&o.token, "token", os.Getenv("API_TOKEN"), "bearer token for the gateway or the remote API")
	fs.StringVar(&o.tab, "tab", ulid.Make().String(), "tab id the bridge registers for")
	fs.StringVar(&o.local, "local", cfg.LocalStorePath, "SQLite file used as page-local storage")
	fs.StringVar(&o.remote, "remote", cfg.RemoteEndpoint, "base URL of the remote API; replaces the extension")
	if err := fs.Parse(args); err != nil {
		return o, nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if o.page == "" || fs.NArg() == 0 {
		return o, nil, ErrUsage
	}
	return o, fs.Args(), nil
}

func run(ctx context.Context, args []string, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	o, cmd, err := parse(args, cfg)
	if err != nil {
		return err
	}
	o.log = logger.New(cfg, os.Stderr)

	if o.remote != "" {
		return runRemote(ctx, o, cmd, out)
	}
	return runPage(ctx, o, cmd, out)
}

// runPage wires the page: window, optional bridge to the gateway, and a
// facade over optional page-local storage.
func runPage(ctx context.Context, o options, cmd []string, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var local kv.Store
	if o.local != "" {
		store, err := sqlite.Open(o.local)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		local = store
	}

	// The presence window starts with the facade, so the gateway is dialed
	// first and the bridge starts right after the facade listens.
	var br *bridge.Bridge
	win := transport.NewWindow(o.page, o.log)
	if o.gateway != "" {
		gw, err := transport.DialWS(ctx, o.gateway, transport.WSOptions{
			Tab:     o.tab,
			Token:   o.token,
			Timeout: o.cfg.RequestTimeout(),
			Log:     o.log,
		})
		if err != nil {
			o.log.Warn("running without a bridge", "gateway", o.gateway, "error", err)
		} else {
			defer func() { _ = gw.Close() }()
			br = bridge.New(win, gw, o.log)
		}
	}

	f := facade.New(ctx, facade.Options{
		Page:           win,
		Local:          local,
		PresenceWindow: o.cfg.PresenceWindow(),
		RequestTimeout: o.cfg.RequestTimeout(),
		ReadyFallback:  o.cfg.ReadyFallback(),
		Log:            o.log,
	})
	defer f.Close()

	g, gctx := errgroup.WithContext(ctx)
	if br != nil {
		g.Go(func() error { return br.Run(gctx) })
	}

	f.AwaitReady(ctx)
	o.log.Debug("page ready", "backend", f.Backend())

	board := postit.NewBoard(postit.NewKVRepository(f.Namespace("postit"), o.page, o.log), o.log)
	err := runCommand(ctx, board, cmd, out, f.ListURLs, f.OnToggle)
	f.Flush()

	cancel()
	if werr := g.Wait(); werr != nil && !errors.Is(werr, context.Canceled) {
		o.log.Warn("bridge stopped", "error", werr)
	}
	return err
}

// runRemote runs the board over the REST API.
func runRemote(ctx context.Context, o options, cmd []string, out io.Writer) error {
	a := remote.New(remote.Options{
		Endpoint: remote.PageEndpoint(o.remote, o.page),
		Token:    o.token,
		Debounce: o.cfg.RemoteDebounce(),
		Log:      o.log,
	})
	defer func() { _ = a.Close() }()

	if err := a.Load(ctx); err != nil {
		return err
	}
	board := postit.NewBoard(a, o.log)
	return runCommand(ctx, board, cmd, out, nil, nil)
}

// runCommand runs one command against board. listURLs and onToggle are nil when
// the backend cannot serve them.
func runCommand(
	ctx context.Context,
	board *postit.Board,
	cmd []string,
	out io.Writer,
	listURLs func(context.Context) ([]string, error),
	onToggle func(func()),
) error {
	switch cmd[0] {
	case "list":
		for _, n := range board.Notes() {
			state := ""
			if n.Minimized {
				state = " (minimized)"
			}
			fmt.Fprintf(out, "%s\t%s\t%d,%d\t%s%s\n", n.ID, n.Color, n.X, n.Y, sanitize.Preview(n.Content, 40), state)
		}
		return nil

	case "add":
		n := board.Create()
		if len(cmd) > 1 {
			if err := board.Edit(n.ID, cmd[1]); err != nil {
				return err
			}
		}
		fmt.Fprintln(out, n.ID)
		return nil

	case "rm":
		if len(cmd) < 2 {
			return ErrUsage
		}
		return board.Delete(cmd[1])

	case "urls":
		if listURLs == nil {
			return errors.New("urls is not available with the remote API")
		}
		urls, err := listURLs(ctx)
		if err != nil {
			return err
		}
		for _, u := range urls {
			fmt.Fprintln(out, u)
		}
		return nil

	case "watch":
		if onToggle == nil {
			return errors.New("watch is not available with the remote API")
		}
		onToggle(func() {
			if board.Toggle() {
				fmt.Fprintln(out, "hidden")
			} else {
				fmt.Fprintln(out, "shown")
			}
		})
		<-ctx.Done()
		return nil
	}
	return ErrUsage
}
