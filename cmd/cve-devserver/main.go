package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"cvelib/internal/devserver"
	xlog "cvelib/internal/log"
	"cvelib/internal/version"
)

type options struct {
	addr       string
	org        string
	orgName    string
	quota      int
	users      []string
	pageSize   int
	rateLimit  int
	rateWindow time.Duration
	logLevel   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:          "cve-devserver",
		Short:        "Run an in-memory CVE Services API",
		Args:         cobra.NoArgs,
		Version:      version.Version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.addr, "addr", "127.0.0.1:8080", "listen address")
	f.StringVar(&o.org, "org", "acme", "short name of the provisioned organization")
	f.StringVar(&o.orgName, "org-name", "", "display name of the organization (default: the short name)")
	f.IntVar(&o.quota, "quota", 100, "CVE ID quota of the organization")
	f.StringArrayVar(&o.users, "user", []string{"admin@acme.test"}, "username to provision; repeatable, the first is an admin")
	f.IntVar(&o.pageSize, "page-size", 500, "items per page on list endpoints")
	f.IntVar(&o.rateLimit, "rate-limit", 0, "requests per user per --rate-window, 0 disables")
	f.DurationVar(&o.rateWindow, "rate-window", time.Minute, "throttling window")
	f.StringVar(&o.logLevel, "log-level", "info", "log level")
	return cmd
}

func run(cmd *cobra.Command, o options) error {
	xlog.Configure(xlog.Config{Level: o.logLevel, Output: cmd.ErrOrStderr(), Version: version.Version})
	logger := xlog.WithComponent("devserver")

	if len(o.users) == 0 {
		return errors.New("at least one --user is required")
	}
	for _, u := range o.users {
		if u == "" {
			return errors.New("--user must not be empty")
		}
	}
	if o.orgName == "" {
		o.orgName = o.org
	}

	srv := devserver.New(devserver.Config{
		PageSize:   o.pageSize,
		RateLimit:  o.rateLimit,
		RateWindow: o.rateWindow,
		Logger:     &logger,
	})
	org := srv.AddOrg(o.org, o.orgName, o.quota)

	ln, err := net.Listen("tcp", o.addr)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "CVE_API_URL=http://%s/api/\n", ln.Addr())
	fmt.Fprintf(out, "CVE_ORG=%s (%s)\n", org.ShortName, org.UUID)
	for i, u := range o.users {
		key, err := srv.AddUser(o.org, u, i == 0)
		if err != nil {
			_ = ln.Close()
			return err
		}
		fmt.Fprintf(out, "user %s API key: %s\n", u, key)
	}

	hs := &http.Server{Handler: srv.Handler(), ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- hs.Serve(ln) }()
	logger.Info().Str("addr", ln.Addr().String()).Msg("listening")

	select {
	case err := <-errCh:
		return err
	case <-cmd.Context().Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
