package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/codereview/internal/api"
	"github.com/joescharf/codereview/internal/daemon"
	webui "github.com/joescharf/codereview/internal/ui"
)

const shutdownTimeout = 10 * time.Second

var serveForce bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the review API and web playground",
	Long: `Start an HTTP server exposing the review API under /api/v1 and the
embedded playground at /. By default it listens on port 8080.

The server records its PID so 'codereview serve status' and
'codereview serve stop' can find it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveRun(cmd.Context())
	},
}

var serveStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a server is running",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStatusRun()
	},
}

var serveStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStopRun()
	},
}

func init() {
	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	_ = viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
	serveStopCmd.Flags().BoolVar(&serveForce, "force", false, "Kill instead of asking for a graceful shutdown")

	serveCmd.AddCommand(serveStatusCmd)
	serveCmd.AddCommand(serveStopCmd)
	rootCmd.AddCommand(serveCmd)
}

func pidFile() *daemon.PIDFile {
	return daemon.NewPIDFile(filepath.Join(viper.GetString("state_dir"), "codereview-serve.pid"))
}

// newHandler mounts the API under /api/ and the legacy route, with the
// playground for everything else.
func newHandler() (http.Handler, error) {
	svc, s, err := newService()
	if err != nil {
		return nil, err
	}
	if !svc.Available() {
		ui.Warning("No Anthropic API key configured; review requests will answer 503")
	}

	apiHandler := api.NewServer(svc, s, newLogger()).Router()
	uiHandler, err := webui.Handler()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize UI handler: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.Handle("/review_code", apiHandler)
	mux.Handle("/", uiHandler)
	return mux, nil
}

func serveRun(ctx context.Context) error {
	handler, err := newHandler()
	if err != nil {
		return err
	}

	pf := pidFile()
	if err := pf.Acquire(); err != nil {
		return err
	}
	defer func() { _ = pf.Release() }()

	addr := fmt.Sprintf(":%d", viper.GetInt("port"))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	ctx, stop := signal.NotifyContext(ctx, shutdownSignals()...)
	defer stop()
	return serveUntilDone(ctx, ln, handler)
}

// serveUntilDone serves on ln until ctx ends, then drains in-flight requests.
func serveUntilDone(ctx context.Context, ln net.Listener, handler http.Handler) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	ui.Info("Serving at http://localhost:%d", ln.Addr().(*net.TCPAddr).Port)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	ui.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func serveStatusRun() error {
	pf := pidFile()
	pid, running := pf.IsRunning()
	if !running {
		ui.Info("Server not running")
		return nil
	}
	ui.Success("Server running (pid %d)", pid)
	ui.VerboseLog("pid file: %s", pf.Path)
	return nil
}

func serveStopRun() error {
	pf := pidFile()
	pid, running := pf.IsRunning()
	if !running {
		return fmt.Errorf("server not running (no live process in %s)", pf.Path)
	}

	sig := sigTERM()
	if serveForce {
		sig = sigKILL()
	}
	if err := pf.Signal(sig); err != nil {
		return fmt.Errorf("signal pid %d: %w", pid, err)
	}
	ui.Success("Sent %s to server (pid %d)", sig, pid)
	return nil
}
