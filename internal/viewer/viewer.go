// Package viewer displays the interactive figures in the system browser.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"time"

	"github.com/banshee-data/diffusion.report/internal/httputil"
	"github.com/banshee-data/diffusion.report/internal/monitoring"
)

// Opener displays a URL.
type Opener func(url string) error

// OpenBrowser starts the platform's URL handler.
func OpenBrowser(url string) error {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
		args = []string{url}
	case "linux":
		cmd = "xdg-open"
		args = []string{url}
	case "windows":
		cmd = "cmd"
		args = []string{"/c", "start", url}
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return exec.Command(cmd, args...).Start()
}

// SummaryPath is where the viewer serves the summary as JSON.
const SummaryPath = "/summary.json"

// Show serves page on an ephemeral localhost port, hands its URL to open and
// blocks until ctx is cancelled. A non-nil summary is also served as JSON at
// SummaryPath. A failing opener is logged, not fatal: the URL stays
// reachable by hand.
func Show(ctx context.Context, page []byte, summary interface{}, open Opener) error {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to create listener for viewer: %w", err)
	}
	return serve(ctx, ln, newHandler(page, summary), open)
}

func newHandler(page []byte, summary interface{}) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			httputil.MethodNotAllowed(w)
			return
		}
		switch {
		case r.URL.Path == "/":
			httputil.WriteHTML(w, page)
		case r.URL.Path == SummaryPath && summary != nil:
			httputil.WriteJSONOK(w, summary)
		default:
			httputil.NotFound(w, "no such page: "+r.URL.Path)
		}
	})
	return mux
}

func serve(ctx context.Context, ln net.Listener, handler http.Handler, open Opener) error {

	server := &http.Server{Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	url := fmt.Sprintf("http://%s/", ln.Addr().String())
	monitoring.Logf("figures available at %s (interrupt to exit)", url)
	if open != nil {
		if err := open(url); err != nil {
			monitoring.Logf("failed to open browser: %v", err)
		}
	}

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("viewer server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		monitoring.Logf("viewer shutdown error: %v", err)
		if err := server.Close(); err != nil {
			monitoring.Logf("viewer force close error: %v", err)
		}
	}
	return nil
}
