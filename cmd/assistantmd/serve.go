package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dodgybadger/assistantmd/pkg/console"
	"github.com/dodgybadger/assistantmd/pkg/httpapi"
	"github.com/dodgybadger/assistantmd/pkg/logger"
	"github.com/dodgybadger/assistantmd/pkg/vault"
)

var serveLog = logger.New("cmd:serve")

func newServeCommand() *cobra.Command {
	var addr string
	var pollInterval time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and HTTP status surface until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			// Scheduler starts paused; sync the job table before resuming so
			// no job fires against a stale snapshot (§5 bootstrap).
			if _, _, err := a.sync.Sync(a.cache.Workflows(), time.Now()); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a.dispatcher.Resume(ctx, pollInterval)

			watcher, err := vault.NewWatcher(a.roots.DataRoot)
			if err != nil {
				serveLog.Printf("live-rescan watcher unavailable: %v", err)
			} else {
				defer watcher.Close()
				go watcher.Run(ctx, func() {
					if _, err := a.rescan(); err != nil {
						serveLog.Printf("watcher-triggered rescan failed: %v", err)
					}
					if err := watcher.Refresh(); err != nil {
						serveLog.Printf("watcher refresh failed: %v", err)
					}
				})
			}

			server := httpapi.New(a.cache, a.run, a.rescan)
			httpSrv := &http.Server{Addr: addr, Handler: server}

			go func() {
				serveLog.Printf("listening on %s", addr)
				if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					serveLog.Printf("http server stopped: %v", err)
				}
			}()

			<-ctx.Done()
			cmd.Println(console.FormatInfoMessage("shutting down"))

			a.dispatcher.Pause()
			a.dispatcher.Wait()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8787", "address for the HTTP status surface to listen on")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", time.Second, "how often the scheduler checks for due jobs")
	return cmd
}
