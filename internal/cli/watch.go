package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jrsteele09/go-tenant-admin/client"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var errSessionEnded = errors.New("session ended")

func newWatchCmd(a *app) *cobra.Command {
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the session alive, printing every refresh",
		Long:  "watch keeps the session token fresh until interrupted, the backend refuses a refresh, or --for elapses.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			return a.withClient(ctx, func(c *client.Client) error {
				state := c.Session.State()
				if !state.IsAuthenticated() {
					return errNotLoggedIn
				}
				fmt.Fprintf(a.out, "Watching session of %s, token %s\n", state.User.Email, describeExpiry(state.Token))

				ended := make(chan struct{})
				var closed bool
				cancelWatch := c.Session.WatchToken(func(token string) {
					if token == "" {
						if !closed {
							closed = true
							close(ended)
						}
						return
					}
					fmt.Fprintf(a.out, "Token refreshed, %s\n", describeExpiry(token))
				})
				defer cancelWatch()

				select {
				case <-ended:
					fmt.Fprintln(a.out, "Session expired, log in again")
					return errSessionEnded
				case <-ctx.Done():
					fmt.Fprintln(a.out, "Stopped watching")
					return nil
				}
			})
		},
	}

	cmd.Flags().DurationVar(&duration, "for", 0, "Stop after this long (0 waits for an interrupt)")
	return cmd
}
