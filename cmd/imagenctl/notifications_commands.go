package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jrsteele09/go-imagen-client/notifications"
	"github.com/jrsteele09/go-imagen-client/notifications/pgrealtime"
	"github.com/jrsteele09/go-imagen-client/notifications/pgrepo"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var errNoNotificationsDB = errors.New("notifications database not configured; set IMAGEN_NOTIFICATIONS_DATABASE_URL")

func newNotificationsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"notif"},
		Short:   "List, watch and mark notifications",
	}
	cmd.AddCommand(
		newNotificationsListCommand(ctx),
		newNotificationsMoreCommand(ctx),
		newNotificationsWatchCommand(ctx),
		newNotificationsReadCommand(ctx),
		newNotificationsReadAllCommand(ctx),
		newNotificationsOpenCommand(ctx),
	)
	return cmd
}

// withFeed opens the notifications table and runs fn with a feed over it.
func (c *commandContext) withFeed(cctx context.Context, fn func(a *app, feed *notifications.Feed) error) error {
	a, err := c.ensureApp(cctx)
	if err != nil {
		return err
	}
	if err := requireSession(a); err != nil {
		return err
	}
	url := a.cfg.GetNotificationsDatabaseURL()
	if url == "" {
		return errNoNotificationsDB
	}
	repo, err := pgrepo.Open(cctx, pgrepo.Config{
		URL:          url,
		Table:        a.cfg.GetNotificationsTable(),
		QueryTimeout: a.cfg.GetRequestTimeout(),
	})
	if err != nil {
		return err
	}
	defer repo.Close()

	feed := notifications.NewFeed(a.sessions, repo,
		notifications.WithLimit(a.cfg.GetNotificationsPageSize()),
		notifications.WithLogger(a.log),
		notifications.WithMarker(notifications.NewAPIMarker(a.client)),
	)
	return fn(a, feed)
}

func newNotificationsListCommand(ctx *commandContext) *cobra.Command {
	var byPriority bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the newest notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withFeed(cmd.Context(), func(_ *app, feed *notifications.Feed) error {
				if err := feed.Reload(cmd.Context()); err != nil {
					return err
				}
				return printFeed(cmd, ctx, feed, byPriority)
			})
		},
	}
	cmd.Flags().BoolVar(&byPriority, "by-priority", false, "Order failures first, then successes")
	return cmd
}

func newNotificationsMoreCommand(ctx *commandContext) *cobra.Command {
	var pages int
	cmd := &cobra.Command{
		Use:   "more",
		Short: "Show the newest notifications plus further pages",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withFeed(cmd.Context(), func(_ *app, feed *notifications.Feed) error {
				if err := feed.Reload(cmd.Context()); err != nil {
					return err
				}
				for i := 0; i < pages && feed.HasMore(); i++ {
					if err := feed.FetchMore(cmd.Context()); err != nil {
						return err
					}
				}
				return printFeed(cmd, ctx, feed, false)
			})
		},
	}
	cmd.Flags().IntVar(&pages, "pages", 1, "Additional pages to load")
	return cmd
}

func newNotificationsWatchCommand(ctx *commandContext) *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream new notifications until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withFeed(cmd.Context(), func(a *app, feed *notifications.Feed) error {
				if metricsAddr == "" {
					metricsAddr = a.cfg.GetMetricsAddr()
				}
				if metricsAddr != "" {
					stop := serveMetrics(a, metricsAddr)
					defer stop()
				}

				sub := pgrealtime.New(pgrealtime.Config{
					URL:     a.cfg.GetNotificationsDatabaseURL(),
					Channel: a.cfg.GetNotificationsChannel(),
				}, pgrealtime.WithLogger(a.log), pgrealtime.WithMetrics(a.registry),
					pgrealtime.WithOnReconnect(func(rctx context.Context) {
						if err := feed.Reload(rctx); err != nil {
							a.log.Warn().Err(err).Msg("reload after reconnect failed")
						}
					}))

				// effects are printed after the notification that produced them
				var pending []notifications.Effect
				collect := notifications.EffectHandlerFunc(func(_ context.Context, e notifications.Effect) {
					pending = append(pending, e)
				})
				printing := subscriberFunc(func(wctx context.Context, user string, apply func(notifications.Record)) error {
					return sub.Subscribe(wctx, user, func(rec notifications.Record) {
						apply(rec)
						if n, ok := feed.Get(rec.ID); ok {
							printNotificationLine(cmd, n)
						}
						for _, e := range pending {
							printEffect(cmd, a, e)
						}
						pending = pending[:0]
					})
				})

				fmt.Fprintln(cmd.ErrOrStderr(), "Watching for notifications, press Ctrl+C to stop.")
				return feed.Watch(cmd.Context(), printing, collect)
			})
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while watching")
	return cmd
}

// subscriberFunc adapts a function to notifications.Subscriber.
type subscriberFunc func(ctx context.Context, userUUID string, fn func(notifications.Record)) error

func (f subscriberFunc) Subscribe(ctx context.Context, userUUID string, fn func(notifications.Record)) error {
	return f(ctx, userUUID, fn)
}

func serveMetrics(a *app, addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error().Err(err).Str("addr", addr).Msg("metrics server failed")
		}
	}()
	a.log.Info().Str("addr", addr).Msg("serving metrics")
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func newNotificationsReadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "read <id>",
		Short: "Mark a notification as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withFeed(cmd.Context(), func(_ *app, feed *notifications.Feed) error {
				if err := feed.Reload(cmd.Context()); err != nil {
					return err
				}
				return feed.MarkAsRead(cmd.Context(), args[0])
			})
		},
	}
}

func newNotificationsReadAllCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "read-all",
		Short: "Mark every notification as read",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withFeed(cmd.Context(), func(_ *app, feed *notifications.Feed) error {
				return feed.MarkAllAsRead(cmd.Context())
			})
		},
	}
}

func newNotificationsOpenCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "open <id>",
		Short: "Show the job behind a notification and mark it read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withFeed(cmd.Context(), func(a *app, feed *notifications.Feed) error {
				if err := feed.Reload(cmd.Context()); err != nil {
					return err
				}
				e, err := feed.Open(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if e.HistoryUUID == "" {
					return fmt.Errorf("notification %s has no job attached", args[0])
				}
				h, err := a.gen.History(cmd.Context(), e.HistoryUUID)
				if err != nil {
					return err
				}
				return printHistory(cmd, ctx, h)
			})
		},
	}
}

func printFeed(cmd *cobra.Command, ctx *commandContext, feed *notifications.Feed, byPriority bool) error {
	items := feed.Items()
	if byPriority {
		items = feed.SortedItems()
	}
	if ctx.jsonOutput() {
		return writeJSON(cmd, map[string]any{"total": feed.Total(), "items": items})
	}

	now := time.Now()
	rows := make([][]string, 0, len(items))
	for _, n := range items {
		read := ""
		if !n.Seen {
			read = "•"
		}
		rows = append(rows, []string{read, n.ID, notifications.Title(n), notifications.Describe(n), n.Status.String(), notifications.FormatAge(n.CreatedAt, now)})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"", "ID", "Title", "Description", "Status", "When"}, rows, nil))
	fmt.Fprintf(cmd.OutOrStdout(), "%d of %d loaded\n", len(items), feed.Total())
	return nil
}

func printNotificationLine(cmd *cobra.Command, n notifications.Notification) {
	fmt.Fprintf(cmd.OutOrStdout(), "[%s] #%s %s: %s\n", n.Status, n.ID, notifications.Title(n), notifications.Describe(n))
}

func printEffect(cmd *cobra.Command, a *app, e notifications.Effect) {
	switch e.Kind {
	case notifications.EffectRedirect:
		fmt.Fprintf(cmd.OutOrStdout(), "  -> open %s%s\n", a.cfg.GetBaseURL(), e.URL)
	case notifications.EffectOpenDetail:
		fmt.Fprintf(cmd.OutOrStdout(), "  -> imagenctl history show %s\n", e.HistoryUUID)
	}
}
