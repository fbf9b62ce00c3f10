package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jrsteele09/go-imagen-client/apimodel"
	"github.com/jrsteele09/go-imagen-client/auth"
	"github.com/jrsteele09/go-imagen-client/preferences"
	"github.com/jrsteele09/go-imagen-client/session"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const passwordEnvVar = "IMAGEN_PASSWORD"

func newAuthCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newLoginCommand(ctx),
		newSignupCommand(ctx),
		newGoogleLoginCommand(ctx),
		newLogoutCommand(ctx),
		newMeCommand(ctx),
		newStatusCommand(ctx),
		newRefreshCommand(ctx),
	}
}

func passwordOrEnv(flag string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv(passwordEnvVar)
}

func newLoginCommand(ctx *commandContext) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			u, err := a.auth.Login(cmd.Context(), email, passwordOrEnv(password))
			if err != nil {
				return err
			}
			return printUser(cmd, ctx, u)
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password (default $"+passwordEnvVar+")")
	return cmd
}

func newSignupCommand(ctx *commandContext) *cobra.Command {
	var req apimodel.SignupRequest
	var confirm string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			req.Password = passwordOrEnv(req.Password)
			if confirm == "" {
				confirm = req.Password
			}
			u, err := a.auth.Signup(cmd.Context(), req, confirm)
			if err != nil {
				return err
			}
			return printUser(cmd, ctx, u)
		},
	}
	cmd.Flags().StringVarP(&req.Email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&req.Password, "password", "p", "", "Account password (default $"+passwordEnvVar+")")
	cmd.Flags().StringVar(&confirm, "confirm-password", "", "Password confirmation (defaults to --password)")
	cmd.Flags().StringVar(&req.FullName, "name", "", "Full name")
	return cmd
}

func newGoogleLoginCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "google-login <credential>",
		Short: "Sign in with a Google Identity Services credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			u, err := a.auth.GoogleLogin(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printUser(cmd, ctx, u)
		},
	}
}

func newLogoutCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			return a.auth.Logout(cmd.Context())
		},
	}
}

func newMeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Fetch the signed-in user's profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			u, err := a.auth.FetchMe(cmd.Context())
			if err != nil {
				return err
			}
			return printUser(cmd, ctx, u)
		},
	}
}

func newRefreshCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Refresh the access token now",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.auth.RefreshSession(cmd.Context()); err != nil {
				return err
			}
			return printStatus(cmd, ctx, a.auth.Status(), nil)
		},
	}
}

// newStatusCommand shows the local session and, when signed in, the
// account's profile and usage fetched concurrently.
func newStatusCommand(ctx *commandContext) *cobra.Command {
	var offline bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the session and account usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			if offline || !a.sessions.Authenticated() {
				return printStatus(cmd, ctx, a.auth.Status(), nil)
			}

			var stats *preferences.Stats
			g, gctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				_, err := a.auth.FetchMe(gctx)
				return err
			})
			g.Go(func() error {
				var err error
				stats, err = preferences.FetchStats(gctx, a.client)
				return err
			})
			if err := g.Wait(); err != nil {
				return err
			}
			return printStatus(cmd, ctx, a.auth.Status(), stats)
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "Only show the stored session")
	return cmd
}

func printUser(cmd *cobra.Command, ctx *commandContext, u *session.User) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, u)
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, keyValueRows(
		"UUID", u.UUID,
		"Email", u.Email,
		"Name", u.FullName,
		"Plan", u.Plan,
		"Credits", strconv.Itoa(u.CreditsRemaining),
	), nil))
	return nil
}

func printStatus(cmd *cobra.Command, ctx *commandContext, st auth.Status, stats *preferences.Stats) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, map[string]any{"status": st, "stats": stats})
	}
	expires := "unknown"
	if st.ExpiresIn > 0 {
		expires = st.ExpiresIn.Round(time.Second).String()
	} else if st.Authenticated {
		expires = "expired"
	}
	pairs := []string{
		"Signed in", strconv.FormatBool(st.Authenticated),
		"Token expires in", expires,
	}
	if st.User != nil {
		pairs = append(pairs, "Email", st.User.Email, "Plan", st.User.Plan, "Credits", strconv.Itoa(st.User.CreditsRemaining))
	}
	if stats != nil {
		pairs = append(pairs,
			"Images generated", strconv.Itoa(stats.ImagesGenerated),
			"Credits used", strconv.Itoa(stats.TotalCreditsUsed),
		)
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, keyValueRows(pairs...), []columnAlignment{alignLeft, alignRight}))
	return nil
}

// requireSession fails fast when no one is signed in.
func requireSession(a *app) error {
	if !a.sessions.Authenticated() {
		return auth.NotAuthenticatedErr
	}
	return nil
}
