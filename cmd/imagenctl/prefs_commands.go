package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jrsteele09/go-imagen-client/preferences"
	"github.com/spf13/cobra"
)

func newPrefsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show and change generation defaults",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			p := a.prefs.Get()
			if ctx.jsonOutput() {
				return writeJSON(cmd, p)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Preference", "Value"}, keyValueRows(
				"default_model", p.Model(),
				"preferred_style", p.PreferredStyle,
				"default_dimensions", p.DefaultDimensions,
				"auto_save_images", strconv.FormatBool(p.AutoSaveImages),
				"notification_settings.email_notifications", strconv.FormatBool(p.NotificationSettings.EmailNotifications),
				"notification_settings.webhook_notifications", strconv.FormatBool(p.NotificationSettings.WebhookNotifications),
			), nil))
			return nil
		},
	}

	var push bool
	set := &cobra.Command{
		Use:   "set <name> <value>",
		Short: "Change a preference (" + strings.Join(preferences.Keys(), ", ") + ")",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.prefs.Set(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			if push {
				return a.prefs.Push(cmd.Context(), a.client)
			}
			return nil
		},
	}
	set.Flags().BoolVar(&push, "push", false, "Also save the preferences to the account")

	cmd.AddCommand(show, set)
	return cmd
}
