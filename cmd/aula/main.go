package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"aulabot/internal/aula"
	"aulabot/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var child string

	root := &cobra.Command{
		Use:           "aula",
		Short:         "Query the Aula parent portal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&child, "child", "", "active child name for child-scoped commands")

	root.AddCommand(newChildrenCmd())
	root.AddCommand(newOverviewCmd(&child))
	root.AddCommand(newMessagesCmd())
	root.AddCommand(newCalendarCmd(&child))
	root.AddCommand(newGalleryCmd())
	root.AddCommand(newCallCmd())
	return root
}

func newClient(child string) (*aula.Client, error) {
	cfg := config.Load()
	if cfg.AulaUsername == "" || cfg.AulaPassword == "" {
		return nil, fmt.Errorf("AULA_USERNAME and AULA_PASSWORD must be set")
	}
	client := aula.New(cfg.AulaUsername, cfg.AulaPassword)
	if child != "" {
		client.SetActiveChild(child)
	}
	return client, nil
}

func cmdContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 2*time.Minute)
}

func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func newChildrenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "children",
		Short: "List the children on the account",
		RunE: func(_ *cobra.Command, _ []string) error {
			client, err := newClient("")
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext()
			defer cancel()
			children, err := client.FetchBasicData(ctx)
			if err != nil {
				return err
			}
			return printJSON(children)
		},
	}
}

func newOverviewCmd(child *string) *cobra.Command {
	return &cobra.Command{
		Use:   "overview",
		Short: "Show today's presence overview for the active child",
		RunE: func(_ *cobra.Command, _ []string) error {
			client, err := newClient(*child)
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext()
			defer cancel()
			overview, err := client.FetchDailyOverview(ctx)
			if err != nil {
				return err
			}
			return printJSON(overview)
		},
	}
}

func newMessagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "messages",
		Short: "List unread messages",
		RunE: func(_ *cobra.Command, _ []string) error {
			client, err := newClient("")
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext()
			defer cancel()
			messages, err := client.FetchMessages(ctx)
			if err != nil {
				return err
			}
			return printJSON(messages)
		},
	}
}

func newCalendarCmd(child *string) *cobra.Command {
	var days int
	var flat bool

	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Show upcoming events for the active child",
		RunE: func(_ *cobra.Command, _ []string) error {
			client, err := newClient(*child)
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext()
			defer cancel()
			if flat {
				events, err := client.FetchCalendar(ctx, days)
				if err != nil {
					return err
				}
				return printJSON(events)
			}
			byDay, err := client.FetchCalendarByDay(ctx, days)
			if err != nil {
				return err
			}
			return printJSON(byDay)
		},
	}
	cmd.Flags().IntVar(&days, "days", 14, "number of days to fetch")
	cmd.Flags().BoolVar(&flat, "flat", false, "print a flat event list instead of grouping by day")
	return cmd
}

func newGalleryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gallery",
		Short: "List gallery pictures across all albums",
		RunE: func(_ *cobra.Command, _ []string) error {
			client, err := newClient("")
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext()
			defer cancel()
			items, err := client.FetchGallery(ctx)
			if err != nil {
				return err
			}
			return printJSON(items)
		},
	}
}

func newCallCmd() *cobra.Command {
	var data string

	cmd := &cobra.Command{
		Use:   "call <path>",
		Short: "Perform a raw API call through the authenticated session",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			client, err := newClient("")
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext()
			defer cancel()
			result, err := client.CustomAPICall(ctx, args[0], data)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	cmd.Flags().StringVar(&data, "data", "", "JSON body; the call becomes a POST when set")
	return cmd
}
