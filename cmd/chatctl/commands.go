package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gosuri/uitable"
	"github.com/nulzo/chat-router/internal/cli"
	"github.com/nulzo/chat-router/internal/config"
	"github.com/nulzo/chat-router/internal/llm"
	"github.com/nulzo/chat-router/internal/version"
	"github.com/spf13/cobra"
)

// providerLoader returns the declared providers and AI settings.
type providerLoader func() (config.AIConfig, error)

func loadProviders() (config.AIConfig, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return config.AIConfig{}, err
	}
	return cfg.AI, nil
}

type app struct {
	out     io.Writer
	load    providerLoader
	http    *http.Client
	noColor bool
	timeout time.Duration
}

func newRootCmd(out io.Writer, load providerLoader) *cobra.Command {
	a := &app{out: out, load: load}

	root := &cobra.Command{
		Use:           "chatctl",
		Short:         "Inspect and call the configured AI providers",
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if a.noColor {
				cli.SetEnabled(false)
			}
		},
	}
	root.SetOut(out)
	root.SetErr(out)
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "disable colored output")
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", 0, "upstream timeout (defaults to ai.timeout)")

	root.AddCommand(a.modelsCmd(), a.askCmd(), a.streamCmd(), a.versionCmd())
	return root
}

func (a *app) modelsCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			ai, err := a.load()
			if err != nil {
				return err
			}
			registry := llm.NewRegistry(llm.StaticSource(ai.Providers))

			providers := registry.ListEnabled()
			if all {
				providers = ai.Providers
			}

			table := uitable.New()
			table.MaxColWidth = 60
			table.AddRow("ID", "NAME", "FAMILY", "ENABLED", "URL")
			for _, p := range providers {
				enabled := cli.Style("no", cli.Red)
				if p.Enabled {
					enabled = cli.Style("yes", cli.Green)
				}
				table.AddRow(p.ID, p.Name, llm.FamilyName(p), enabled, p.URL())
			}
			_, err = fmt.Fprintln(a.out, table)
			return err
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "include disabled providers")
	return cmd
}

func (a *app) askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <model> <message...>",
		Short: "Send one message and print the normalized result",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			res := client.Call(cmd.Context(), args[0], strings.Join(args[1:], " "), nil)
			cli.PrettyPrint(a.out, res)
			if res.Failed() {
				return fmt.Errorf("%s %s", cli.CrossMark(), res.Error)
			}
			return nil
		},
	}
}

func (a *app) streamCmd() *cobra.Command {
	var delay time.Duration
	cmd := &cobra.Command{
		Use:   "stream <model> <message...>",
		Short: "Send one message and print the reply as it would be streamed",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			model := llm.NewLanguageModel(client, args[0], llm.WithStreamDelay(delay))

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			chunks, err := model.Stream(ctx, []llm.PromptMessage{
				{Role: llm.RoleUser, Text: strings.Join(args[1:], " ")},
			})
			if err != nil {
				return err
			}
			for c := range chunks {
				switch c.Type {
				case llm.ChunkTextDelta:
					_, _ = io.WriteString(a.out, c.TextDelta)
				case llm.ChunkFinish:
					_, _ = fmt.Fprintf(a.out, "\n%s %s\n", cli.CheckMark(), cli.Style(c.FinishReason, cli.Dim))
				}
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&delay, "delay", llm.DefaultStreamDelay, "pause between chunks")
	return cmd
}

func (a *app) versionCmd() *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _ = fmt.Fprintln(a.out, version.Version)
			if !check {
				return nil
			}
			update, err := version.NewChecker().Check(cmd.Context())
			if err != nil {
				return err
			}
			if update != nil {
				_, _ = fmt.Fprintf(a.out, "%s %s\n", cli.WarningSign(), update)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "check for a newer release")
	return cmd
}

func (a *app) client() (*llm.Client, error) {
	ai, err := a.load()
	if err != nil {
		return nil, err
	}

	httpClient := a.http
	if httpClient == nil {
		timeout := a.timeout
		if timeout <= 0 {
			timeout = ai.Timeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return llm.NewClient(llm.NewRegistry(llm.StaticSource(ai.Providers)), llm.WithHTTPClient(httpClient)), nil
}
