package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"

	"github.com/and161185/botscripts/internal/client"
	"github.com/and161185/botscripts/internal/model"
)

func newStatusCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check the configured token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, r, err := o.connect(cmd)
			if err != nil {
				return err
			}
			defer r.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), rpcTimeout)
			defer cancel()
			tok, err := r.Status(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "account %d\n", tok.AccountID)
			fmt.Fprintf(out, "issued  %s\n", humanize.Time(tok.IssuedAt))
			fmt.Fprintf(out, "expires %s\n", humanize.Time(tok.IssuedAt.Add(model.TokenTTL)))
			return nil
		},
	}
}

func newPullCommand(o *rootOptions) *cobra.Command {
	var overwrite bool
	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Download the account's scripts into the source directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, r, err := o.connect(cmd)
			if err != nil {
				return err
			}
			defer r.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), rpcTimeout)
			defer cancel()
			written, skipped, err := client.Pull(ctx, r, client.Tree{Dir: cfg.SrcDir}, overwrite)
			out := cmd.OutOrStdout()
			for _, n := range written {
				fmt.Fprintf(out, "pulled %s\n", n)
			}
			if len(skipped) > 0 {
				fmt.Fprintf(out, "kept %d local %s (use --overwrite to replace)\n",
					len(skipped), english.PluralWord(len(skipped), "file", ""))
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace existing local files")
	return cmd
}

func newDeployCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "deploy",
		Short: "Replace the account's scripts with the source directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, r, err := o.connect(cmd)
			if err != nil {
				return err
			}
			defer r.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), rpcTimeout)
			defer cancel()
			set, err := client.Deploy(ctx, r, client.Tree{Dir: cfg.SrcDir})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), deploySummary(set))
			return nil
		},
	}
}

func deploySummary(set model.ScriptSet) string {
	var total uint64
	for _, s := range set {
		total += uint64(len(s.Body))
	}
	return fmt.Sprintf("deployed %s (%s)",
		english.Plural(len(set), "script", "scripts"), humanize.Bytes(total))
}

func newWatchCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Deploy the source directory, then upload changes as files are saved",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, r, err := o.connect(cmd)
			if err != nil {
				return err
			}
			defer r.Close()

			tree := client.Tree{Dir: cfg.SrcDir}
			ctx, cancel := context.WithTimeout(cmd.Context(), rpcTimeout)
			set, err := client.Deploy(ctx, r, tree)
			cancel()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, deploySummary(set))

			log := o.logger()
			defer func() { _ = log.Sync() }()
			w := client.NewWatcher(tree, r, cfg.Throttle, log, func(c client.Change) {
				switch {
				case c.Err != nil:
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", c.Name, errMessage(c.Err))
				case c.Deleted:
					fmt.Fprintf(out, "deleted %s\n", c.Name)
				default:
					fmt.Fprintf(out, "uploaded %s\n", c.Name)
				}
			})
			fmt.Fprintf(out, "watching %s (ctrl-c to stop)\n", cfg.SrcDir)
			return w.Run(cmd.Context())
		},
	}
}

func newRmCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm NAME...",
		Short: "Delete scripts from the server by name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, r, err := o.connect(cmd)
			if err != nil {
				return err
			}
			defer r.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), rpcTimeout)
			defer cancel()
			if err := r.Delete(ctx, args); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", english.Plural(len(args), "script", "scripts"))
			return nil
		},
	}
}

func newInitCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the config file and a starter script",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			path := o.path()
			switch err := client.WriteConfigTemplate(path); {
			case err == nil:
				fmt.Fprintf(out, "created %s\n", path)
			case errors.Is(err, fs.ErrExist):
				fmt.Fprintf(out, "config %s already exists\n", path)
			default:
				return err
			}

			cfg, err := client.LoadConfig(path)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("src-dir") {
				cfg.SrcDir = o.srcDir
			}
			created, err := client.Tree{Dir: cfg.SrcDir}.Init()
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(out, "created %s/main%s\n", cfg.SrcDir, client.ScriptExt)
			}
			return nil
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the CLI version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "botscripts %s (%s)\n", version, buildDate)
		},
	}
}
