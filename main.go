package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"keyswitch/internal/config"
	"keyswitch/internal/ipc"
	"keyswitch/internal/syshotkey"

	"github.com/spf13/cobra"
)

var version = "0.3.0"

var sendControlFn = ipc.Send

type cliFlags struct {
	configPath string
	logLevel   string
}

func main() {
	setConsoleUTF8()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &cliFlags{}
	root := &cobra.Command{
		Use:   "keyswitch",
		Short: "Remap keyboard shortcuts to system actions",
		Long: `keyswitch installs a low-level keyboard hook and maps key combinations to
system actions such as switching the input language.

Run without a subcommand to start the hook in the foreground. The other
subcommands talk to the running instance over its control pipe.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if flags.logLevel == "" {
				return nil
			}
			_, err := config.ParseLogLevel(flags.logLevel)
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runForeground(cmd, flags)
		},
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "config file path (default: %LOCALAPPDATA%\\keyswitch\\config.yaml)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level override: debug, info, warn, error")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Install the keyboard hook and run until stopped",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runForeground(cmd, flags)
			},
		},
		newControlCmd(ipc.CommandStop, "Stop the running instance"),
		newControlCmd(ipc.CommandStatus, "Show state, counters and recent warnings of the running instance"),
		newControlCmd(ipc.CommandBindings, "List the bindings of the running instance in match order"),
		newControlCmd(ipc.CommandReload, "Reload the config file in the running instance"),
		newCheckConfigCmd(flags),
	)
	return root
}

func runForeground(cmd *cobra.Command, flags *cliFlags) error {
	app, err := NewApp(AppOptions{
		ConfigPath: flags.configPath,
		LogLevel:   flags.logLevel,
		Stdout:     cmd.OutOrStdout(),
		Stderr:     cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return app.Run(ctx)
}

func newControlCmd(command, short string) *cobra.Command {
	return &cobra.Command{
		Use:   command,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := sendControlFn("", ipc.Request{Command: command})
			if ipc.IsConnectionError(err) {
				return errNotRunning
			}
			if err != nil {
				return fmt.Errorf("%s: %w", command, err)
			}
			fmt.Fprint(cmd.OutOrStdout(), resp.Stdout)
			fmt.Fprint(cmd.ErrOrStderr(), resp.Stderr)
			if resp.ExitCode != 0 {
				return fmt.Errorf("%s failed with exit code %d", command, resp.ExitCode)
			}
			return nil
		},
	}
}

func newCheckConfigCmd(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check-config",
		Short: "Validate the config file and print the resulting bindings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := flags.configPath
			if path == "" {
				path = config.DefaultPath()
			}
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s does not exist, showing the defaults\n", path)
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			table, err := config.BuildTable(cfg, syshotkey.New())
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d bindings, log level %s)\n", path, table.Len(), cfg.LogLevel)
			fmt.Fprint(cmd.OutOrStdout(), formatBindings(table))
			return nil
		},
	}
}
