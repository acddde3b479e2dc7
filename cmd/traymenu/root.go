package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shelepuginivan/traymenu"
	"github.com/shelepuginivan/traymenu/ipc"
	"github.com/shelepuginivan/traymenu/menufile"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type options struct {
	menu      string
	watch     bool
	icon      string
	title     string
	tooltip   string
	iconFiles bool
	noInput   bool
	debug     bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "traymenu",
		Short: "Show a tray icon and menu driven over standard input",
		Long: `traymenu shows a system tray icon with a menu and keeps it in sync with a
controlling process.

Commands are read from standard input and events are written to standard
output, one JSON object per line. The initial menu may also be loaded from a
YAML file.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, afero.NewOsFs())
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.menu, "menu", "m", "", "YAML file describing the menu")
	flags.BoolVarP(&opts.watch, "watch", "w", false, "re-apply the menu file when it changes")
	flags.StringVarP(&opts.icon, "icon", "i", "", "icon file shown at startup")
	flags.StringVar(&opts.title, "title", "", "icon title, used with --icon")
	flags.StringVar(&opts.tooltip, "tooltip", "", "icon tooltip, used with --icon")
	flags.BoolVar(&opts.iconFiles, "icon-files", false, "hand icons to the tray host as temporary files")
	flags.BoolVar(&opts.noInput, "no-input", false, "do not read commands from standard input")
	flags.BoolVar(&opts.debug, "debug", false, "enable debug logging")

	return cmd
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cmd *cobra.Command, opts *options, fs afero.Fs) error {
	if opts.watch && opts.menu == "" {
		return errors.New("--watch requires --menu")
	}

	logger, err := newLogger(opts.debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	platform, err := traymenu.NewPlatform(logger)
	if err != nil {
		return err
	}

	bridge := ipc.NewBridge(cmd.OutOrStdout(), logger)

	trayOpts := []traymenu.Option{traymenu.WithLogger(logger)}
	if opts.iconFiles {
		trayOpts = append(trayOpts, traymenu.WithIconLoader(traymenu.TempFileLoader{Fs: fs}))
	}
	tray := traymenu.New(platform, bridge, trayOpts...)

	// Commands posted before Run are applied once the tray is ready.
	if opts.icon != "" {
		icon, err := afero.ReadFile(fs, opts.icon)
		if err != nil {
			return fmt.Errorf("failed to read icon %s: %w", opts.icon, err)
		}
		tray.ShowTray(opts.title, opts.tooltip, icon)
	}

	if opts.menu != "" {
		menu, err := menufile.Load(fs, opts.menu)
		if err != nil {
			return err
		}
		menu.Apply(tray)
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go func() {
		<-ctx.Done()
		tray.Quit()
	}()

	if opts.watch {
		go watchMenu(ctx, fs, opts.menu, tray, bridge, logger)
	}

	if !opts.noInput {
		go func() {
			defer cancel()

			if err := bridge.Serve(ctx, cmd.InOrStdin(), tray); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("failed to read commands", zap.Error(err))
			}
		}()
	}

	return tray.Run()
}

func watchMenu(ctx context.Context, fs afero.Fs, path string, tray *traymenu.Tray, bridge *ipc.Bridge, logger *zap.Logger) {
	err := menufile.Watch(ctx, path, func() {
		menu, err := menufile.Load(fs, path)
		if err != nil {
			logger.Warn("menu file not reloaded", zap.Error(err))
			bridge.Error(err)
			return
		}

		logger.Debug("menu file reloaded", zap.String("path", path))
		menu.Apply(tray)
	})
	if err != nil {
		logger.Error("stopped watching menu file", zap.Error(err))
	}
}
