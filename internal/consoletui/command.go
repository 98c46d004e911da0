package consoletui

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tgdesk/tgdesk/internal/config"
	"github.com/tgdesk/tgdesk/internal/logging"
)

func Execute(version string) error {
	return newRootCmd(version).Execute()
}

func newRootCmd(version string) *cobra.Command {
	var (
		configFile string
		serverURL  string
		token      string
		theme      string
		logLevel   string
	)
	cmd := &cobra.Command{
		Use:           "tgdesk",
		Short:         "support chat operator console",
		Long:          "Bubbletea-based terminal console for answering support chats.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := config.NewLoader()
			if configFile != "" {
				loader.SetConfigFile(configFile)
			}
			if serverURL != "" {
				loader.Set("server.base_url", serverURL)
			}
			if token != "" {
				loader.Set("server.token", token)
			}
			if theme != "" {
				loader.Set("tui.theme", theme)
			}
			if logLevel != "" {
				loader.Set("logging.level", logLevel)
			}
			cfg, err := loader.Load()
			if err != nil {
				return err
			}
			initLogging(cfg)
			return Run(cfg)
		},
	}
	cmd.Flags().StringVar(&configFile, "config", "", "path to config file")
	cmd.Flags().StringVar(&serverURL, "server", "", "backend base URL override")
	cmd.Flags().StringVar(&token, "token", "", "operator token override")
	cmd.Flags().StringVar(&theme, "theme", "", "theme: default|light")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "log level: debug|info|warn|error")
	return cmd
}

// initLogging routes logs to the configured file. With the TUI holding the
// terminal, stderr output would corrupt the screen, so without a file the
// logs are dropped.
func initLogging(cfg *config.Config) {
	logCfg := logging.Config{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		EnableCaller: cfg.Logging.EnableCaller,
		Output:       io.Discard,
	}
	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err == nil {
			logCfg.Output = f
		}
	}
	logging.Init(logCfg)
}
