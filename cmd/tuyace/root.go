package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/nerrad567/tuya-ce-core/internal/infrastructure/config"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// configEnv overrides the default configuration path.
const configEnv = "TUYACE_CONFIG"

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "tuyace",
		Short: "Tuya CE capability catalog and Home Assistant bridge",
		Long: `tuyace classifies Tuya device data points against a community-maintained
capability catalog, reports what the catalog lacks, and bridges live devices
to Home Assistant over MQTT discovery.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate(fmt.Sprintf("tuyace %s (commit %s, built %s)\n", version, commit, date))
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file path (env: "+configEnv+", default: "+defaultConfigPath+")")

	root.AddCommand(
		newServeCmd(opts),
		newAnalyzeCmd(opts),
		newRefreshConfigCmd(opts),
		newTokenCmd(opts),
		newVersionCmd(),
	)
	return root
}

// path returns the configuration file path from the flag, the environment or the default.
func (o *rootOptions) path() string {
	if o.configPath != "" {
		return o.configPath
	}
	if path := os.Getenv(configEnv); path != "" {
		return path
	}
	return defaultConfigPath
}

// explicit reports whether the user named a configuration file.
func (o *rootOptions) explicit() bool {
	return o.configPath != "" || os.Getenv(configEnv) != ""
}

// load reads the configuration file. Offline commands fall back to the
// built-in defaults when no file was named and the default one is absent.
func (o *rootOptions) load(allowDefault bool) (*config.Config, error) {
	path := o.path()
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if allowDefault && !o.explicit() && errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	return nil, fmt.Errorf("loading config %s: %w", path, err)
}
