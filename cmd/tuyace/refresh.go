package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nerrad567/tuya-ce-core/internal/activity"
	"github.com/nerrad567/tuya-ce-core/internal/catalog"
	"github.com/nerrad567/tuya-ce-core/internal/infrastructure/config"
	"github.com/nerrad567/tuya-ce-core/internal/infrastructure/logging"
	"github.com/nerrad567/tuya-ce-core/internal/infrastructure/mqtt"
)

// refreshOptions are the flags of the refresh-config command.
type refreshOptions struct {
	publish bool
}

func newRefreshConfigCmd(root *rootOptions) *cobra.Command {
	opts := &refreshOptions{}

	cmd := &cobra.Command{
		Use:   "refresh-config",
		Short: "Fetch the devices, countries and units documents again",
		Long: `Force a remote fetch of every catalog document and store the result locally.

With --publish the update_remote_configuration service is called over MQTT
instead, so a running bridge refreshes and rediscovers its devices.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load(true)
			if err != nil {
				return err
			}
			if opts.publish {
				return publishRefresh(cfg)
			}
			return runRefresh(cmd.Context(), cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().BoolVar(&opts.publish, "publish", false, "Ask a running bridge to refresh over MQTT")
	return cmd
}

func runRefresh(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer) error {
	log := logging.NewWithWriter(stderr, cfg.Logging, version)

	db, err := openDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck // nothing left to flush

	store := newCatalogStore(db, cfg, log)
	loadErr := store.Load(ctx, true)
	snap := store.Snapshot()
	activity.NewRecorder(activity.NewSQLiteRepository(db.DB), log).
		Record(ctx, activity.CatalogRefresh(activity.SourceCLI, "", len(snap.Devices), len(snap.Countries), loadErr))
	if loadErr != nil {
		return fmt.Errorf("refreshing catalog: %w", loadErr)
	}

	fmt.Fprintf(stdout, "catalog refreshed from %s\n", cfg.Catalog.BaseURL)
	fmt.Fprintf(stdout, "  categories:     %d\n", len(snap.Devices))
	fmt.Fprintf(stdout, "  countries:      %d\n", len(snap.Countries))
	fmt.Fprintf(stdout, "  device classes: %d\n", len(snap.Units.DeviceClasses()))
	for _, name := range catalog.Documents() {
		fmt.Fprintf(stdout, "  %-15s %s\n", name+":", snap.Sources[name])
	}
	return nil
}

func publishRefresh(cfg *config.Config) error {
	client, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer client.Close() //nolint:errcheck // publish already acknowledged

	topic := client.Topics().Service(mqtt.ServiceUpdateRemoteConfiguration)
	if err := client.Publish(topic, []byte("{}"), byte(cfg.MQTT.QoS), false); err != nil { //nolint:gosec // validated to 0-2
		return fmt.Errorf("publishing %s: %w", topic, err)
	}
	return nil
}
