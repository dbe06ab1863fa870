package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zulandar/shepherd/internal/campaign"
	"github.com/zulandar/shepherd/internal/config"
	"github.com/zulandar/shepherd/internal/db"
	"github.com/zulandar/shepherd/internal/directory"
)

func newBroadcastCmd() *cobra.Command {
	var (
		configPath string
		tenantID   string
	)

	cmd := &cobra.Command{
		Use:   "broadcast [message]",
		Short: "Send a message to every member of a church",
		Long:  "Connects to the chat platform and dispatches the message to all members of the given church, batched and paced like the daily campaigns.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBroadcast(cmd, configPath, tenantID, args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "shepherd.yaml", "path to Shepherd config file")
	cmd.Flags().StringVarP(&tenantID, "tenant", "t", "", "church ID, alias, or name (required)")
	cmd.MarkFlagRequired("tenant")
	return cmd
}

func runBroadcast(cmd *cobra.Command, configPath, tenantID, message string) error {
	out := cmd.OutOrStdout()

	message = strings.TrimSpace(message)
	if message == "" {
		return fmt.Errorf("broadcast: message is empty")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Connect(cfg.Store.Host, cfg.Store.Port, cfg.Store.Database)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", cfg.Store.Database, err)
	}
	store, err := directory.NewStore(directory.StoreOpts{DB: gormDB})
	if err != nil {
		return err
	}

	tenant, err := store.GetTenantProfile(tenantID)
	if err != nil {
		return err
	}
	if tenant == nil {
		return fmt.Errorf("broadcast: church %q not found", tenantID)
	}

	members, err := store.ListMembers(tenant.ID)
	if err != nil {
		return err
	}
	if len(members) == 0 {
		fmt.Fprintf(out, "No members found for %s, nothing to send.\n", tenant.Name)
		return nil
	}

	adapter, err := createAdapter(cfg)
	if err != nil {
		return err
	}
	ctx := context.Background()
	if err := adapter.Connect(ctx); err != nil {
		return err
	}
	defer adapter.Close()

	dispatcher, err := campaign.NewDispatcher(campaign.DispatcherOpts{
		Adapter:   adapter,
		BatchSize: cfg.Dispatch.BatchSize,
		Out:       out,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Broadcasting to %d members of %s...\n", len(members), tenant.Name)
	_, summary := dispatcher.Dispatch(ctx, members, func(directory.Person) string {
		return message
	})
	fmt.Fprintf(out, "Done: %s\n", summary)

	if summary.Failed > 0 {
		return fmt.Errorf("broadcast: %d of %d sends failed", summary.Failed, summary.Total)
	}
	return nil
}
