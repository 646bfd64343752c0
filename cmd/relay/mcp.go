package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/relaycore/relay/internal/config"
	"github.com/relaycore/relay/internal/mcpsession"
	"github.com/relaycore/relay/internal/observability"
)

func buildMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Inspect configured MCP servers",
	}
	cmd.AddCommand(buildMCPToolsCmd())
	return cmd
}

func buildMCPToolsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "tools <server-id>",
		Short: "Connect to one configured MCP server and list its tools",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return listMCPTools(cmd.Context(), configPath, args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "relay.yaml", "Path to YAML configuration file")
	return cmd
}

func listMCPTools(ctx context.Context, configPath, serverID string) error {
	file, err := config.Load(configPath)
	if err != nil {
		return err
	}

	serverCfg, ok := file.Servers[serverID]
	if !ok {
		return fmt.Errorf("relay: no mcp server named %q in %s", serverID, configPath)
	}

	session, err := mcpsession.NewSession(ctx, serverCfg, nil)
	if err != nil {
		return err
	}
	session.Metrics = observability.NewMetrics()
	session.Tracer = observability.NewTracer("github.com/relaycore/relay/cmd/relay")
	session.Metrics.ActiveSessions.Inc()
	defer session.Shutdown(ctx)

	if _, err := session.Initialize(ctx, mcpsession.ClientInfo{Name: "relay", Version: "0.1.0"}); err != nil {
		return err
	}

	result, err := session.ListTools(ctx)
	if err != nil {
		return err
	}

	for _, tool := range result.Tools {
		fmt.Printf("%s\t%s\n", tool.Name, tool.Description)
	}
	return nil
}
