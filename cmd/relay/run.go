package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/relaycore/relay/internal/agentloop"
	"github.com/relaycore/relay/internal/config"
	"github.com/relaycore/relay/internal/mcpsession"
	"github.com/relaycore/relay/internal/mcpsystem"
	"github.com/relaycore/relay/internal/observability"
	"github.com/relaycore/relay/internal/provider"
	"github.com/relaycore/relay/internal/system"
	"github.com/relaycore/relay/pkg/models"
)

func buildRunCmd() *cobra.Command {
	var (
		configPath string
		providerID string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one interactive reply loop over stdin/stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoop(cmd.Context(), configPath, providerID)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "relay.yaml", "Path to YAML configuration file")
	cmd.Flags().StringVarP(&providerID, "provider", "p", "", "Provider name from the config file's providers map")
	return cmd
}

func runLoop(ctx context.Context, configPath, providerID string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := observability.NewLogger(observability.LogConfig{Level: "info"})
	metrics := observability.NewMetrics()
	tracer := observability.NewTracer("github.com/relaycore/relay/cmd/relay")

	file, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if providerID == "" {
		for id := range file.Providers {
			providerID = id
			break
		}
	}
	providerCfg, ok := file.Providers[providerID]
	if !ok {
		return fmt.Errorf("relay: no provider named %q in %s", providerID, configPath)
	}
	prov, err := provider.New(providerCfg)
	if err != nil {
		return err
	}

	registry := system.NewRegistry()
	for id, serverCfg := range file.Servers {
		sys, err := connectMCPSystem(ctx, id, serverCfg, metrics, tracer)
		if err != nil {
			logger.Warn(ctx, "skipping mcp server", "id", id, "error", err)
			continue
		}
		if err := registry.AddSystem(sys); err != nil {
			return err
		}
	}

	loop := agentloop.New(prov, registry)
	loop.Metrics = metrics
	loop.Tracer = tracer

	reader := bufio.NewScanner(os.Stdin)
	var conversation models.Conversation
	fmt.Println("relay: type a message and press enter (Ctrl-D to exit)")
	for {
		fmt.Print("> ")
		if !reader.Scan() {
			return reader.Err()
		}
		line := reader.Text()
		if line == "" {
			continue
		}

		userMsg := models.NewUserMessage(time.Now()).WithText(line)
		conversation = append(conversation, userMsg)

		for msg, err := range loop.Reply(ctx, conversation) {
			if err != nil {
				logger.Error(ctx, "reply loop failed", "error", err)
				break
			}
			conversation = append(conversation, msg)
			if msg.Role == models.RoleAssistant {
				if text := msg.Text(); text != "" {
					fmt.Println(text)
				}
				for _, req := range msg.ToolRequests() {
					if req.OK() {
						fmt.Printf("[tool call] %s\n", req.Call.Name)
					}
				}
			}
		}
	}
}

func connectMCPSystem(ctx context.Context, id string, cfg mcpsession.ServerConfig, metrics *observability.Metrics, tracer *observability.Tracer) (*mcpsystem.System, error) {
	session, err := mcpsession.NewSession(ctx, cfg, nil)
	if err != nil {
		return nil, err
	}
	session.Metrics = metrics
	session.Tracer = tracer
	if metrics != nil {
		metrics.ActiveSessions.Inc()
	}
	if _, err := session.Initialize(ctx, mcpsession.ClientInfo{Name: "relay", Version: "0.1.0"}); err != nil {
		return nil, err
	}

	sys := mcpsystem.New(id, fmt.Sprintf("Tools provided by the %q MCP server.", id), session)
	if err := sys.Refresh(ctx); err != nil {
		return nil, err
	}
	return sys, nil
}
