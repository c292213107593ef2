package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/nikhilsharma-dev/mcp-bugzilla/internal/application"
	"github.com/nikhilsharma-dev/mcp-bugzilla/internal/domain"
	"github.com/nikhilsharma-dev/mcp-bugzilla/internal/infrastructure"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Load configuration. The file is optional: environment variables
	// (BUGZILLA_API_URL, BUGZILLA_API_KEY) can supply everything.
	config, err := domain.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.String("path", *configPath), zap.Error(err))
	}
	logger.Info("configuration loaded",
		zap.String("base_url", config.Bugzilla.BaseURL),
		zap.String("transport", config.Transport.Type))

	// Credential is forwarded on every outbound request as an api_key
	// query parameter.
	credential := domain.NewCredential(config.Bugzilla.APIKey)
	httpClient := domain.NewAPIKeyClient(credential, config.Bugzilla.TimeoutSeconds, config.Bugzilla.InsecureSkipVerify)

	// Create the Bugzilla REST client and its tool handler
	client := infrastructure.NewBugzillaClient(config.Bugzilla.BaseURL, httpClient, logger)
	mapper := domain.NewResponseMapper()
	handler := application.NewBugzillaHandler(client, mapper)
	logger.Info("bugzilla handler registered", zap.Int("tools", len(handler.ListTools())))

	// Create request router with the handler's tool catalog
	router := application.NewRequestRouter(handler)

	// Create transport based on configuration
	var transport domain.Transport
	switch config.Transport.Type {
	case "stdio":
		logger.Info("initializing stdio transport")
		transport = domain.NewStdioTransport()
	case "http":
		logger.Info("initializing HTTP transport",
			zap.String("host", config.Transport.HTTP.Host),
			zap.Int("port", config.Transport.HTTP.Port))
		transport = domain.NewHTTPTransport(config.Transport.HTTP.Host, config.Transport.HTTP.Port, logger)
	default:
		logger.Fatal("invalid transport type", zap.String("type", config.Transport.Type))
	}

	// Create server with all dependencies
	server := application.NewServer(transport, router, config, logger)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	// Start server in a goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil {
			errChan <- fmt.Errorf("server failed to start: %w", err)
		}
	}()

	logger.Info("bugzilla MCP server started", zap.String("transport", config.Transport.Type))

	// Wait for shutdown signal or error
	select {
	case sig := <-sigChan:
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	case err := <-errChan:
		logger.Error("server error", zap.Error(err))
		cancel()
		if err := server.Close(); err != nil {
			logger.Error("error closing server", zap.Error(err))
		}
		os.Exit(1)
	}

	if err := server.Close(); err != nil {
		logger.Error("error during server shutdown", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("server shutdown complete")
}
