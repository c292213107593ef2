package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/nikhilsharma-dev/mcp-bugzilla/internal/domain"
)

// Server identification reported in the MCP initialize handshake.
const (
	serverName      = "bugzilla-mcp-server"
	serverVersion   = "1.0.0"
	protocolVersion = "2024-11-05"
)

// Server is the main MCP server implementation.
// It orchestrates the transport layer and request routing, and implements
// the MCP protocol methods (initialize, tools/list, tools/call).
type Server struct {
	transport domain.Transport
	router    *RequestRouter
	config    *domain.Config
	logger    *zap.Logger
}

// NewServer creates a new MCP server instance.
func NewServer(
	transport domain.Transport,
	router *RequestRouter,
	config *domain.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		transport: transport,
		router:    router,
		config:    config,
		logger:    logger,
	}
}

// Start begins the server operation.
// It starts the transport layer and begins processing incoming requests.
func (s *Server) Start(ctx context.Context) error {
	if err := s.transport.Start(ctx); err != nil {
		s.logger.Error("failed to start transport",
			zap.String("transport_type", s.config.Transport.Type),
			zap.Error(err))
		return fmt.Errorf("failed to start transport: %w", err)
	}

	s.logger.Info("server started",
		zap.String("transport_type", s.config.Transport.Type))

	go s.processRequests(ctx)

	return nil
}

// processRequests continuously processes incoming JSON-RPC requests.
// Each request is handled in its own goroutine: invocations are
// independent and share no mutable state, so they may run concurrently.
func (s *Server) processRequests(ctx context.Context) {
	reqChan := s.transport.Receive()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("server shutting down")
			return
		case req, ok := <-reqChan:
			if !ok {
				// Channel closed, transport is shutting down
				return
			}

			go s.handleRequest(ctx, req)
		}
	}
}

// handleRequest processes a single JSON-RPC request.
func (s *Server) handleRequest(ctx context.Context, req *domain.Request) {
	s.logger.Info("received request",
		zap.String("method", req.Method),
		zap.Any("request_id", req.ID))

	if err := s.validateRequest(req); err != nil {
		s.sendErrorResponse(req.ID, domain.InvalidRequest, "Invalid Request", err.Error())
		return
	}

	var response *domain.Response
	var err error

	switch req.Method {
	case "initialize":
		response, err = s.handleInitialize(req)
	case "tools/list":
		response, err = s.handleToolsList(req)
	case "tools/call":
		response, err = s.handleToolsCall(ctx, req)
	default:
		s.sendErrorResponse(req.ID, domain.MethodNotFound, "Method not found", fmt.Sprintf("unknown method: %s", req.Method))
		return
	}

	if err != nil {
		s.logger.Error("request processing failed",
			zap.String("method", req.Method),
			zap.Any("request_id", req.ID),
			zap.Error(err))
		// Error response already sent by handler
		return
	}

	if err := s.transport.Send(response); err != nil {
		s.logger.Error("failed to send response",
			zap.Any("request_id", req.ID),
			zap.Error(err))
	}
}

// validateRequest validates the basic structure of a JSON-RPC request.
func (s *Server) validateRequest(req *domain.Request) error {
	if req.JSONRPC != "2.0" {
		return fmt.Errorf("invalid jsonrpc version: %s", req.JSONRPC)
	}

	if req.Method == "" {
		return fmt.Errorf("method is required")
	}

	return nil
}

// handleInitialize handles the MCP initialize method.
// This is the initial handshake between client and server.
func (s *Server) handleInitialize(req *domain.Request) (*domain.Response, error) {
	result := map[string]interface{}{
		"protocolVersion": protocolVersion,
		"capabilities": map[string]interface{}{
			"tools": map[string]interface{}{},
		},
		"serverInfo": map[string]interface{}{
			"name":    serverName,
			"version": serverVersion,
		},
	}

	return &domain.Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  result,
	}, nil
}

// handleToolsList handles the MCP tools/list method.
// Returns the fixed Bugzilla tool catalog.
func (s *Server) handleToolsList(req *domain.Request) (*domain.Response, error) {
	tools := s.router.ListAllTools()

	result := map[string]interface{}{
		"tools": tools,
	}

	return &domain.Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  result,
	}, nil
}

// handleToolsCall handles the MCP tools/call method.
// Executes a tool call by routing it to the Bugzilla handler.
func (s *Server) handleToolsCall(ctx context.Context, req *domain.Request) (*domain.Response, error) {
	toolReq, err := s.parseToolRequest(req.Params)
	if err != nil {
		s.sendErrorResponse(req.ID, domain.InvalidParams, "Invalid params", err.Error())
		return nil, err
	}

	toolResp, err := s.router.Route(ctx, toolReq)
	if err != nil {
		s.logger.Error("tool execution failed",
			zap.String("tool", toolReq.Name),
			zap.Any("request_id", req.ID),
			zap.Error(err))

		s.sendMappedError(req.ID, err)
		return nil, err
	}

	return &domain.Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  toolResp,
	}, nil
}

// parseToolRequest parses the params field into a ToolRequest.
func (s *Server) parseToolRequest(params interface{}) (*domain.ToolRequest, error) {
	if params == nil {
		return nil, fmt.Errorf("params is required for tools/call")
	}

	// Convert params to JSON and back to ToolRequest.
	// This handles both map[string]interface{} and already-parsed structs.
	jsonData, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal params: %w", err)
	}

	var toolReq domain.ToolRequest
	if err := json.Unmarshal(jsonData, &toolReq); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tool request: %w", err)
	}

	if toolReq.Name == "" {
		return nil, fmt.Errorf("tool name is required")
	}

	if toolReq.Arguments == nil {
		toolReq.Arguments = make(map[string]interface{})
	}

	return &toolReq, nil
}

// sendErrorResponse sends a JSON-RPC error response.
func (s *Server) sendErrorResponse(id interface{}, code int, message string, data interface{}) {
	response := &domain.Response{
		JSONRPC: "2.0",
		ID:      id,
		Error: &domain.Error{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}

	if err := s.transport.Send(response); err != nil {
		s.logger.Error("failed to send error response",
			zap.Any("request_id", id),
			zap.Int("error_code", code),
			zap.String("error_message", message),
			zap.Error(err))
	}
}

// sendMappedError sends an error raised during tool execution.
// Handler and router errors are already domain errors; anything else
// collapses to an internal error.
func (s *Server) sendMappedError(id interface{}, err error) {
	var domainErr *domain.Error
	if errors.As(err, &domainErr) {
		s.sendErrorResponse(id, domainErr.Code, domainErr.Message, domainErr.Data)
		return
	}

	s.sendErrorResponse(id, domain.InternalError, "Internal error", err.Error())
}

// Close gracefully shuts down the server.
func (s *Server) Close() error {
	s.logger.Info("closing server")
	return s.transport.Close()
}
