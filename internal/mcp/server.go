// Package mcp exposes the comment index to MCP clients over stdio.
package mcp

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/mvp-joe/comment-tree/internal/tree"
)

// ServerName is the name reported to MCP clients.
const ServerName = "comment-tree"

// Server serves the comment tree tools.
type Server struct {
	refresher Refresher
	model     *tree.Model
	searcher  CommentSearcher
	mcp       *server.MCPServer
}

// NewServer creates a server and registers every tool. The caller owns
// model and searcher and keeps them attached to the index.
func NewServer(version string, refresher Refresher, model *tree.Model, searcher CommentSearcher) (*Server, error) {
	if refresher == nil || model == nil || searcher == nil {
		return nil, fmt.Errorf("refresher, model and searcher are required")
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		version,
		server.WithToolCapabilities(true),
	)

	AddRefreshTool(mcpServer, refresher, model)
	AddStatsTool(mcpServer, model)
	AddFilesTool(mcpServer, model)
	AddCommentsTool(mcpServer, model)
	AddSearchTool(mcpServer, searcher)

	return &Server{
		refresher: refresher,
		model:     model,
		searcher:  searcher,
		mcp:       mcpServer,
	}, nil
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// Serve runs the server on stdio until a shutdown signal, a server error or
// ctx cancellation.
func (s *Server) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting MCP server on stdio...")
		if err := server.ServeStdio(s.mcp); err != nil {
			errCh <- fmt.Errorf("MCP server error: %w", err)
		}
	}()

	select {
	case <-sigCh:
		log.Printf("Received shutdown signal, stopping gracefully...")
		return nil
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
