// Package mcp exposes the engine as an MCP server so agent tooling can
// resolve plugins and inspect the region hierarchy over stdio or SSE.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/lunglab/parcellate"
	"github.com/lunglab/parcellate/pkg/domain"
	"github.com/lunglab/parcellate/pkg/hierarchy"
	"github.com/lunglab/parcellate/pkg/registry"
)

// ResolveResponse is the structured output of the resolve tool.
type ResolveResponse struct {
	Result    json.RawMessage   `json:"result" jsonschema_description:"The resolved result: opaque value, grid, or composite keyed by child region"`
	WasRun    bool              `json:"was_run" jsonschema_description:"Whether any plugin body actually executed"`
	CacheInfo *domain.CacheInfo `json:"cache_info,omitempty" jsonschema_description:"Provenance tree of the resolution"`
}

// Engine defines the interface required by the MCP server.
type Engine interface {
	Resolve(ctx context.Context, req parcellate.Request) (parcellate.Outcome, error)
	Hierarchy() *hierarchy.Registry
	Plugins() *registry.Registry
}

// Server wraps the engine and exposes it as an MCP server.
type Server struct {
	engine    Engine
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance.
func NewServer(engine Engine) *Server {
	s := &Server{
		engine:    engine,
		mcpServer: server.NewMCPServer("parcellate-mcp", parcellate.Version),
	}
	s.registerTools()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	// TOOL: resolve
	resolveTool := mcp.NewTool("resolve",
		mcp.WithDescription("Resolve a plugin for a region or region set, recursively reducing or compositing as needed."),
		mcp.WithString("plugin", mcp.Required(), mcp.Description("Registered plugin name")),
		mcp.WithString("target", mcp.Description("Region or region set identifier (default: the hierarchy's default region)")),
		mcp.WithString("dataset", mcp.Required(), mcp.Description("Dataset identifier")),
		mcp.WithString("args", mcp.Description("JSON object of plugin arguments (optional)")),
		mcp.WithBoolean("allow_caching", mcp.Description("Allow memoized results (default true)")),
		mcp.WithOutputSchema[ResolveResponse](),
	)
	s.mcpServer.AddTool(resolveTool, mcp.NewStructuredToolHandler(s.handleResolve))

	// TOOL: list_plugins
	s.mcpServer.AddTool(mcp.NewTool("list_plugins",
		mcp.WithDescription("List the registered plugin names."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jsonBytes, _ := json.Marshal(s.engine.Plugins().Names())
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})

	// TOOL: list_regions
	s.mcpServer.AddTool(mcp.NewTool("list_regions",
		mcp.WithDescription("List the region hierarchy: every region with its set, parent, and children."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		type regionInfo struct {
			ID       string   `json:"id"`
			Set      string   `json:"set"`
			Parent   string   `json:"parent,omitempty"`
			Children []string `json:"children,omitempty"`
		}
		var out []regionInfo
		for _, region := range s.engine.Hierarchy().Regions() {
			info := regionInfo{ID: region.ID(), Set: region.Set().ID()}
			if p := region.Parent(); p != nil {
				info.Parent = p.ID()
			}
			for _, c := range region.Children() {
				info.Children = append(info.Children, c.ID())
			}
			out = append(out, info)
		}
		jsonBytes, _ := json.Marshal(out)
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

func (s *Server) handleResolve(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ResolveResponse, error) {
	plugin, _ := args["plugin"].(string)
	target, _ := args["target"].(string)
	dataset, _ := args["dataset"].(string)

	pluginArgs := map[string]any{}
	if argStr, ok := args["args"].(string); ok && argStr != "" {
		if err := json.Unmarshal([]byte(argStr), &pluginArgs); err != nil {
			return ResolveResponse{}, fmt.Errorf("invalid args JSON: %w", err)
		}
	}

	allowCaching := true
	if v, ok := args["allow_caching"].(bool); ok {
		allowCaching = v
	}

	out, err := s.engine.Resolve(ctx, parcellate.Request{
		Plugin:       plugin,
		Target:       target,
		Dataset:      dataset,
		Args:         pluginArgs,
		AllowCaching: allowCaching,
		Chain:        []string{"mcp"},
	})
	if err != nil {
		return ResolveResponse{}, fmt.Errorf("resolve failed: %w", err)
	}

	raw, err := domain.EncodeResult(out.Result)
	if err != nil {
		return ResolveResponse{}, fmt.Errorf("failed to encode result: %w", err)
	}

	return ResolveResponse{
		Result:    raw,
		WasRun:    out.WasRun,
		CacheInfo: out.CacheInfo,
	}, nil
}
