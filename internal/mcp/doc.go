// Package mcp provides the Model Context Protocol (MCP) server for ngscope using mcp-go.
//
// The server exposes read-only tools that let an AI assistant explore one
// Angular project: text search, file reading, structure extraction and the
// component usage graph. The project root is frozen when the server starts.
//
// # Implementation
//
// The package uses the mcp-go library (github.com/mark3labs/mcp-go). Each tool
// is a small struct with a Definition method returning its schema and a Handle
// method registered with the underlying mcp-go server.
//
// # Tools
//
//   - search_code: literal, case-insensitive search capped at the configured limit
//   - read_file: file content, plus frontmatter for markdown files
//   - analyze_component_usage: component usage graph, grouped or flat
//   - extract_file_structure: imports, exports, methods and dependencies of one file
//   - list_components: declared components by category
//   - list_services: injectable services
//
// # Security
//
// Every path a client sends goes through the scope package:
//   - Paths are resolved against the project root and may not leave it
//   - Symlinks that resolve outside the root are rejected
//   - Only configured file extensions are read
//   - Files over the configured size limit are refused
//
// Guard failures are returned as tool errors, not protocol errors, so the
// assistant sees the reason.
//
// # Usage
//
// The MCP server is typically started as a subprocess by AI assistants that support
// MCP integration. It can also be started manually for testing:
//
//	ngscope serve --root ./my-app
//
// The server will read JSON-RPC requests from stdin and write responses to stdout
// until it receives EOF or is terminated. Logs go to stderr.
//
// # References
//
// - MCP Specification: https://modelcontextprotocol.io/specification
// - mcp-go Library: https://github.com/mark3labs/mcp-go
package mcp
