// Package main is the entry point for the ngscope CLI application.
//
// Without arguments ngscope prints help. The usual entry for AI assistants is
// "ngscope serve", which runs the MCP server over stdin/stdout; the other
// commands run one query against the project and print markdown.
package main

import (
	"os"

	"ngscope/internal/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(cli.Execute(version, os.Args[1:], os.Stdout, os.Stderr))
}
