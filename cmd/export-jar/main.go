// Package main is the entry point for the export-jar CLI.
//
// This binary packages a Java workspace into a runnable jar. It delegates
// all functionality to the internal/cli package, which defines cobra
// commands.
//
// Release builds set version, commit and date with -ldflags -X; plain
// go build leaves the defaults below.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/shinji-kodama/export-jar/internal/cli"
)

// Overridden with -ldflags "-X main.version=... -X main.commit=... -X main.date=...".
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	// Ctrl-C cancels the running export; stages and the jar tool stop and
	// the staging directory is removed.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.Execute(ctx, cli.NewRootCommand())
}
