// Package main implements the nixdead CLI.
// It analyzes the reference graph of a Nix repository, reports unreferenced
// modules and plans their removal.
package main

import (
	"os"

	"github.com/l3aro/nixdead/cmd/nixdead/commands"
)

var version = "dev"

func main() {
	commands.RootCmd.Version = version
	commands.RootCmd.SetVersionTemplate(`nixdead version {{.Version}}
`)

	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
