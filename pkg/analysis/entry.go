// Package analysis computes entry points, reachability, reference cycles and
// dependency depth over a graph.Graph. Every function is pure: it reads the
// graph and returns a new value.
package analysis

import (
	"path"
	"strings"

	"github.com/l3aro/nixdead/pkg/graph"
)

// BootstrapNames are the root-level files the Nix tooling evaluates first.
var BootstrapNames = []string{"flake.nix", "default.nix"}

// BootstrapFile is the file name evaluated when a directory is imported.
const BootstrapFile = "default.nix"

const (
	// HostsDir holds one directory per target machine.
	HostsDir = "hosts/"
	// AppsDir holds flake apps, which are evaluated directly.
	AppsDir = "apps/"
)

// appsExcludedPrefixes are segment prefixes below AppsDir that hold build
// and apply helpers rather than evaluated apps.
var appsExcludedPrefixes = []string{"build", "apply"}

// EntryPoints returns the nodes treated as roots of the reference graph:
//   - the bootstrap files at the repository root;
//   - every default.nix under hosts/;
//   - every file under apps/ unless a segment below apps/ starts with
//     "build" or "apply".
func EntryPoints(g *graph.Graph) graph.Set {
	entries := graph.NewSet()

	for _, name := range BootstrapNames {
		if g.Has(name) {
			entries.Add(name)
		}
	}

	for _, id := range g.Nodes() {
		if strings.HasPrefix(id, HostsDir) && path.Base(id) == BootstrapFile {
			entries.Add(id)
		}
		if strings.HasPrefix(id, AppsDir) && !appsHelper(id) {
			entries.Add(id)
		}
	}

	return entries
}

func appsHelper(id string) bool {
	for _, seg := range strings.Split(strings.TrimPrefix(id, AppsDir), "/") {
		for _, prefix := range appsExcludedPrefixes {
			if strings.HasPrefix(seg, prefix) {
				return true
			}
		}
	}
	return false
}
