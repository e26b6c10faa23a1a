//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Search builds the CLI and runs a unified search across every provider.
func Search(query string) error {
	mg.Deps(Build)
	return sh.RunV(binPath, "search", "--sources", "all", query)
}

// Research builds the CLI and runs a deep-research session at the given
// depth (quick, standard, or comprehensive).
func Research(query, depth string) error {
	mg.Deps(Build)
	return sh.RunV(binPath, "research", "--depth", depth, query)
}

// Serve builds the CLI and starts the HTTP API.
func Serve() error {
	mg.Deps(Build)
	return sh.RunV(binPath, "serve")
}

// PruneCache deletes expired entries from the result cache.
func PruneCache() error {
	mg.Deps(Build)
	return sh.RunV(binPath, "cache", "prune")
}
