//go:build tools
// +build tools

// Package tools keeps code generators (mockgen) pinned in go.mod.
package photochat

import (
	_ "go.uber.org/mock/mockgen"
)
