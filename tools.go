//go:build tools

package tools

// Tool dependencies tracked so `go mod tidy` keeps them pinned.
// Run `go generate ./...` to regenerate mocks.
import (
	_ "github.com/vektra/mockery/v2"
)
