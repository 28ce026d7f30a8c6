package plugins

import (
	"context"
	"errors"
	"fmt"

	"github.com/andrei-cloud/go_nodehost/pkg/nodeplugin"
	"github.com/tetratelabs/wazero/api"
)

// callExport invokes a no-argument export returning a packed ptr<<32|len result and
// reads the referenced bytes from guest memory.
func callExport(ctx context.Context, mod api.Module, fn api.Function) ([]byte, error) {
	results, err := fn.Call(ctx)
	if err != nil {
		return nil, fmt.Errorf("execution failed: %w", err)
	}
	if len(results) < 1 {
		return nil, errors.New("invalid execution result")
	}

	ptr, size := nodeplugin.UnpackResult(results[0])
	if ptr == 0 && size == 0 {
		return nil, errors.New("export returned no result")
	}

	return readMemory(mod, ptr, size)
}
