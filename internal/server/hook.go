package server

import (
	"sync"

	"github.com/andrei-cloud/go_nodehost/internal/routes"
)

var (
	hookMu         sync.Mutex
	objectInfoHook func(routes.Table)
)

// SetObjectInfoHook sets the function a patched NewServer calls with its route table once
// the object_info routes are registered. A nil fn clears it.
func SetObjectInfoHook(fn func(routes.Table)) {
	hookMu.Lock()
	defer hookMu.Unlock()

	objectInfoHook = fn
}

// installObjectInfo is the call site inserted by `go_nodehost patch install`.
func installObjectInfo(table routes.Table) {
	hookMu.Lock()
	fn := objectInfoHook
	hookMu.Unlock()

	if fn != nil {
		fn(table)
	}
}
