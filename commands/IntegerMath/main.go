//go:build wasip1

// IntegerMath is a sample node plugin. Build it as a WASI reactor:
//
//	GOOS=wasip1 GOARCH=wasm go build -buildmode=c-shared -o plugins/IntegerMath.wasm ./commands/IntegerMath
package main

import "github.com/andrei-cloud/go_nodehost/pkg/nodeplugin"

//go:wasmexport Alloc
func Alloc(size uint32) uint32 {
	return nodeplugin.Alloc(size)
}

//go:wasmexport InputTypes
func InputTypes() uint64 {
	return nodeplugin.Export(nodeplugin.NewSchema().
		Required("a", "INT", map[string]any{"default": 0}).
		Required("b", "INT", map[string]any{"default": 0}).
		Required("operation", "COMBO", map[string]any{"options": []string{"add", "sub", "mul"}}))
}

//go:wasmexport ReturnTypes
func ReturnTypes() uint64 {
	return nodeplugin.Export([]string{"INT"})
}

//go:wasmexport ReturnNames
func ReturnNames() uint64 {
	return nodeplugin.Export([]string{"result"})
}

//go:wasmexport DisplayName
func DisplayName() uint64 {
	return nodeplugin.Export("Integer Math")
}

//go:wasmexport Category
func Category() uint64 {
	return nodeplugin.Export("math/integer")
}

//go:wasmexport Description
func Description() uint64 {
	return nodeplugin.Export("Applies an arithmetic operation to two integers.")
}

func main() {}
