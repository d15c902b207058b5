//go:build (js && wasm) || wasip1

package evaluator

// init lowers the default call depth on WebAssembly targets. Every nested
// call keeps a chain of iterators on the goroutine stack, and the linear
// memory of a wasm module is much smaller than a native process.
func init() {
	defaultMaxDepth = 10000
}
