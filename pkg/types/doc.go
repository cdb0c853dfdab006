// Package types defines the board, list, and card entities, the drag result
// payload, the Store interface every persistence adapter implements, and the
// standard error values shared by the engine and its adapters.
package types
