// Package types contains the shared primitives used across the engine:
// structured errors with stable codes, the dynamic key/value container
// agents exchange data through, and lightweight JSON-Schema descriptors
// for declaring agent input and output shapes.
package types
