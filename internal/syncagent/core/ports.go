package core

import "context"

// Exporter produces the binary GLB artifact of the open project.
// Synchronous and asynchronous exporters both return a Future.
type Exporter interface {
	ExportBinary(ctx context.Context) *Future
}

// ExporterFunc adapts a function to Exporter.
type ExporterFunc func(ctx context.Context) *Future

func (f ExporterFunc) ExportBinary(ctx context.Context) *Future { return f(ctx) }

// Project is the editing context the model comes from.
type Project interface {
	// Open reports whether a project is currently open.
	Open() bool

	// Name is the display name of the project, possibly empty.
	Name() string
}

// TokenStore persists the engine authentication token across restarts.
type TokenStore interface {
	// Get returns the stored token and whether one exists.
	Get() (string, bool, error)

	// Set replaces the stored token.
	Set(token string) error
}
