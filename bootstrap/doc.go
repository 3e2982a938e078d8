// Package bootstrap wires the Argus detection engine together: configuration,
// logging, rule persistence, the in-memory stores, and the engine itself. CLI
// commands construct an App and drive the engine through it.
package bootstrap
