// Package config loads weft grid files: HCL documents declaring the named
// tasks of a run, the dependency edges between them, and optionally which
// engine should drive them. The loader produces a format-agnostic Model;
// turning a Model into runnable tasks is the app layer's job.
package config
