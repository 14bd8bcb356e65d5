package domain

import "go.trai.ch/zerr"

var (
	// ErrTemplateSyntax marks a template whose import directives could not be parsed.
	// It is carried inside an Extraction and never returned to callers of the engine.
	ErrTemplateSyntax = zerr.New("template syntax error")

	// ErrImportNotFound is returned when an import directive names a file that cannot be located.
	ErrImportNotFound = zerr.New("file to import not found or unreadable")

	// ErrPathStatFailed is returned when stating an existing path fails.
	ErrPathStatFailed = zerr.New("failed to stat path")

	// ErrFileReadFailed is returned when a template cannot be read.
	ErrFileReadFailed = zerr.New("failed to read file")

	// ErrFailedToResolvePath is returned when a path cannot be made absolute.
	ErrFailedToResolvePath = zerr.New("failed to resolve absolute path")

	// ErrConfigNotFound is returned when no stale.yaml exists in the working directory or its parents.
	ErrConfigNotFound = zerr.New("could not find stale.yaml")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrInvalidTarget is returned when a configured target lacks a template or an output.
	ErrInvalidTarget = zerr.New("invalid target, expected both template and output")

	// ErrInvalidSyntax is returned when the configured syntax dialect is unknown.
	ErrInvalidSyntax = zerr.New("invalid syntax, expected 'scss' or 'indented'")

	// ErrNoTargetsSpecified is returned when there is nothing to check.
	ErrNoTargetsSpecified = zerr.New("no targets specified")

	// ErrCheckFailed is returned when a staleness check cannot be completed.
	ErrCheckFailed = zerr.New("staleness check failed")

	// ErrStaleTargets is returned by the check command in --exit-code mode when any output is stale.
	ErrStaleTargets = zerr.New("stale targets found")

	// ErrWatchFailed is returned when the project directory cannot be watched.
	ErrWatchFailed = zerr.New("failed to watch project directory")

	// ErrDependencyCycle describes an import cycle that was cut during a check.
	ErrDependencyCycle = zerr.New("import cycle detected")
)
