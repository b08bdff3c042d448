// Package config provides configuration types and defaults for snowlapse.
package config

import "errors"

// Sentinel errors for configuration validation.
var (
	// ErrInvalidStep indicates a grid step outside the valid 1-1440 minute range.
	ErrInvalidStep = errors.New("grid step out of range")

	// ErrInvalidFPS indicates a zero frame rate.
	ErrInvalidFPS = errors.New("frame rate out of range")

	// ErrInvalidWindow indicates a zero-length capture window.
	ErrInvalidWindow = errors.New("capture window out of range")

	// ErrInvalidCoordinates indicates a latitude or longitude off the globe.
	ErrInvalidCoordinates = errors.New("coordinates out of range")

	// ErrInvalidTimezone indicates an unknown IANA timezone name.
	ErrInvalidTimezone = errors.New("unknown timezone")

	// ErrInvalidDayStart indicates a malformed HH:MM day start.
	ErrInvalidDayStart = errors.New("invalid day start")

	// ErrInvalidMode indicates an unknown build mode name.
	ErrInvalidMode = errors.New("invalid build mode")

	// ErrInvalidTimeout indicates a zero snapshot download timeout.
	ErrInvalidTimeout = errors.New("fetch timeout out of range")

	// ErrInvalidThreshold indicates a quality threshold outside its valid range.
	ErrInvalidThreshold = errors.New("quality threshold out of range")

	// ErrInvalidCameraRoute indicates a malformed camera route.
	ErrInvalidCameraRoute = errors.New("invalid camera route")

	// ErrInvalidWindowOverride indicates a malformed or inverted from/to pair.
	ErrInvalidWindowOverride = errors.New("invalid window override")

	// ErrInvalidEnv indicates a malformed environment override.
	ErrInvalidEnv = errors.New("invalid environment override")
)
