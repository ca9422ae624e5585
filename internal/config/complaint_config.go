package config

const (
	// Assignment
	DefaultTimeBoundaryDays = 7

	// Extension
	MinExtensionDays = 1
	MaxExtensionDays = 365

	// Closure
	MinClosingRemarksLength = 5
)
