package utils

import "strings"

// placeholderStoreNames are shown by the client before /user has answered.
var placeholderStoreNames = map[string]bool{
	"":              true,
	"loading...":    true,
	"unknown store": true,
}

// NormalizeName trims surrounding whitespace from an operator-entered name.
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}

// IsPlaceholderStoreName reports whether name is empty or one of the placeholder labels.
func IsPlaceholderStoreName(name string) bool {
	return placeholderStoreNames[strings.ToLower(NormalizeName(name))]
}
