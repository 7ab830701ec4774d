package config

import (
	"fmt"
	"os"
)

// Exitf reports a fatal startup problem on stderr and exits with code 1.
// Entry points use it when configuration fails validation before any server
// is listening.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
