// The main package for the papercrawler executable.
package main

import (
	"github.com/statstream/papercrawler/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
