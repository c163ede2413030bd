// The main package for the advisorycrawler executable.
package main

import (
	"github.com/vulnfeed/advisory-crawler/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
