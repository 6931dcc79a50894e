// The main package for the site-insight executable.
package main

import (
	"github.com/JakeFAU/site-insight/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
