// Entrypoint for the Cobra CLI; it delegates straight to the root
// command.
package main

import (
	"github.com/scriner2110/decobrain/cmd/decobrain/cmd"
)

func main() {
	cmd.Execute()
}
