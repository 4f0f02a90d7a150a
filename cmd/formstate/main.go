// Command formstate fills forms described by definition files or OpenAPI
// request bodies from the terminal and prints the submitted values.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(newDeps()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}
}
