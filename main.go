// Package main is the entry point for the batadv protocol decoder.
package main

import (
	"fmt"
	"os"

	"firestige.xyz/batadv/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
