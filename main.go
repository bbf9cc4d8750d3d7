package main

import (
	"fmt"
	"os"

	"github.com/mgh3326/rent-radar/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
