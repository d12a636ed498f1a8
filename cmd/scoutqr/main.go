// Command scoutqr decodes, stores and consolidates FRC scouting QR codes.
package main

import (
	"fmt"
	"os"

	"github.com/frc-scouting/scoutqr/internal/cli"
)

func main() {
	if err := cli.Execute(os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "scoutqr: %v\n", err)
		os.Exit(1)
	}
}
