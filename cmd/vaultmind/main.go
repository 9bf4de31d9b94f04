// Command vaultmind streams synthetic transactions into a CSV ledger,
// evaluates spending alerts over it and serves the dashboard API.
package main

import (
	"fmt"
	"os"
	_ "time/tzdata"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
