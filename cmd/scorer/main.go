package main

import (
	"fmt"
	"os"

	"github.com/rawblock/splitscore/internal/contract"
	"github.com/rawblock/splitscore/internal/logging"
)

// Exit status 2 marks a contract violation, 1 any other failure.
func main() {
	err := Execute()
	logging.Sync()
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	if contract.IsViolation(err) {
		os.Exit(2)
	}
	os.Exit(1)
}
