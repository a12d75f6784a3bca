// Command fairctl computes fairness measures over a dataset file without
// running the service.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
