package main

import (
	"fmt"
	"os"

	"github.com/gauss-project/powerpay/cmd/powerpay/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
