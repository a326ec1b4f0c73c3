package main

import (
	"fmt"
	"os"

	"longessay_backend/internals/cli"
	"longessay_backend/internals/configs"
)

func main() {
	configs.LoadEnv()
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
