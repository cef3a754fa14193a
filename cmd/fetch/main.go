package main

import (
	"os"
)

func main() {
	if err := newRootCmd(newCLI(os.Stdout)).Execute(); err != nil {
		os.Exit(1)
	}
}
