package main

import (
	"os"

	"github.com/kortexhq/kortex/cmd/kortex"
)

func main() {
	if err := kortex.Execute(); err != nil {
		os.Exit(1)
	}
}
