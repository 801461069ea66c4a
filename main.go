package main

import (
	"os"

	"github.com/slidesage/slidesage/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
