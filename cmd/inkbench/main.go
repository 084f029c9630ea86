package main

import (
	"os"

	"github.com/gogpu/ink/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
