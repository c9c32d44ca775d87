package main

import (
	"os"

	"github.com/NeelM47/video-to-book/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
