package main

import (
	"os"

	"github.com/danmuck/farectl/cmd/farectl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
