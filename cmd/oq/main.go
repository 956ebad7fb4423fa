package main

import (
	"os"

	"github.com/bnema/outreach-quota/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
