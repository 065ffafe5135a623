package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra/doc"

	"github.com/histofy/histofy/cmd/histofy/commands"
	"github.com/histofy/histofy/internal/version"
)

func main() {
	rootCmd := commands.NewRootCmd()

	header := &doc.GenManHeader{
		Title:   "HISTOFY",
		Section: "1",
		Source:  "histofy " + version.Version,
		Manual:  "histofy manual",
	}

	err := doc.GenMan(rootCmd, header, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating man page: %v\n", err)
		os.Exit(1)
	}
}
