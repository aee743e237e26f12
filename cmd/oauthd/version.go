package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is set via -ldflags "-X main.version=..." at release build time.
var version = "dev"

func commandVersion() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the oauthd version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("oauthd version %s\n", version)
		},
	}
}
