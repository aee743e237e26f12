// Command oauthd runs an OAuth 2.0 authorization server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func commandRoot() *cobra.Command {
	root := &cobra.Command{
		Use:   "oauthd",
		Short: "oauthd is an OAuth 2.0 / 2.1 authorization server",
	}
	root.AddCommand(commandServe())
	root.AddCommand(commandVersion())
	return root
}

func main() {
	if err := commandRoot().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
