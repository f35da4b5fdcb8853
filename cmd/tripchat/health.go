package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the server is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := newClient().Health(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println(successStyle.Render("✅ "+serverURL), infoStyle.Render("status: "+status))
		return nil
	},
}

var newSessionCmd = &cobra.Command{
	Use:   "new-session",
	Short: "Create a session and print its id",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := newClient().NewSession(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(newSessionCmd)
}
