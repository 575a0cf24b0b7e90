package main

import "github.com/spf13/cobra"

var regionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "Manage boundary files",
	Long:  "Download and inspect Census cartographic boundary archives.",
}

func init() { rootCmd.AddCommand(regionsCmd) }
