package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "planora",
	Short: "Planora — event planning backend",
	Long:  "Planora is the backend for a collaborative event-planning workspace: events, team members, tasks, vendors, expenses, and documents, served over a cached and retry-hardened Postgres data layer.",
}

func init() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: configs/planora.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
