package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JithendraNara/mission-control/internal/cli"
)

var rootCmd = &cobra.Command{Use: "mission-control"}

func main() {
	// .env is optional; environment variables still apply without one.
	_ = godotenv.Load()
	rootCmd.PersistentFlags().String("db", os.Getenv("DATABASE_URL"), "Database connection string")
	cli.SetupCLI(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
