package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "facedb",
	Short: "A CLI tool for building a face identity database from photo folders",
	Long: `FaceDB scans folders of photos, detects faces through an embedding
service, and assigns each face a stable identity label. Faces that look
alike across images share a label; new faces get a fresh one. The
resulting identity catalog persists across runs.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
