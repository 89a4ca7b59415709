// Command chronoseal manages a quantum-safe time capsule vault from the
// terminal.
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	chronoseal "github.com/chronoseal/capsule-go"
)

var (
	vaultDir   string
	useSQLite  bool
	passphrase string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "chronoseal",
	Short: "Quantum-safe digital time capsules",
	Long: `chronoseal seals messages into time capsules protected by ML-KEM-768,
ML-DSA-65 and AES-256-GCM. Each capsule carries an unlock date; decryption
is refused until that day arrives (UTC). The time-lock is advisory: it is
enforced by this software against the local clock, not by cryptography.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&vaultDir, "dir", "d", defaultVaultDir(), "Vault directory")
	rootCmd.PersistentFlags().BoolVar(&useSQLite, "sqlite", false, "Store capsules in SQLite instead of flat files")
	rootCmd.PersistentFlags().StringVar(&passphrase, "passphrase", "", "Passphrase protecting the key files (also CHRONOSEAL_PASSPHRASE)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	viper.SetEnvPrefix("CHRONOSEAL")
	viper.AutomaticEnv()

	// Bind flags to viper so environment variables can stand in for them.
	if err := viper.BindPFlag("dir", rootCmd.PersistentFlags().Lookup("dir")); err != nil {
		log.Printf("Failed to bind dir flag: %v", err)
	}
	if err := viper.BindPFlag("sqlite", rootCmd.PersistentFlags().Lookup("sqlite")); err != nil {
		log.Printf("Failed to bind sqlite flag: %v", err)
	}
	if err := viper.BindPFlag("passphrase", rootCmd.PersistentFlags().Lookup("passphrase")); err != nil {
		log.Printf("Failed to bind passphrase flag: %v", err)
	}

	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(decryptCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(serveCmd)
}

func defaultVaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".chronoseal"
	}
	return filepath.Join(home, ".chronoseal")
}

// openVault applies the persistent flags and opens the vault.
func openVault() (*chronoseal.Vault, error) {
	opts := []chronoseal.Option{}

	if viper.GetBool("sqlite") {
		opts = append(opts, chronoseal.WithSQLiteStore())
	}
	if p := viper.GetString("passphrase"); p != "" {
		opts = append(opts, chronoseal.WithPassphrase(p))
	}
	if verbose {
		logger := logrus.New()
		logger.SetLevel(logrus.DebugLevel)
		opts = append(opts, chronoseal.WithLogger(logger))
	}

	return chronoseal.Open(viper.GetString("dir"), opts...)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
