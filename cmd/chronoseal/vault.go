package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	chronoseal "github.com/chronoseal/capsule-go"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the vault, keys and capsules, to a backup file",
	Long: `Exports the key pair and every capsule as JSON. The file contains
secret key material; treat it like the keys themselves.`,
	RunE: runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Rebuild an empty vault from a backup file",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "chronoseal-export.json", "Output file")
}

func runExport(cmd *cobra.Command, args []string) error {
	vault, err := openVault()
	if err != nil {
		return err
	}
	defer vault.Close()

	exported, err := vault.Export()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(exported, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(exportOut, data, 0o600); err != nil {
		return err
	}

	fmt.Printf("Exported %d capsule(s) to %s.\n", len(exported.Capsules), exportOut)
	fmt.Println("The file contains secret keys; store it somewhere safe.")
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	var data chronoseal.ExportedVault
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("%s does not parse as a vault export: %w", args[0], err)
	}

	vault, err := openVault()
	if err != nil {
		return err
	}
	defer vault.Close()

	if err := vault.Import(&data); err != nil {
		return err
	}

	fmt.Printf("Imported %d capsule(s) into %s.\n", len(data.Capsules), vault.Dir())
	return nil
}
