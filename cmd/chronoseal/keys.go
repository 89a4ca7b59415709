package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage the vault key pair",
}

var keysGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a fresh key pair and recovery phrase",
	Long: `Generates new ML-KEM-768 and ML-DSA-65 key pairs derived from a fresh
24-word recovery phrase. The phrase is printed once and never stored;
anyone holding it can rebuild the keys, and without it lost key files
mean permanently lost capsules.

Generating over an existing key pair strands every capsule sealed under
the old keys; pass --force to do it anyway.`,
	RunE: runKeysGenerate,
}

var keysRestoreCmd = &cobra.Command{
	Use:   "restore <word> <word> ...",
	Short: "Rebuild the key pair from a recovery phrase",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runKeysRestore,
}

var keysShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the key fingerprint",
	RunE:  runKeysShow,
}

var forceGenerate bool

func init() {
	keysGenerateCmd.Flags().BoolVar(&forceGenerate, "force", false, "Replace an existing key pair")

	keysCmd.AddCommand(keysGenerateCmd)
	keysCmd.AddCommand(keysRestoreCmd)
	keysCmd.AddCommand(keysShowCmd)
}

func runKeysGenerate(cmd *cobra.Command, args []string) error {
	vault, err := openVault()
	if err != nil {
		return err
	}
	defer vault.Close()

	if vault.HasKeys() && !forceGenerate {
		return fmt.Errorf("vault already has keys; rerun with --force to replace them (capsules sealed under the old keys become undecryptable)")
	}

	info, err := vault.GenerateKeys()
	if err != nil {
		return err
	}

	fmt.Println("Key pair generated.")
	fmt.Println("Fingerprint:", info.Fingerprint)
	fmt.Println()
	fmt.Println("Recovery phrase (shown once, write it down):")
	fmt.Println()
	printPhrase(info.RecoveryPhrase)
	return nil
}

func runKeysRestore(cmd *cobra.Command, args []string) error {
	vault, err := openVault()
	if err != nil {
		return err
	}
	defer vault.Close()

	info, err := vault.RestoreKeys(strings.Join(args, " "))
	if err != nil {
		return err
	}

	fmt.Println("Key pair restored.")
	fmt.Println("Fingerprint:", info.Fingerprint)
	return nil
}

func runKeysShow(cmd *cobra.Command, args []string) error {
	vault, err := openVault()
	if err != nil {
		return err
	}
	defer vault.Close()

	info, err := vault.Keys()
	if err != nil {
		return err
	}

	fmt.Println("Fingerprint:", info.Fingerprint)
	return nil
}

// printPhrase lays the 24 words out in numbered columns for transcription.
func printPhrase(phrase string) {
	words := strings.Fields(phrase)
	for i := 0; i < len(words); i += 4 {
		end := i + 4
		if end > len(words) {
			end = len(words)
		}
		for j := i; j < end; j++ {
			fmt.Printf("%2d. %-12s", j+1, words[j])
		}
		fmt.Println()
	}
}
