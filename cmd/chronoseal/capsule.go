package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	chronoseal "github.com/chronoseal/capsule-go"
)

var (
	createMessage string
	createUnlock  string
)

var createCmd = &cobra.Command{
	Use:     "create",
	Short:   "Seal a message into a new capsule",
	Example: `  chronoseal create -m "Hello, future world!" -u 2035-01-01`,
	RunE:    runCreate,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all capsules with their lock status",
	RunE:  runList,
}

var decryptCmd = &cobra.Command{
	Use:   "decrypt <number>",
	Short: "Decrypt an unlockable capsule",
	Args:  cobra.ExactArgs(1),
	RunE:  runDecrypt,
}

var verifyCmd = &cobra.Command{
	Use:   "verify <number>",
	Short: "Check a capsule's authenticity without decrypting it",
	Args:  cobra.ExactArgs(1),
	RunE:  runVerify,
}

func init() {
	createCmd.Flags().StringVarP(&createMessage, "message", "m", "", "Message to seal (required)")
	createCmd.Flags().StringVarP(&createUnlock, "unlock", "u", "", "Unlock date, YYYY-MM-DD (required)")
	_ = createCmd.MarkFlagRequired("message")
	_ = createCmd.MarkFlagRequired("unlock")
}

func runCreate(cmd *cobra.Command, args []string) error {
	vault, err := openVault()
	if err != nil {
		return err
	}
	defer vault.Close()

	summary, err := vault.CreateCapsule(createMessage, createUnlock)
	if err != nil {
		return err
	}

	fmt.Printf("Capsule %d sealed until %s.\n", summary.Index+1, summary.UnlockDate)
	if summary.Status == chronoseal.StatusUnlockable {
		fmt.Println("The unlock date has already passed; it can be opened right away.")
	}
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	vault, err := openVault()
	if err != nil {
		return err
	}
	defer vault.Close()

	summaries, err := vault.ListCapsules()
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Println("No capsules yet.")
		return nil
	}

	fmt.Printf("%4s  %-20s  %-12s  %s\n", "#", "CREATED", "UNLOCKS", "STATUS")
	for _, s := range summaries {
		fmt.Printf("%4d  %-20s  %-12s  %s\n", s.Index+1, s.CreatedAt, s.UnlockDate, s.Status)
	}
	return nil
}

func runDecrypt(cmd *cobra.Command, args []string) error {
	index, err := capsuleNumber(args[0])
	if err != nil {
		return err
	}

	vault, err := openVault()
	if err != nil {
		return err
	}
	defer vault.Close()

	result, err := vault.DecryptCapsule(index)
	if err != nil {
		var locked *chronoseal.TimeLockedError
		if errors.As(err, &locked) {
			return fmt.Errorf("capsule %s is sealed until %s", args[0], locked.UnlockDate)
		}
		return err
	}

	fmt.Printf("Sealed %s, unlocked %s:\n\n", result.CreatedAt, result.UnlockDate)
	fmt.Println(result.Plaintext)
	return nil
}

func runVerify(cmd *cobra.Command, args []string) error {
	index, err := capsuleNumber(args[0])
	if err != nil {
		return err
	}

	vault, err := openVault()
	if err != nil {
		return err
	}
	defer vault.Close()

	result, err := vault.VerifyCapsule(index)
	if err != nil {
		return err
	}

	if !result.Verified {
		return fmt.Errorf("capsule %s FAILED verification: %s", args[0], result.Reason)
	}
	fmt.Printf("Capsule %s verified: sealed %s, unlocks %s.\n", args[0], result.CreatedAt, result.UnlockDate)
	return nil
}

// capsuleNumber converts the 1-based number shown by list into the vault's
// 0-based index.
func capsuleNumber(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("capsule number must be a positive integer, got %q", arg)
	}
	return n - 1, nil
}
