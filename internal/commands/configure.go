package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sigquery/sigquery/internal/secrets"
)

var configureWithToken bool

func newConfigureCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "configure [profile]",
		Short: "Store credentials for a profile",
		Long: `Store credentials for a profile in the system keychain.

The access key ID is read from the terminal; the secret access key is
read with input hidden. Stored credentials are picked up automatically
when the profile omits them from the config file.

Examples:
  sigquery configure
  sigquery configure prod
  sigquery configure prod --with-token`,
		Args: cobra.MaximumNArgs(1),
		RunE: runConfigure,
	}

	cmd.Flags().BoolVar(&configureWithToken, "with-token", false, "Also prompt for a security token")

	return cmd
}

func runConfigure(cmd *cobra.Command, args []string) error {
	profile := flagProfile
	if len(args) == 1 {
		profile = args[0]
	}
	if profile == "" {
		profile = "default"
	}

	accessKey, err := promptLine("Access Key ID: ")
	if err != nil {
		return err
	}
	if accessKey == "" {
		return fmt.Errorf("access key ID cannot be empty")
	}

	secretKey, err := promptHidden("Secret Access Key (hidden): ")
	if err != nil {
		return err
	}
	if secretKey == "" {
		return fmt.Errorf("secret access key cannot be empty")
	}

	var token string
	if configureWithToken {
		token, err = promptHidden("Security Token (hidden): ")
		if err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	resolver := secrets.DefaultResolver()
	if err := resolver.Set(ctx, secrets.ProfileKey(profile, "access_key_id"), accessKey); err != nil {
		return err
	}
	if err := resolver.Set(ctx, secrets.ProfileKey(profile, "secret_access_key"), secretKey); err != nil {
		return err
	}
	if token != "" {
		if err := resolver.Set(ctx, secrets.ProfileKey(profile, "security_token"), token); err != nil {
			return err
		}
	}

	cmd.Printf("Credentials stored for profile %q\n", profile)
	return nil
}

// promptLine reads one visible line from stdin.
func promptLine(prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// promptHidden reads a value with terminal echo disabled.
func promptHidden(prompt string) (string, error) {
	fmt.Print(prompt)
	value, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(value)), nil
}
