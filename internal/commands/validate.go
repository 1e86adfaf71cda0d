package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sigquery/sigquery/sign"
)

var validateRegion string

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the active credential chain",
		Long: `Validate the v4 credential chain by asking the security token
service who the credentials belong to, and print the caller identity.

The region comes from --region, or from the selected profile when the
flag is omitted.

Examples:
  sigquery validate --region us-east-1
  sigquery validate --profile prod`,
		RunE: runValidate,
	}

	cmd.Flags().StringVar(&validateRegion, "region", "", "Signing region for the validation call")

	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	region := validateRegion
	if region == "" {
		if _, profile, err := selectedProfile(); err == nil {
			region = profile.Region
		}
	}
	if region == "" {
		return fmt.Errorf("a region is required: pass --region or set one in the profile")
	}

	arn, err := sign.ValidateCredentials(cmd.Context(), region)
	if err != nil {
		return fmt.Errorf("credential validation failed: %w", err)
	}

	cmd.Printf("Credentials are valid: %s\n", arn)
	return nil
}
