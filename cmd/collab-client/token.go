package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/weiawesome/wes-collab/pkg/jwt"
)

// tokenCmd signs a development token with the shared HMAC secret.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an HS256 access token for local testing",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		user := viper.GetString(userFlag)
		if user == "" {
			return fmt.Errorf("--%s is required", userFlag)
		}

		manager, err := jwt.NewHMACManager([]byte(viper.GetString(secretFlag)),
			viper.GetString(issuerFlag), viper.GetDuration(ttlFlag))
		if err != nil {
			return err
		}

		username := viper.GetString(usernameFlag)
		if username == "" {
			username = user
		}
		token, exp, err := manager.IssueAccessToken(user, viper.GetString(emailFlag), username, nil)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), token)
		fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", exp.Format(time.RFC3339))
		return nil
	},
}

func init() {
	tokenCmd.Flags().String(secretFlag, "", "HMAC secret shared with the server (JWT_SECRET)")
	viper.BindPFlag(secretFlag, tokenCmd.Flags().Lookup(secretFlag))

	tokenCmd.Flags().String(issuerFlag, "", "Token issuer")
	viper.BindPFlag(issuerFlag, tokenCmd.Flags().Lookup(issuerFlag))

	tokenCmd.Flags().StringP(userFlag, "u", "", "User ID")
	viper.BindPFlag(userFlag, tokenCmd.Flags().Lookup(userFlag))

	tokenCmd.Flags().String(emailFlag, "", "Email claim")
	viper.BindPFlag(emailFlag, tokenCmd.Flags().Lookup(emailFlag))

	tokenCmd.Flags().String(usernameFlag, "", "Display name, defaults to the user ID")
	viper.BindPFlag(usernameFlag, tokenCmd.Flags().Lookup(usernameFlag))

	tokenCmd.Flags().Duration(ttlFlag, time.Hour, "Token lifetime")
	viper.BindPFlag(ttlFlag, tokenCmd.Flags().Lookup(ttlFlag))
}
