package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	pkgconfig "github.com/weiawesome/wes-collab/pkg/config"
	pkglog "github.com/weiawesome/wes-collab/pkg/log"
)

// Flag names shared between commands. Values are read through viper, so
// each can also be set as COLLAB_<NAME> in the environment.
const (
	serverFlag   = "server"
	apiFlag      = "api"
	tokenFlag    = "token"
	logLevelFlag = "log-level"

	projectFlag     = "project"
	maxAttemptsFlag = "max-attempts"
	backoffFlag     = "backoff"
	maxBackoffFlag  = "max-backoff"
	quietFlag       = "typing-quiet"

	secretFlag   = "secret"
	issuerFlag   = "issuer"
	userFlag     = "user"
	emailFlag    = "email"
	usernameFlag = "username"
	ttlFlag      = "ttl"
)

var rootCmd = &cobra.Command{
	Use:           "collab-client",
	Short:         "Terminal client for the collaboration chat server",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		pkglog.Init(pkglog.Config{
			Level:  viper.GetString(logLevelFlag),
			Pretty: true,
			Output: os.Stderr,
		})
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	_ = pkgconfig.LoadDotEnv()

	viper.SetEnvPrefix("COLLAB")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.PersistentFlags().String(serverFlag, "ws://localhost:8090/chat/ws",
		"Socket gateway URL")
	viper.BindPFlag(serverFlag, rootCmd.PersistentFlags().Lookup(serverFlag))

	rootCmd.PersistentFlags().String(apiFlag, "http://localhost:8091",
		"REST API root, used for history")
	viper.BindPFlag(apiFlag, rootCmd.PersistentFlags().Lookup(apiFlag))

	rootCmd.PersistentFlags().StringP(tokenFlag, "t", "", "Access token")
	viper.BindPFlag(tokenFlag, rootCmd.PersistentFlags().Lookup(tokenFlag))

	rootCmd.PersistentFlags().StringP(logLevelFlag, "v", "warn", "Log level")
	viper.BindPFlag(logLevelFlag, rootCmd.PersistentFlags().Lookup(logLevelFlag))

	rootCmd.AddCommand(chatCmd, tokenCmd, historyCmd)
}
