package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/weiawesome/wes-collab/internal/agent"
)

const pageFlag = "page"

var historyCmd = &cobra.Command{
	Use:   "history <project>",
	Short: "Print one page of a room's history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := agent.NewHistoryClient(viper.GetString(apiFlag), viper.GetString(tokenFlag), 10*time.Second)
		page, err := client.FetchHistory(cmd.Context(), args[0], viper.GetInt(pageFlag))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, m := range page.Messages {
			fmt.Fprintf(out, "[%s] %s <%s> %s\n", m.ID, m.CreatedAt.Local().Format(time.DateTime), m.SenderName, m.Text)
		}
		fmt.Fprintf(out, "page %d, %d messages total", page.Page, page.Total)
		if page.HasMore {
			fmt.Fprint(out, ", more with --page ", page.Page+1)
		}
		fmt.Fprintln(out)
		return nil
	},
}

func init() {
	historyCmd.Flags().Int(pageFlag, 1, "Page number, 1 is the newest")
	viper.BindPFlag(pageFlag, historyCmd.Flags().Lookup(pageFlag))
}
