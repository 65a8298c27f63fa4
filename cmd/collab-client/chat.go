package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/weiawesome/wes-collab/internal/agent"
	"github.com/weiawesome/wes-collab/internal/domain"
)

const chatHelp = `commands:
  /join <project>         switch room
  /leave                  leave the room
  /edit <id> <text>       edit one of your messages
  /delete <id>            delete one of your messages
  /react <id> <emoji>     toggle your reaction
  /reply <id> <text>      reply to a message
  /read                   mark the room read
  /who                    refresh the online list
  /typing                 announce typing
  /reconnect              reconnect after giving up
  /quit
anything else is sent as a message`

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Join a project room and chat from the terminal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		token := viper.GetString(tokenFlag)
		if token == "" {
			return fmt.Errorf("--%s is required", tokenFlag)
		}
		out := cmd.OutOrStdout()

		a := agent.New(agent.Config{
			URL:               viper.GetString(serverFlag),
			Token:             token,
			MaxAttempts:       viper.GetInt(maxAttemptsFlag),
			InitialInterval:   viper.GetDuration(backoffFlag),
			MaxInterval:       viper.GetDuration(maxBackoffFlag),
			TypingQuietPeriod: viper.GetDuration(quietFlag),
		}, agent.Options{
			History: agent.NewHistoryClient(viper.GetString(apiFlag), token, 10*time.Second),
			OnEvent: func(evt domain.ServerEvent) { printEvent(out, evt) },
			OnStateChange: func(c agent.StateChange) {
				if c.Attempt > 0 {
					fmt.Fprintf(out, "* %s (attempt %d)\n", c.To, c.Attempt)
					return
				}
				fmt.Fprintf(out, "* %s\n", c.To)
			},
		})
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := a.Connect(ctx); err != nil {
			return err
		}
		if project := viper.GetString(projectFlag); project != "" {
			if err := a.JoinProject(project); err != nil {
				return err
			}
		}

		lines := make(chan string)
		go func() {
			defer close(lines)
			scanner := bufio.NewScanner(cmd.InOrStdin())
			for scanner.Scan() {
				lines <- scanner.Text()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok {
					return nil
				}
				quit, err := runLine(ctx, a, out, line)
				if err != nil {
					fmt.Fprintf(out, "! %v\n", err)
				}
				if quit {
					return nil
				}
			}
		}
	},
}

func runLine(ctx context.Context, a *agent.Agent, out io.Writer, line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	if !strings.HasPrefix(line, "/") {
		return false, a.SendMessage(line, nil, "")
	}

	fields := strings.Fields(line)
	rest := func(n int) string {
		parts := strings.SplitN(line, " ", n+1)
		if len(parts) <= n {
			return ""
		}
		return strings.TrimSpace(parts[n])
	}

	switch fields[0] {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		fmt.Fprintln(out, chatHelp)
		return false, nil
	case "/join":
		if len(fields) < 2 {
			return false, errors.New("usage: /join <project>")
		}
		return false, a.JoinProject(fields[1])
	case "/leave":
		return false, a.LeaveProject()
	case "/edit":
		if len(fields) < 3 {
			return false, errors.New("usage: /edit <id> <text>")
		}
		return false, a.EditMessage(fields[1], rest(2))
	case "/delete":
		if len(fields) < 2 {
			return false, errors.New("usage: /delete <id>")
		}
		return false, a.DeleteMessage(fields[1])
	case "/react":
		if len(fields) < 3 {
			return false, errors.New("usage: /react <id> <emoji>")
		}
		return false, a.React(fields[1], fields[2])
	case "/reply":
		if len(fields) < 3 {
			return false, errors.New("usage: /reply <id> <text>")
		}
		return false, a.SendMessage(rest(2), nil, fields[1])
	case "/read":
		return false, a.MarkRead()
	case "/who":
		return false, a.RequestOnlineUsers()
	case "/typing":
		return false, a.Keystroke()
	case "/reconnect":
		return false, a.Reconnect(ctx)
	default:
		return false, fmt.Errorf("unknown command %s, try /help", fields[0])
	}
}

func printEvent(out io.Writer, evt domain.ServerEvent) {
	switch e := evt.(type) {
	case *domain.JoinedProjectMessage:
		fmt.Fprintf(out, "* joined %s (%s), online: %s\n", e.RoomName, e.ProjectID, names(e.OnlineUsers))
	case *domain.UserPresenceMessage:
		verb := "joined"
		if e.Type == domain.MsgTypeUserLeft {
			verb = "left"
		}
		fmt.Fprintf(out, "* %s %s\n", e.Username, verb)
	case *domain.OnlineUsersMessage:
		fmt.Fprintf(out, "* online: %s\n", names(e.Users))
	case *domain.MessageEvent:
		m := e.Message
		if m == nil {
			return
		}
		tag := ""
		if e.Type == domain.MsgTypeMessageEdited {
			tag = " (edited)"
		}
		fmt.Fprintf(out, "[%s] %s <%s> %s%s\n", m.ID, m.CreatedAt.Local().Format("15:04"), m.SenderName, m.Text, tag)
	case *domain.MessageDeletedMessage:
		fmt.Fprintf(out, "[%s] deleted\n", e.MessageID)
	case *domain.ReactionMessage:
		verb := "reacted"
		if e.Removed {
			verb = "removed"
		}
		fmt.Fprintf(out, "[%s] %s %s %s\n", e.MessageID, e.UserID, verb, e.Emoji)
	case *domain.TypingMessage:
		if e.Type == domain.MsgTypeUserTyping {
			fmt.Fprintf(out, "* %s is typing\n", e.Username)
		}
	case *domain.ErrorMessage:
		fmt.Fprintf(out, "! %s: %s\n", e.Code, e.Message)
	}
}

func names(users []domain.OnlineUser) string {
	if len(users) == 0 {
		return "nobody"
	}
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, u.Username)
	}
	return strings.Join(out, ", ")
}

func init() {
	chatCmd.Flags().StringP(projectFlag, "p", "", "Project to join on connect")
	viper.BindPFlag(projectFlag, chatCmd.Flags().Lookup(projectFlag))

	chatCmd.Flags().Int(maxAttemptsFlag, 5, "Automatic reconnect attempts before giving up")
	viper.BindPFlag(maxAttemptsFlag, chatCmd.Flags().Lookup(maxAttemptsFlag))

	chatCmd.Flags().Duration(backoffFlag, 500*time.Millisecond, "Initial reconnect delay")
	viper.BindPFlag(backoffFlag, chatCmd.Flags().Lookup(backoffFlag))

	chatCmd.Flags().Duration(maxBackoffFlag, 10*time.Second, "Maximum reconnect delay")
	viper.BindPFlag(maxBackoffFlag, chatCmd.Flags().Lookup(maxBackoffFlag))

	chatCmd.Flags().Duration(quietFlag, 3*time.Second, "Idle time before stop-typing is sent")
	viper.BindPFlag(quietFlag, chatCmd.Flags().Lookup(quietFlag))
}
