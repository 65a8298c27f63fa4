package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/wes-collab/internal/agent"
	"github.com/weiawesome/wes-collab/internal/domain"
	"github.com/weiawesome/wes-collab/pkg/log"
)

func TestRunLine(t *testing.T) {
	logger := log.Nop()
	a := agent.New(agent.Config{URL: "ws://127.0.0.1:1/chat/ws"}, agent.Options{Logger: &logger})
	var out bytes.Buffer
	ctx := context.Background()

	quit, err := runLine(ctx, a, &out, "/quit")
	require.NoError(t, err)
	assert.True(t, quit)

	_, err = runLine(ctx, a, &out, "/join")
	assert.EqualError(t, err, "usage: /join <project>")

	_, err = runLine(ctx, a, &out, "/edit 1")
	assert.EqualError(t, err, "usage: /edit <id> <text>")

	_, err = runLine(ctx, a, &out, "hello there")
	assert.ErrorIs(t, err, agent.ErrNoProject)

	_, err = runLine(ctx, a, &out, "/join P1")
	assert.ErrorIs(t, err, agent.ErrNotConnected)

	_, err = runLine(ctx, a, &out, "/bogus")
	assert.Error(t, err)

	quit, err = runLine(ctx, a, &out, "   ")
	assert.NoError(t, err)
	assert.False(t, quit)
}

func TestPrintEvent(t *testing.T) {
	var out bytes.Buffer
	at := time.Date(2024, 3, 1, 9, 30, 0, 0, time.Local)

	printEvent(&out, domain.NewMessageEvent(domain.MsgTypeMessageEdited, &domain.Message{ID: "7", SenderName: "bob", Text: "fixed", CreatedAt: at}))
	printEvent(&out, &domain.ReactionMessage{Type: domain.MsgTypeReactionAdded, MessageID: "7", UserID: "alice", Emoji: "👍", Removed: true})
	printEvent(&out, &domain.OnlineUsersMessage{Type: domain.MsgTypeOnlineUsers})
	printEvent(&out, domain.NewErrorMessage(domain.ErrCodeConflict, "message was deleted", domain.MsgTypeEditMessage))

	assert.Equal(t, "[7] 09:30 <bob> fixed (edited)\n"+
		"[7] alice removed 👍\n"+
		"* online: nobody\n"+
		"! CONFLICT: message was deleted\n", out.String())
}
