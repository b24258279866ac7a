package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xandpulse/models"
)

func TestWebhookNotifier_PostsEvent(t *testing.T) {
	var got models.TransitionEvent
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	ev := models.TransitionEvent{Pubkey: "A", Previous: models.StatusOnline, Current: models.StatusOffline}
	err := NewWebhookNotifier(time.Second).Notify(context.Background(), srv.URL, ev)

	require.NoError(t, err)
	assert.Equal(t, "A", got.Pubkey)
	assert.Equal(t, models.StatusOffline, got.Current)
}

func TestWebhookNotifier_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	w := NewWebhookNotifier(time.Second)

	err := w.Notify(context.Background(), srv.URL, models.TransitionEvent{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")

	err = w.Notify(context.Background(), "1234567890", models.TransitionEvent{})
	require.Error(t, err)
}

func TestNotifierRouter(t *testing.T) {
	webhook := &fakeNotifier{label: "webhook"}
	chat := &fakeNotifier{label: "chat"}
	router := NewNotifierRouter(webhook, chat)

	require.NoError(t, router.Notify(context.Background(), "https://hooks.example.com/x", models.TransitionEvent{}))
	require.NoError(t, router.Notify(context.Background(), "112233445566", models.TransitionEvent{}))

	assert.Equal(t, []string{"https://hooks.example.com/x"}, webhook.channels())
	assert.Equal(t, []string{"112233445566"}, chat.channels())

	err := NewNotifierRouter(webhook, nil).Notify(context.Background(), "112233445566", models.TransitionEvent{})
	assert.Error(t, err)
}

func TestDiscordBot_Commands(t *testing.T) {
	bot, err := NewDiscordBotService("")
	require.NoError(t, err)
	assert.False(t, bot.Enabled())

	reply, ok := bot.handleCommand("chan", "hello there")
	assert.False(t, ok)
	assert.Empty(t, reply)

	reply, ok = bot.handleCommand("chan", "!pulse subscribe A")
	assert.True(t, ok)
	assert.Contains(t, reply, "not available")

	subs := NewAlertService(nil, 0)
	bot.BindSubscriptions(subs)

	reply, _ = bot.handleCommand("chan", "!pulse subscribe A")
	assert.Contains(t, reply, "`A`")
	assert.Equal(t, []string{"A"}, subs.Subscriptions("chan"))

	reply, _ = bot.handleCommand("chan", "!pulse list")
	assert.Contains(t, reply, "A")

	reply, _ = bot.handleCommand("chan", "!pulse unsubscribe B")
	assert.Contains(t, reply, "not watching")

	reply, _ = bot.handleCommand("chan", "!pulse unsubscribe A")
	assert.Contains(t, reply, "Stopped")
	assert.Empty(t, subs.Subscriptions("chan"))

	reply, _ = bot.handleCommand("chan", "!pulse subscribe")
	assert.Contains(t, reply, "Usage")

	reply, _ = bot.handleCommand("chan", "!pulse")
	assert.Contains(t, reply, "commands")

	reply, _ = bot.handleCommand("chan", "!pulse frobnicate")
	assert.Contains(t, reply, "Unknown command")

	assert.Error(t, bot.Notify(context.Background(), "chan", models.TransitionEvent{}))
}

func TestTransitionEmbed(t *testing.T) {
	down := transitionEmbed(models.TransitionEvent{Pubkey: "A", Previous: models.StatusOnline, Current: models.StatusOffline, Timestamp: time.Unix(0, 0)})
	up := transitionEmbed(models.TransitionEvent{Pubkey: "A", Previous: models.StatusOffline, Current: models.StatusOnline, Timestamp: time.Unix(0, 0)})

	assert.Contains(t, down.Title, "offline")
	assert.Contains(t, up.Title, "online")
	assert.NotEqual(t, down.Color, up.Color)
	assert.Equal(t, "ONLINE → OFFLINE", down.Fields[2].Value)
}
