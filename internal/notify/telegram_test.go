package notify

import (
	"errors"
	"sort"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBot struct {
	sent chan tgbotapi.MessageConfig
	err  error
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent <- c.(tgbotapi.MessageConfig)
	return tgbotapi.Message{}, f.err
}

func TestNotifySendsToEveryChat(t *testing.T) {
	bot := &fakeBot{sent: make(chan tgbotapi.MessageConfig, 2), err: errors.New("flood")}
	n := &TelegramNotifier{bot: bot, chatIDs: []int64{11, 22}}

	n.Notify("alice won 200 coins")

	var chats []int64
	for i := 0; i < 2; i++ {
		select {
		case m := <-bot.sent:
			assert.Equal(t, "alice won 200 coins", m.Text)
			chats = append(chats, m.ChatID)
		case <-time.After(time.Second):
			require.FailNow(t, "message not sent")
		}
	}
	sort.Slice(chats, func(i, j int) bool { return chats[i] < chats[j] })
	assert.Equal(t, []int64{11, 22}, chats)
}

func TestDisabledNotifier(t *testing.T) {
	assert.Nil(t, FromConfig("", []int64{1}))
	assert.Nil(t, FromConfig("token", nil))

	var n *TelegramNotifier
	assert.NotPanics(t, func() { n.Notify("ignored") })
}
