package telegram

import (
	"testing"

	"github.com/gotd/td/tg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autosender/models"
)

func TestParseGroupLink(t *testing.T) {
	cases := map[string]GroupLink{
		"https://t.me/golang_ru":        {Username: "golang_ru"},
		"t.me/golang_ru/":               {Username: "golang_ru"},
		"@golang_ru":                    {Username: "golang_ru"},
		"golang_ru":                     {Username: "golang_ru"},
		"https://telegram.me/golang_ru": {Username: "golang_ru"},
		"https://t.me/+AbCdEf123":       {InviteHash: "AbCdEf123"},
		"https://t.me/joinchat/AbCdEf":  {InviteHash: "AbCdEf"},
		"  https://t.me/golang_ru  ":    {Username: "golang_ru"},
	}
	for in, want := range cases {
		got, err := ParseGroupLink(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestParseGroupLinkInvalid(t *testing.T) {
	for _, in := range []string{"", "https://t.me/", "https://t.me/+", "ab", "https://t.me/a/b", "https://t.me/joinchat/"} {
		_, err := ParseGroupLink(in)
		assert.ErrorIs(t, err, ErrInvalidLink, in)
	}
}

func TestGroupInfoFromChannel(t *testing.T) {
	ch := &tg.Channel{ID: 100, AccessHash: 555, Title: "Канал"}
	ch.SetParticipantsCount(42)

	info, err := groupInfo(ch)
	require.NoError(t, err)
	assert.Equal(t, models.GroupInfo{Title: "Канал", TelegramID: 100, AccessHash: 555, MembersCount: 42}, info)
}

func TestGroupInfoFromChat(t *testing.T) {
	info, err := groupInfo(&tg.Chat{ID: 7, Title: "Чат", ParticipantsCount: 3})
	require.NoError(t, err)
	assert.Equal(t, models.GroupInfo{Title: "Чат", TelegramID: 7, MembersCount: 3}, info)

	_, err = groupInfo(&tg.ChatEmpty{ID: 1})
	assert.ErrorIs(t, err, ErrNotGroup)
}

func TestChatsFromUpdates(t *testing.T) {
	chat := &tg.Chat{ID: 1, Title: "a"}
	assert.Len(t, chatsFromUpdates(&tg.Updates{Chats: []tg.ChatClass{chat}}), 1)
	assert.Len(t, chatsFromUpdates(&tg.UpdatesCombined{Chats: []tg.ChatClass{chat, chat}}), 2)
	assert.Nil(t, chatsFromUpdates(&tg.UpdatesTooLong{}))
}
