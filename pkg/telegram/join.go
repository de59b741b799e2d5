package telegram

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"

	"autosender/models"
)

// GroupLink хранит разобранную ссылку: публичное имя или хеш приглашения.
type GroupLink struct {
	Username   string
	InviteHash string
}

var usernamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{3,31}$`)

// ParseGroupLink понимает https://t.me/name, t.me/name, @name, name,
// https://t.me/+HASH и https://t.me/joinchat/HASH.
func ParseGroupLink(link string) (GroupLink, error) {
	s := strings.TrimSpace(link)
	for _, prefix := range []string{"https://", "http://"} {
		s = strings.TrimPrefix(s, prefix)
	}
	for _, prefix := range []string{"t.me/", "telegram.me/"} {
		s = strings.TrimPrefix(s, prefix)
	}
	s = strings.TrimSuffix(s, "/")

	switch {
	case strings.HasPrefix(s, "+"):
		if hash := strings.TrimPrefix(s, "+"); hash != "" && !strings.Contains(hash, "/") {
			return GroupLink{InviteHash: hash}, nil
		}
	case strings.HasPrefix(s, "joinchat/"):
		if hash := strings.TrimPrefix(s, "joinchat/"); hash != "" && !strings.Contains(hash, "/") {
			return GroupLink{InviteHash: hash}, nil
		}
	default:
		name := strings.TrimPrefix(s, "@")
		if usernamePattern.MatchString(name) {
			return GroupLink{Username: name}, nil
		}
	}
	return GroupLink{}, fmt.Errorf("%w: %s", ErrInvalidLink, link)
}

// JoinGroup вступает в группу по ссылке. Если аккаунт уже состоит в группе, возвращаются её данные.
func (s *Session) JoinGroup(ctx context.Context, link string) (models.GroupInfo, error) {
	parsed, err := ParseGroupLink(link)
	if err != nil {
		return models.GroupInfo{}, err
	}
	api, err := s.apiClient(ctx)
	if err != nil {
		return models.GroupInfo{}, err
	}
	if parsed.InviteHash != "" {
		return s.joinByInvite(ctx, api, parsed.InviteHash)
	}
	return s.joinByUsername(ctx, api, parsed.Username)
}

func (s *Session) joinByUsername(ctx context.Context, api *tg.Client, username string) (models.GroupInfo, error) {
	resolved, err := api.ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{Username: username})
	if err != nil {
		if t, ok := throttleFrom(err); ok {
			return models.GroupInfo{}, t
		}
		return models.GroupInfo{}, fmt.Errorf("не удалось найти @%s: %w", username, err)
	}
	var channel *tg.Channel
	for _, chat := range resolved.Chats {
		if ch, ok := chat.(*tg.Channel); ok {
			channel = ch
			break
		}
	}
	if channel == nil {
		return models.GroupInfo{}, ErrNotGroup
	}

	_, err = api.ChannelsJoinChannel(ctx, &tg.InputChannel{
		ChannelID:  channel.ID,
		AccessHash: channel.AccessHash,
	})
	if err != nil && !tgerr.Is(err, "USER_ALREADY_PARTICIPANT") {
		if t, ok := throttleFrom(err); ok {
			return models.GroupInfo{}, t
		}
		return models.GroupInfo{}, fmt.Errorf("не удалось вступить в @%s: %w", username, err)
	}
	s.log.Info().Str("group", channel.Title).Msg("[JOIN] аккаунт в группе")
	return groupInfo(channel)
}

func (s *Session) joinByInvite(ctx context.Context, api *tg.Client, hash string) (models.GroupInfo, error) {
	updates, err := api.MessagesImportChatInvite(ctx, hash)
	if err == nil {
		chats := chatsFromUpdates(updates)
		if len(chats) == 0 {
			return models.GroupInfo{}, ErrNotGroup
		}
		return groupInfo(chats[0])
	}
	if t, ok := throttleFrom(err); ok {
		return models.GroupInfo{}, t
	}
	if !tgerr.Is(err, "USER_ALREADY_PARTICIPANT") {
		return models.GroupInfo{}, fmt.Errorf("не удалось вступить по приглашению: %w", err)
	}

	invite, err := api.MessagesCheckChatInvite(ctx, hash)
	if err != nil {
		return models.GroupInfo{}, fmt.Errorf("не удалось проверить приглашение: %w", err)
	}
	already, ok := invite.(*tg.ChatInviteAlready)
	if !ok {
		return models.GroupInfo{}, fmt.Errorf("%w: %T", ErrUnexpectedAnswer, invite)
	}
	return groupInfo(already.Chat)
}

// chatsFromUpdates достаёт список чатов из ответа на вступление.
func chatsFromUpdates(u tg.UpdatesClass) []tg.ChatClass {
	switch v := u.(type) {
	case *tg.Updates:
		return v.Chats
	case *tg.UpdatesCombined:
		return v.Chats
	}
	return nil
}

func groupInfo(chat tg.ChatClass) (models.GroupInfo, error) {
	switch c := chat.(type) {
	case *tg.Channel:
		count, _ := c.GetParticipantsCount()
		return models.GroupInfo{
			Title:        c.Title,
			TelegramID:   c.ID,
			AccessHash:   c.AccessHash,
			MembersCount: count,
		}, nil
	case *tg.Chat:
		return models.GroupInfo{
			Title:        c.Title,
			TelegramID:   c.ID,
			MembersCount: c.ParticipantsCount,
		}, nil
	}
	return models.GroupInfo{}, fmt.Errorf("%w: %T", ErrNotGroup, chat)
}
