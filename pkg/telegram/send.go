package telegram

import (
	"context"
	"math/rand/v2"

	"github.com/gotd/td/tg"

	"autosender/models"
)

// inputPeer строит адрес группы. Для каналов и супергрупп нужен access_hash, у обычных чатов его нет.
func inputPeer(g models.Group) (tg.InputPeerClass, error) {
	if g.TelegramID == 0 {
		return nil, ErrUnknownTarget
	}
	if g.AccessHash != 0 {
		return &tg.InputPeerChannel{ChannelID: g.TelegramID, AccessHash: g.AccessHash}, nil
	}
	return &tg.InputPeerChat{ChatID: g.TelegramID}, nil
}

// SendText отправляет один текст в группу.
// Ошибки: *ThrottleError при FLOOD_WAIT, *PermanentError во всех остальных случаях, включая SLOWMODE_WAIT.
func (s *Session) SendText(ctx context.Context, g models.Group, text string) error {
	peer, err := inputPeer(g)
	if err != nil {
		return &PermanentError{Reason: err.Error(), Err: err}
	}
	api, err := s.apiClient(ctx)
	if err != nil {
		return &PermanentError{Reason: err.Error(), Err: err}
	}
	_, err = api.MessagesSendMessage(ctx, &tg.MessagesSendMessageRequest{
		Peer:     peer,
		Message:  text,
		RandomID: rand.Int64(),
	})
	if err != nil {
		s.log.Debug().Err(err).Str("group", g.Title).Msg("[SEND] ошибка отправки")
		return classifySendError(err)
	}
	return nil
}
