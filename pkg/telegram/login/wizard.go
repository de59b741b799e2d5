package login

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"autosender/pkg/telegram"
	"autosender/pkg/telegram/account_mutex"
)

var (
	ErrLoginNotFound = errors.New("вход не найден или истёк, начните заново")
	ErrWrongStep     = errors.New("этот шаг входа сейчас недоступен")
	ErrInvalidPhone  = errors.New("неверный номер телефона, пример: +1234567890")
)

var phonePattern = regexp.MustCompile(`^\+\d{10,15}$`)

const (
	openTimeout       = time.Minute
	disconnectTimeout = 10 * time.Second
)

// Client описывает подключённый, но ещё не авторизованный клиент Telegram.
type Client interface {
	SendCode(ctx context.Context, phone string) (string, error)
	SignIn(ctx context.Context, phone, code, phoneCodeHash string) error
	Password(ctx context.Context, password string) error
	Disconnect(ctx context.Context) error
}

// Opener подключает клиента для входа и возвращает ссылку на хранилище его сессии.
type Opener interface {
	Open(ctx context.Context, accountID, phone string) (Client, string, error)
}

// OpenerFunc позволяет передать функцию как Opener.
type OpenerFunc func(ctx context.Context, accountID, phone string) (Client, string, error)

func (f OpenerFunc) Open(ctx context.Context, accountID, phone string) (Client, string, error) {
	return f(ctx, accountID, phone)
}

// FromTransport открывает клиентов через MTProto.
func FromTransport(t *telegram.Transport) Opener {
	return OpenerFunc(func(ctx context.Context, accountID, phone string) (Client, string, error) {
		s, ref, err := t.Open(ctx, accountID, phone)
		if err != nil {
			return nil, "", err
		}
		return s, ref, nil
	})
}

// Finisher сохраняет результат успешного входа.
type Finisher interface {
	CompleteLogin(ctx context.Context, accountID, phone, ref string) error
}

// Wizard хранит незавершённые входы в кеше с TTL. По истечении TTL клиент отключается.
type Wizard struct {
	opener   Opener
	finisher Finisher
	pending  *cache.Cache
	locks    *account_mutex.Mutex
	log      zerolog.Logger
}

func NewWizard(opener Opener, finisher Finisher, ttl time.Duration, log zerolog.Logger) *Wizard {
	w := &Wizard{
		opener:   opener,
		finisher: finisher,
		pending:  cache.New(ttl, ttl/2),
		log:      log.With().Str("component", "login").Logger(),
	}
	w.locks = account_mutex.New(w.log)
	w.pending.OnEvicted(func(id string, v interface{}) {
		if s, ok := v.(State); ok {
			w.release(s)
		}
	})
	return w
}

// Start начинает вход для аккаунта и возвращает идентификатор входа.
func (w *Wizard) Start(accountID string) (string, State) {
	id := uuid.NewString()
	state := AwaitingPhone{AccountID: accountID}
	w.pending.SetDefault(id, state)
	w.log.Info().Str("account", accountID).Str("login_id", id).Msg("[LOGIN] вход начат")
	return id, state
}

// Get возвращает текущее состояние входа.
func (w *Wizard) Get(id string) (State, bool) {
	v, ok := w.pending.Get(id)
	if !ok {
		return nil, false
	}
	s, ok := v.(State)
	return s, ok
}

// Cancel прерывает вход и отключает клиента.
func (w *Wizard) Cancel(id string) {
	w.pending.Delete(id)
}

// SubmitPhone: AwaitingPhone -> AwaitingCode.
func (w *Wizard) SubmitPhone(ctx context.Context, id, phone string) (State, error) {
	state, unlock, err := w.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	cur, ok := state.(AwaitingPhone)
	if !ok {
		return state, ErrWrongStep
	}
	if !phonePattern.MatchString(phone) {
		return state, ErrInvalidPhone
	}

	octx, cancel := context.WithTimeout(ctx, openTimeout)
	defer cancel()
	c, ref, err := w.opener.Open(octx, cur.AccountID, phone)
	if err != nil {
		w.log.Error().Err(err).Str("account", cur.AccountID).Msg("[LOGIN] не удалось подключиться")
		return state, fmt.Errorf("не удалось подключиться к Telegram: %w", err)
	}
	hash, err := c.SendCode(ctx, phone)
	if err != nil {
		disconnect(c)
		w.log.Warn().Err(err).Str("account", cur.AccountID).Msg("[LOGIN] код не отправлен")
		return state, err
	}

	next := AwaitingCode{AccountID: cur.AccountID, Client: c, Phone: phone, Hash: hash, Ref: ref}
	w.pending.SetDefault(id, next)
	w.log.Info().Str("account", cur.AccountID).Str("phone", telegram.MaskPhone(phone)).Msg("[LOGIN] код отправлен")
	return next, nil
}

// SubmitCode: AwaitingCode -> Done | AwaitingPassword. При неверном коде шаг не меняется.
func (w *Wizard) SubmitCode(ctx context.Context, id, code string) (State, error) {
	state, unlock, err := w.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	cur, ok := state.(AwaitingCode)
	if !ok {
		return state, ErrWrongStep
	}
	err = cur.Client.SignIn(ctx, cur.Phone, code, cur.Hash)
	if errors.Is(err, telegram.ErrPasswordNeeded) {
		next := AwaitingPassword{AccountID: cur.AccountID, Client: cur.Client, Phone: cur.Phone, Ref: cur.Ref}
		w.pending.SetDefault(id, next)
		w.log.Info().Str("account", cur.AccountID).Msg("[LOGIN] нужен пароль 2FA")
		return next, nil
	}
	if err != nil {
		return state, err
	}
	return w.finish(ctx, id, cur.AccountID, cur.Phone, cur.Ref)
}

// SubmitPassword: AwaitingPassword -> Done. При неверном пароле шаг не меняется.
func (w *Wizard) SubmitPassword(ctx context.Context, id, password string) (State, error) {
	state, unlock, err := w.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	cur, ok := state.(AwaitingPassword)
	if !ok {
		return state, ErrWrongStep
	}
	if err := cur.Client.Password(ctx, password); err != nil {
		return state, err
	}
	return w.finish(ctx, id, cur.AccountID, cur.Phone, cur.Ref)
}

// finish сохраняет вход и закрывает клиент мастера: рабочую сессию поднимет пул.
func (w *Wizard) finish(ctx context.Context, id, accountID, phone, ref string) (State, error) {
	w.pending.Delete(id)
	if err := w.finisher.CompleteLogin(ctx, accountID, phone, ref); err != nil {
		w.log.Error().Err(err).Str("account", accountID).Msg("[LOGIN] не удалось сохранить вход")
		return nil, err
	}
	w.log.Info().Str("account", accountID).Str("phone", telegram.MaskPhone(phone)).Msg("[LOGIN] вход выполнен")
	return Done{AccountID: accountID, Phone: phone}, nil
}

// acquire блокирует вход id на время шага и возвращает его текущее состояние.
func (w *Wizard) acquire(ctx context.Context, id string) (State, func(), error) {
	if err := w.locks.Lock(ctx, id); err != nil {
		return nil, nil, err
	}
	state, ok := w.Get(id)
	if !ok {
		w.locks.Unlock(id)
		return nil, nil, ErrLoginNotFound
	}
	return state, func() { w.locks.Unlock(id) }, nil
}

func (w *Wizard) release(s State) {
	if c := client(s); c != nil {
		disconnect(c)
		w.log.Debug().Str("account", s.Account()).Msg("[LOGIN] клиент входа отключён")
	}
}

func disconnect(c Client) {
	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	_ = c.Disconnect(ctx)
}
