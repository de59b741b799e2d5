package login

// State описывает шаг мастера входа. Возможные значения: AwaitingPhone, AwaitingCode, AwaitingPassword, Done.
type State interface {
	Step() string
	Account() string
}

// AwaitingPhone ждёт номер телефона.
type AwaitingPhone struct {
	AccountID string
}

// AwaitingCode ждёт код. Клиент уже подключён, код отправлен.
type AwaitingCode struct {
	AccountID string
	Client    Client
	Phone     string
	Hash      string
	Ref       string // куда сохраняется сессия
}

// AwaitingPassword ждёт пароль 2FA после принятого кода.
type AwaitingPassword struct {
	AccountID string
	Client    Client
	Phone     string
	Ref       string
}

// Done означает, что вход завершён и учётная запись сохранена.
type Done struct {
	AccountID string
	Phone     string
}

func (s AwaitingPhone) Step() string    { return "awaiting_phone" }
func (s AwaitingCode) Step() string     { return "awaiting_code" }
func (s AwaitingPassword) Step() string { return "awaiting_password" }
func (s Done) Step() string             { return "done" }

func (s AwaitingPhone) Account() string    { return s.AccountID }
func (s AwaitingCode) Account() string     { return s.AccountID }
func (s AwaitingPassword) Account() string { return s.AccountID }
func (s Done) Account() string             { return s.AccountID }

// client возвращает подключённый клиент состояния, если он есть.
func client(s State) Client {
	switch v := s.(type) {
	case AwaitingCode:
		return v.Client
	case AwaitingPassword:
		return v.Client
	}
	return nil
}
