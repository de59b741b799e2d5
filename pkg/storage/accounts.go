package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// SessionsDirName задаёт подкаталог аккаунта с файлами сессий.
const SessionsDirName = "sessions"

var (
	ErrAccountExists    = errors.New("аккаунт уже существует")
	ErrAccountNotFound  = errors.New("аккаунт не найден")
	ErrInvalidAccountID = errors.New("некорректный идентификатор аккаунта")
)

var accountIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidateAccountID не пускает в путь разделители каталогов и прочие опасные символы.
func ValidateAccountID(id string) error {
	if !accountIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidAccountID, id)
	}
	return nil
}

// Directory управляет каталогами аккаунтов и держит открытые базы, по одной на аккаунт.
type Directory struct {
	root string
	log  zerolog.Logger

	mu    sync.Mutex
	repos map[string]*DB
}

// NewDirectory создаёт корневой каталог, если его ещё нет.
func NewDirectory(root string, log zerolog.Logger) (*Directory, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("не удалось создать каталог аккаунтов: %w", err)
	}
	return &Directory{
		root:  root,
		log:   log.With().Str("component", "accounts").Logger(),
		repos: make(map[string]*DB),
	}, nil
}

// Path возвращает каталог аккаунта.
func (d *Directory) Path(id string) string {
	return filepath.Join(d.root, id)
}

// SessionsDir возвращает каталог сессий аккаунта.
func (d *Directory) SessionsDir(id string) string {
	return filepath.Join(d.Path(id), SessionsDirName)
}

// Create создаёт каталог аккаунта вместе с подкаталогом сессий и базой.
func (d *Directory) Create(id string) error {
	if err := ValidateAccountID(id); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.Exists(id) {
		return ErrAccountExists
	}
	if err := os.MkdirAll(d.SessionsDir(id), 0o755); err != nil {
		return fmt.Errorf("не удалось создать аккаунт %s: %w", id, err)
	}
	if _, err := d.openLocked(id); err != nil {
		return err
	}
	d.log.Info().Str("account", id).Msg("[ACCOUNTS] аккаунт создан")
	return nil
}

// Exists проверяет наличие каталога аккаунта.
func (d *Directory) Exists(id string) bool {
	if ValidateAccountID(id) != nil {
		return false
	}
	info, err := os.Stat(d.Path(id))
	return err == nil && info.IsDir()
}

// List возвращает идентификаторы всех аккаунтов в алфавитном порядке. Скрытые каталоги пропускаются.
func (d *Directory) List() ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать каталог аккаунтов: %w", err)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		ids = append(ids, e.Name())
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete закрывает базу аккаунта и удаляет все его данные.
// Open, Create и Delete идут под одним мьютексом, поэтому параллельный Open
// не может заново открыть базу в каталоге, который уже удаляется.
func (d *Directory) Delete(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.Exists(id) {
		return ErrAccountNotFound
	}
	if db, ok := d.repos[id]; ok {
		_ = db.Close()
		delete(d.repos, id)
	}
	if err := os.RemoveAll(d.Path(id)); err != nil {
		return fmt.Errorf("не удалось удалить аккаунт %s: %w", id, err)
	}
	d.log.Info().Str("account", id).Msg("[ACCOUNTS] аккаунт удалён")
	return nil
}

// Open возвращает базу аккаунта, открывая её при первом обращении.
func (d *Directory) Open(id string) (*DB, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.openLocked(id)
}

func (d *Directory) openLocked(id string) (*DB, error) {
	if db, ok := d.repos[id]; ok {
		return db, nil
	}
	if !d.Exists(id) {
		return nil, ErrAccountNotFound
	}
	db, err := Open(d.Path(id), d.log.With().Str("account", id).Logger())
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть базу аккаунта %s: %w", id, err)
	}
	d.repos[id] = db
	return db, nil
}

// Close закрывает все открытые базы.
func (d *Directory) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, db := range d.repos {
		if err := db.Close(); err != nil {
			d.log.Warn().Err(err).Str("account", id).Msg("[ACCOUNTS] ошибка закрытия базы")
		}
		delete(d.repos, id)
	}
}
