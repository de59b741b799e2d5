package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDirectory(t *testing.T) *Directory {
	t.Helper()
	d, err := NewDirectory(filepath.Join(t.TempDir(), "accounts"), zerolog.New(io.Discard))
	require.NoError(t, err)
	t.Cleanup(d.Close)
	return d
}

func TestDirectoryLifecycle(t *testing.T) {
	d := newTestDirectory(t)

	require.NoError(t, d.Create("user_1"))
	require.NoError(t, d.Create("user_2"))
	assert.ErrorIs(t, d.Create("user_1"), ErrAccountExists)
	assert.True(t, d.Exists("user_1"))
	assert.DirExists(t, d.SessionsDir("user_1"))
	assert.FileExists(t, filepath.Join(d.Path("user_1"), DBFileName))

	ids, err := d.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"user_1", "user_2"}, ids)

	require.NoError(t, d.Delete("user_1"))
	assert.False(t, d.Exists("user_1"))
	assert.ErrorIs(t, d.Delete("user_1"), ErrAccountNotFound)

	ids, err = d.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"user_2"}, ids)
}

func TestDirectoryRejectsBadIDs(t *testing.T) {
	d := newTestDirectory(t)

	for _, id := range []string{"", "../evil", "a/b", ".hidden"} {
		assert.ErrorIs(t, d.Create(id), ErrInvalidAccountID, id)
		assert.False(t, d.Exists(id))
	}
}

func TestDirectoryListSkipsHiddenAndFiles(t *testing.T) {
	d := newTestDirectory(t)
	require.NoError(t, d.Create("acc"))
	require.NoError(t, os.Mkdir(filepath.Join(d.root, ".trash"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(d.root, "readme.txt"), []byte("x"), 0o644))

	ids, err := d.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"acc"}, ids)
}

func TestDirectoryOpenCachesRepository(t *testing.T) {
	d := newTestDirectory(t)
	require.NoError(t, d.Create("acc"))

	first, err := d.Open("acc")
	require.NoError(t, err)
	second, err := d.Open("acc")
	require.NoError(t, err)
	assert.Same(t, first, second)

	_, err = d.Open("missing")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestDeleteRemovesOwnedData(t *testing.T) {
	d := newTestDirectory(t)
	ctx := context.Background()
	require.NoError(t, d.Create("acc"))
	db, err := d.Open("acc")
	require.NoError(t, err)
	require.True(t, db.AddMessage(ctx, "текст", 1, 1))

	require.NoError(t, d.Delete("acc"))
	require.NoError(t, d.Create("acc"))
	db, err = d.Open("acc")
	require.NoError(t, err)
	assert.Empty(t, db.GetMessages(ctx, false), "новый аккаунт с тем же именем начинается с пустой базы")
}

func TestDeleteRacingOpenLeavesNoDirectory(t *testing.T) {
	for i := 0; i < 20; i++ {
		d := newTestDirectory(t)
		id := fmt.Sprintf("acc%d", i)
		require.NoError(t, d.Create(id))

		var wg sync.WaitGroup
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for k := 0; k < 20; k++ {
					if _, err := d.Open(id); err != nil {
						assert.ErrorIs(t, err, ErrAccountNotFound)
					}
				}
			}()
		}
		require.NoError(t, d.Delete(id))
		wg.Wait()

		assert.NoDirExists(t, d.Path(id), "Open после Delete не должен воссоздавать каталог")
		_, err := d.Open(id)
		assert.ErrorIs(t, err, ErrAccountNotFound)
	}
}

func TestOpenDoesNotCreateDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "gone")

	_, err := Open(dir, zerolog.New(io.Discard))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.NoDirExists(t, dir)
}

func TestFileSessionsRef(t *testing.T) {
	d := newTestDirectory(t)
	backend := FileSessions{Dir: d}

	ref := backend.SessionRef("acc", "+79990000001")
	assert.Equal(t, filepath.Join(d.SessionsDir("acc"), SessionName("+79990000001")), ref)
	assert.NotEqual(t, ref, backend.SessionRef("acc", "+79990000002"))
	assert.NotNil(t, backend.Storage(ref))
}

func TestSessionNameIsStable(t *testing.T) {
	assert.Len(t, SessionName("+79990000001"), 32+len(".session"))
	assert.Equal(t, SessionName("+1"), SessionName("+1"))
}
