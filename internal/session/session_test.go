package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_PutGetDelete(t *testing.T) {
	store := NewMemoryStore()

	_, ok := store.Get(100)
	assert.False(t, ok)

	store.Put(Session{
		TelegramID: 100,
		State:      StateQuestionnaire,
		Step:       2,
		Answers:    map[string]string{"full_name": "Иван Петров"},
	})

	sess, ok := store.Get(100)
	require.True(t, ok)
	assert.Equal(t, StateQuestionnaire, sess.State)
	assert.Equal(t, 2, sess.Step)
	assert.Equal(t, "Иван Петров", sess.Answers["full_name"])

	store.Delete(100)
	_, ok = store.Get(100)
	assert.False(t, ok)
}

func TestMemoryStore_Concurrent(t *testing.T) {
	store := NewMemoryStore()

	var wg sync.WaitGroup
	for i := int64(0); i < 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			store.Put(Session{TelegramID: id, State: StateIdle})
			store.Get(id)
			store.Delete(id)
		}(i)
	}
	wg.Wait()
}
