package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSession_ZeroValue(t *testing.T) {
	s := New()
	addr, ok := s.Wallet()
	assert.False(t, ok)
	assert.Empty(t, addr)
}

func TestSession_SetAndGet(t *testing.T) {
	s := New()
	s.SetWallet("4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T")

	addr, ok := s.Wallet()
	assert.True(t, ok)
	assert.Equal(t, "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T", addr)
}

func TestSession_Clear(t *testing.T) {
	s := New()
	s.SetWallet("4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T")
	s.Clear()

	_, ok := s.Wallet()
	assert.False(t, ok)
}

func TestSession_LastWriteWins(t *testing.T) {
	s := New()
	s.SetWallet("first")
	s.SetWallet("second")

	addr, _ := s.Wallet()
	assert.Equal(t, "second", addr)
}

func TestSession_ConcurrentReads(t *testing.T) {
	s := New()
	s.SetWallet("4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			addr, ok := s.Wallet()
			assert.True(t, ok)
			assert.NotEmpty(t, addr)
		}()
	}
	wg.Wait()
}
