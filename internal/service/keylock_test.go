package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyLockSerializesSameKey(t *testing.T) {
	kl := NewKeyLock()

	var (
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := kl.Lock("201")
			defer unlock()
			v := counter
			v++
			counter = v
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Zero(t, kl.size())
}

func TestKeyLockIndependentKeys(t *testing.T) {
	kl := NewKeyLock()

	unlockA := kl.Lock("a")
	done := make(chan struct{})
	go func() {
		unlock := kl.Lock("b")
		unlock()
		close(done)
	}()
	<-done
	unlockA()
	unlockA()

	assert.Zero(t, kl.size())
}
