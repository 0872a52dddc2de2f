package tracker

import "testing"

func TestFileLock(t *testing.T) {
	t.Run("lock and unlock", func(t *testing.T) {
		fl := NewFileLock(t.TempDir())
		if err := fl.Lock(); err != nil {
			t.Fatalf("Lock: %v", err)
		}
		if err := fl.Unlock(); err != nil {
			t.Fatalf("Unlock: %v", err)
		}
	})

	t.Run("trylock succeeds when free", func(t *testing.T) {
		fl := NewFileLock(t.TempDir())
		ok, err := fl.TryLock()
		if err != nil {
			t.Fatalf("TryLock: %v", err)
		}
		if !ok {
			t.Fatal("TryLock = false on a free lock")
		}
		if err := fl.Unlock(); err != nil {
			t.Fatalf("Unlock: %v", err)
		}
	})

	t.Run("unlock without lock is a no-op", func(t *testing.T) {
		fl := NewFileLock(t.TempDir())
		if err := fl.Unlock(); err != nil {
			t.Fatalf("Unlock: %v", err)
		}
	})
}
