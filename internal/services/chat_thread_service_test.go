package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/tbourn/go-parts-market/internal/domain"
)

func strptr(s string) *string { return &s }

func TestChatThreadEnsure_Validation(t *testing.T) {
	s := newStack(t)
	for _, tc := range [][2]string{{"", "s1"}, {"b1", " "}, {"u1", "u1"}} {
		if _, err := s.threads.Ensure(context.Background(), tc[0], tc[1], nil); !errors.Is(err, ErrInvalidThread) {
			t.Fatalf("%v: expected ErrInvalidThread, got %v", tc, err)
		}
	}
}

func TestChatThreadEnsure_KeyLengths(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)
	long := strings.Repeat("p", maxThreadKeyRunes+1)

	if _, err := s.threads.Ensure(ctx, "b1", "s1", strptr(long)); !errors.Is(err, ErrInvalidThread) {
		t.Fatalf("long part id: expected ErrInvalidThread, got %v", err)
	}
	if _, err := s.threads.Ensure(ctx, long, "s1", nil); !errors.Is(err, ErrInvalidThread) {
		t.Fatalf("long buyer id: expected ErrInvalidThread, got %v", err)
	}

	// Multi-byte ids are measured in characters, like the column.
	fits := strings.Repeat("ü", maxThreadKeyRunes)
	th, err := s.threads.Ensure(ctx, "b1", "s1", strptr(fits))
	if err != nil {
		t.Fatalf("Ensure at the limit: %v", err)
	}
	if th.PartID == nil || *th.PartID != fits {
		t.Fatalf("unexpected part id: %v", th.PartID)
	}
}

func TestChatThreadEnsure_Converges(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)

	a, err := s.threads.Ensure(ctx, "b1", "s1", strptr("p1"))
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	b, _ := s.threads.Ensure(ctx, "b1", "s1", strptr("p1"))
	if a.ID != b.ID {
		t.Fatalf("same key must return same thread: %s vs %s", a.ID, b.ID)
	}
	noPart, _ := s.threads.Ensure(ctx, "b1", "s1", nil)
	emptyPart, _ := s.threads.Ensure(ctx, "b1", "s1", strptr(" "))
	if noPart.ID == a.ID || noPart.ID != emptyPart.ID || noPart.PartID != nil {
		t.Fatalf("null-part thread must be distinct and unique: %+v %+v", noPart, emptyPart)
	}
	swapped, _ := s.threads.Ensure(ctx, "s1", "b1", strptr("p1"))
	if swapped.ID == a.ID {
		t.Fatalf("buyer and seller roles are part of the key")
	}
}

func TestChatThreadEnsure_Concurrent(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)

	const n = 10
	ids := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			th, err := s.threads.Ensure(ctx, "b1", "s1", nil)
			errs[i] = err
			if th != nil {
				ids[i] = th.ID
			}
		}(i)
	}
	wg.Wait()
	for i := range ids {
		if errs[i] != nil || ids[i] != ids[0] {
			t.Fatalf("caller %d: id=%s err=%v (want %s)", i, ids[i], errs[i], ids[0])
		}
	}
	var count int64
	s.db.Model(&domain.ChatThread{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected one row, got %d", count)
	}
}
