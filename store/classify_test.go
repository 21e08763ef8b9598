package store

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestClassify_UniqueViolation(t *testing.T) {
	err := &pgconn.PgError{Code: pgUniqueViolation}
	if got := classify(err); !errors.Is(got, ErrConflict) {
		t.Fatalf("classify unique violation: got %v, want ErrConflict", got)
	}
}

func TestClassify_ContextCancelled(t *testing.T) {
	if got := classify(context.Canceled); !errors.Is(got, ErrTransient) {
		t.Fatalf("classify context.Canceled: got %v, want ErrTransient", got)
	}
}

func TestClassify_OtherErrorPassesThrough(t *testing.T) {
	sentinel := errors.New("boom")
	if got := classify(sentinel); got != sentinel {
		t.Fatalf("classify unrelated error: got %v, want unchanged", got)
	}
}

func TestClassify_Nil(t *testing.T) {
	if classify(nil) != nil {
		t.Fatal("classify(nil) should be nil")
	}
}
