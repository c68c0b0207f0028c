package memory

import (
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestIdempotencyCreateProcessing(t *testing.T) {
	repo := NewIdempotencyRepository()
	ttl := time.Now().UTC().Add(time.Hour)

	record, err := repo.CreateProcessing("key-1", "hash-1", ttl)
	if err != nil {
		t.Fatalf("create processing: %v", err)
	}
	if record.Status != domain.IdempotencyStatusProcessing {
		t.Errorf("expected processing status, got %s", record.Status)
	}

	// Тот же ключ и хэш — уже существует.
	existing, err := repo.CreateProcessing("key-1", "hash-1", ttl)
	if !errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists) {
		t.Fatalf("expected ErrIdempotencyKeyAlreadyExists, got %v", err)
	}
	if existing.Status != domain.IdempotencyStatusProcessing {
		t.Errorf("expected existing record returned, got %+v", existing)
	}

	// Тот же ключ, другой хэш — конфликт тела запроса.
	if _, err := repo.CreateProcessing("key-1", "hash-2", ttl); !errors.Is(err, domain.ErrIdempotencyHashMismatch) {
		t.Fatalf("expected ErrIdempotencyHashMismatch, got %v", err)
	}

	if _, err := repo.CreateProcessing("", "hash", ttl); !errors.Is(err, domain.ErrIdempotencyKeyRequired) {
		t.Fatalf("expected ErrIdempotencyKeyRequired, got %v", err)
	}
	if _, err := repo.CreateProcessing("key-2", "", ttl); !errors.Is(err, domain.ErrIdempotencyRequestHashRequired) {
		t.Fatalf("expected ErrIdempotencyRequestHashRequired, got %v", err)
	}
}

func TestIdempotencyMarkDoneStoresResponse(t *testing.T) {
	repo := NewIdempotencyRepository()
	ttl := time.Now().UTC().Add(time.Hour)

	if _, err := repo.CreateProcessing("key-1", "hash-1", ttl); err != nil {
		t.Fatalf("create processing: %v", err)
	}
	if err := repo.MarkDone("key-1", []byte(`{"id":"order-1"}`), 201); err != nil {
		t.Fatalf("mark done: %v", err)
	}

	record, err := repo.Get("key-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if record.Status != domain.IdempotencyStatusDone {
		t.Errorf("expected done status, got %s", record.Status)
	}
	if record.HTTPStatus != 201 || string(record.ResponseBody) != `{"id":"order-1"}` {
		t.Errorf("unexpected stored response: %d %s", record.HTTPStatus, record.ResponseBody)
	}

	if err := repo.MarkFailed("missing", nil, 500); !errors.Is(err, domain.ErrIdempotencyKeyNotFound) {
		t.Fatalf("expected ErrIdempotencyKeyNotFound, got %v", err)
	}
}

func TestIdempotencyDeleteExpired(t *testing.T) {
	repo := NewIdempotencyRepository()
	now := time.Now().UTC()

	if _, err := repo.CreateProcessing("expired", "hash", now.Add(-time.Minute)); err != nil {
		t.Fatalf("create processing: %v", err)
	}
	if _, err := repo.CreateProcessing("fresh", "hash", now.Add(time.Hour)); err != nil {
		t.Fatalf("create processing: %v", err)
	}

	removed, err := repo.DeleteExpired(now, 0)
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 removed record, got %d", removed)
	}

	if _, err := repo.Get("expired"); !errors.Is(err, domain.ErrIdempotencyKeyNotFound) {
		t.Errorf("expected expired record removed, got %v", err)
	}
	if _, err := repo.Get("fresh"); err != nil {
		t.Errorf("expected fresh record to survive, got %v", err)
	}
}
