package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/embedder"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/ledger"
)

func TestMockLedgerStore_RejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	store := NewMockLedgerStore()
	day := ledger.Day{Year: 2024, Month: 3, Day: 11}
	rec := ledger.Record{IdentityID: "1001", DisplayName: "Ali Veli", Date: day, Status: ledger.StatusPresent}

	if err := store.Append(ctx, day, rec); err != nil {
		t.Fatalf("first Append() error: %v", err)
	}
	if err := store.Append(ctx, day, rec); !errors.Is(err, ledger.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
	if got := store.Count(day); got != 1 {
		t.Errorf("expected 1 record, got %d", got)
	}

	days, err := store.Days(ctx, 10)
	if err != nil || len(days) != 1 || days[0] != day {
		t.Errorf("Days() = %v, %v", days, err)
	}
}

func TestMockGalleryRepository_Nearest(t *testing.T) {
	g, err := gallery.New([]gallery.Entry{
		{IdentityID: "1", DisplayName: "A", Embedding: gallery.Embedding{0, 0}},
		{IdentityID: "2", DisplayName: "B", Embedding: gallery.Embedding{3, 4}},
		{IdentityID: "3", DisplayName: "C", Embedding: gallery.Embedding{1, 0}},
	})
	if err != nil {
		t.Fatal(err)
	}
	repo := NewMockGalleryRepository(g)

	got, err := repo.Nearest(context.Background(), gallery.Embedding{0.9, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Entry.IdentityID != "3" || got[1].Entry.IdentityID != "1" {
		t.Errorf("unexpected neighbours: %+v", got)
	}
}

func TestMockEmbedder_RepeatsLastResponse(t *testing.T) {
	m := NewMockEmbedder(nil, []embedder.Face{{Index: 0}})
	ctx := context.Background()
	for i, want := range []int{0, 1, 1} {
		faces, err := m.DetectFaces(ctx, nil)
		if err != nil {
			t.Fatal(err)
		}
		if len(faces) != want {
			t.Errorf("call %d: expected %d faces, got %d", i, want, len(faces))
		}
	}
}
