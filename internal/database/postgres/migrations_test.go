package postgres

import "testing"

func TestGetPendingMigrationFiles(t *testing.T) {
	all, err := getPendingMigrationFiles(map[string]bool{})
	if err != nil {
		t.Fatalf("getPendingMigrationFiles() error: %v", err)
	}
	if len(all) == 0 || all[0] != "001_init.sql" {
		t.Fatalf("expected 001_init.sql first, got %v", all)
	}

	pending, err := getPendingMigrationFiles(map[string]bool{"001_init.sql": true})
	if err != nil {
		t.Fatalf("getPendingMigrationFiles() error: %v", err)
	}
	for _, f := range pending {
		if f == "001_init.sql" {
			t.Errorf("applied migration listed as pending: %v", pending)
		}
	}
	if len(pending) != len(all)-1 {
		t.Errorf("expected %d pending files, got %v", len(all)-1, pending)
	}
}
