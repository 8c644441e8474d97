package migrations

import "testing"

func TestEmbeddedMigrationsParse(t *testing.T) {
	names, err := Names()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 1 || names[0] != "1_exports.sql" {
		t.Fatalf("unexpected migrations %v", names)
	}
}
