package dataset

import (
	"strings"
	"testing"
	"testing/fstest"
)

func TestAllReturnsDatasetsInPublishingOrder(t *testing.T) {
	all, err := All()
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	wantTables := []string{
		"unichain_sepolia_general_metrics",
		"unichain_sepolia_new_and_returning_eoas",
		"unichain_sepolia_new_and_returning_deployers",
		"unichain_sepolia_gas_metrics",
		"unichain_sepolia_gas_guzzlers",
		"unichain_sepolia_gas_spenders",
	}
	if len(all) != len(wantTables) {
		t.Fatalf("len(All()) = %d", len(all))
	}
	for i, descriptor := range all {
		if descriptor.TableName != wantTables[i] {
			t.Fatalf("all[%d].TableName = %q, want %q", i, descriptor.TableName, wantTables[i])
		}
		if descriptor.Title == "" {
			t.Fatalf("all[%d] has empty title", i)
		}
		if !strings.Contains(strings.ToLower(descriptor.SQL), "select") {
			t.Fatalf("all[%d].SQL does not look like a query: %q", i, descriptor.SQL)
		}
	}
}

func TestGasRankingQueriesAreBounded(t *testing.T) {
	all, err := All()
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	for _, name := range []string{"gas_guzzlers", "gas_spenders"} {
		descriptor, ok := Find(all, name)
		if !ok {
			t.Fatalf("Find(%q) not found", name)
		}
		if !strings.Contains(descriptor.SQL, "LIMIT 10000") {
			t.Fatalf("%s query lost its LIMIT clause", name)
		}
	}
}

func TestLoadFailsOnMissingSQL(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/general_metrics.sql": &fstest.MapFile{Data: []byte("SELECT 1")},
	}
	if _, err := load(fsys); err == nil {
		t.Fatal("expected error for missing dataset sql")
	}
}

func TestSelectPreservesPublishingOrder(t *testing.T) {
	all, err := All()
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	selected, err := Select(all, []string{"gas_spenders", " general_metrics"})
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if len(selected) != 2 || selected[0].Name != "general_metrics" || selected[1].Name != "gas_spenders" {
		t.Fatalf("Select() = %+v", selected)
	}

	everything, err := Select(all, nil)
	if err != nil || len(everything) != len(all) {
		t.Fatalf("Select(nil) = %d, err = %v", len(everything), err)
	}

	if _, err := Select(all, []string{"gas_burners"}); err == nil {
		t.Fatal("expected error for unknown dataset")
	}
}
