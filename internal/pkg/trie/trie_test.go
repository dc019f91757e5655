package trie

import (
	"reflect"
	"testing"
)

func TestInsertAndSearch(t *testing.T) {
	tr := NewTrie()
	for _, k := range []string{"app", "apple", "banana", "apple"} {
		tr.Insert(k, 0)
	}

	t.Run("SearchPrefix 'app'", func(t *testing.T) {
		got := tr.SearchPrefix("app", 5)
		exp := []string{"app", "apple"}
		if !reflect.DeepEqual(got, exp) {
			t.Errorf("SearchPrefix(\"app\") = %v; want %v", got, exp)
		}
	})

	t.Run("SearchPrefix 'ban'", func(t *testing.T) {
		got := tr.SearchPrefix("ban", 5)
		exp := []string{"banana"}
		if !reflect.DeepEqual(got, exp) {
			t.Errorf("SearchPrefix(\"ban\") = %v; want %v", got, exp)
		}
	})

	t.Run("Search non-existent prefix", func(t *testing.T) {
		if got := tr.SearchPrefix("xyz", 5); got != nil {
			t.Errorf("SearchPrefix(\"xyz\") = %v; want nil", got)
		}
	})
}

func TestSearchPrefix_RanksByHits(t *testing.T) {
	tr := NewTrie()
	tr.Insert("Patel Traders", 1)
	tr.Insert("Patel Dairy", 7)
	tr.Insert("Pan House", 3)
	tr.Insert("Patel", 0)

	got := tr.SearchPrefix("pa", 3)
	exp := []string{"Patel Dairy", "Pan House", "Patel Traders"}
	if !reflect.DeepEqual(got, exp) {
		t.Errorf("SearchPrefix(\"pa\") = %v; want %v", got, exp)
	}

	got = tr.SearchPrefix("PATEL", 5)
	exp = []string{"Patel Dairy", "Patel Traders", "Patel"}
	if !reflect.DeepEqual(got, exp) {
		t.Errorf("SearchPrefix(\"PATEL\") = %v; want %v", got, exp)
	}
}

func TestSearchPrefix_Gujarati(t *testing.T) {
	tr := NewTrie()
	tr.Insert("દીપ", 2)
	tr.Insert("દીપક", 1)

	got := tr.SearchPrefix("દી", 5)
	exp := []string{"દીપ", "દીપક"}
	if !reflect.DeepEqual(got, exp) {
		t.Errorf("SearchPrefix(\"દી\") = %v; want %v", got, exp)
	}
}

func TestInsert_AccumulatesHitsKeepsDisplay(t *testing.T) {
	tr := NewTrie()
	tr.Insert("Shah", 1)
	tr.Insert("SHAH", 2)

	if got := tr.SearchPrefix("s", 5); !reflect.DeepEqual(got, []string{"Shah"}) {
		t.Errorf("SearchPrefix(\"s\") = %v; want [Shah]", got)
	}
	if h := tr.hits("shah"); h != 3 {
		t.Errorf("hits = %d; want 3", h)
	}
}

func TestInsert_IgnoresBlank(t *testing.T) {
	tr := NewTrie()
	tr.Insert("   ", 1)
	if len(tr.Root.Children) != 0 {
		t.Errorf("blank key must not be inserted")
	}
}

func TestRemove(t *testing.T) {
	tr := NewTrie()
	for _, k := range []string{"app", "apple", "appol"} {
		tr.Insert(k, 0)
	}

	t.Run("Remove existing leaf 'apple'", func(t *testing.T) {
		if err := tr.Remove("apple"); err != nil {
			t.Fatalf("Remove(\"apple\") error: %v", err)
		}
		got := tr.SearchPrefix("app", 5)
		exp := []string{"app", "appol"}
		if !reflect.DeepEqual(got, exp) {
			t.Errorf("After Remove apple, SearchPrefix(\"app\") = %v; want %v", got, exp)
		}
	})

	t.Run("Remove existing prefix 'app'", func(t *testing.T) {
		if err := tr.Remove("app"); err != nil {
			t.Fatalf("Remove(\"app\") error: %v", err)
		}
		got := tr.SearchPrefix("app", 5)
		exp := []string{"appol"}
		if !reflect.DeepEqual(got, exp) {
			t.Errorf("After Remove app, SearchPrefix(\"app\") = %v; want %v", got, exp)
		}
	})

	t.Run("Remove non-existent key", func(t *testing.T) {
		if err := tr.Remove("nonexistent"); err == nil {
			t.Errorf("Remove(\"nonexistent\") = nil; want error")
		}
	})
}

func TestTrie_Update_CarriesHits(t *testing.T) {
	tr := NewTrie()
	tr.Insert("apple", 4)
	tr.Insert("banana", 1)

	if err := tr.Update("apple", "apricot"); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if rst := tr.SearchPrefix("apr", 5); !reflect.DeepEqual(rst, []string{"apricot"}) {
		t.Errorf("SearchPrefix(apr) = %v; want [apricot]", rst)
	}
	if h := tr.hits("apricot"); h != 4 {
		t.Errorf("hits(apricot) = %d; want 4", h)
	}
	if rst := tr.SearchPrefix("app", 5); rst != nil {
		t.Errorf("SearchPrefix(app) = %v; want nil", rst)
	}
	if err := tr.Update("missing", "x"); err == nil {
		t.Errorf("Update of missing key should fail")
	}
}
