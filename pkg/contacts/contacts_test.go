package contacts

import (
	"context"
	"errors"
	"testing"
)

func testDirectory() *MemoryDirectory {
	return NewMemoryDirectory(
		&Contact{ID: "1", Name: "张三", Phone: "13800000001", Labels: []string{"family"}},
		&Contact{ID: "2", Name: "李四", Phone: "13800000002"},
		&Contact{ID: "3", Name: "Alice Chen", Phone: "13800000003", Labels: []string{"doctor"}},
	)
}

func TestMemoryDirectory_Search(t *testing.T) {
	d := testDirectory()
	ctx := context.Background()

	tests := []struct {
		query  string
		wantID string
		wantErr bool
	}{
		{"张三", "1", false},
		{"李四", "2", false},
		{"alice chen", "3", false}, // case-insensitive exact
		{"Alice", "3", false},      // prefix
		{"doctor", "3", false},     // label
		{"family", "1", false},     // label
		{"王五", "", true},
		{"", "", true},
	}

	for _, tc := range tests {
		c, err := d.Search(ctx, tc.query)
		if tc.wantErr {
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("Search(%q) err = %v, want ErrNotFound", tc.query, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("Search(%q) unexpected error: %v", tc.query, err)
			continue
		}
		if c.ID != tc.wantID {
			t.Errorf("Search(%q) = contact %s, want %s", tc.query, c.ID, tc.wantID)
		}
	}
}

func TestMemoryDirectory_ByID(t *testing.T) {
	d := testDirectory()
	ctx := context.Background()

	c, err := d.ByID(ctx, "2")
	if err != nil {
		t.Fatalf("ByID: %v", err)
	}
	if c.Name != "李四" {
		t.Errorf("ByID(2).Name = %q, want 李四", c.Name)
	}

	if _, err := d.ByID(ctx, "99"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ByID(99) err = %v, want ErrNotFound", err)
	}
}

func TestMemoryDirectory_AddReplaces(t *testing.T) {
	d := testDirectory()
	d.Add(&Contact{ID: "1", Name: "张三三", Phone: "13900000001"})

	c, err := d.ByID(context.Background(), "1")
	if err != nil {
		t.Fatal(err)
	}
	if c.Name != "张三三" {
		t.Errorf("replaced contact name = %q, want 张三三", c.Name)
	}
}
