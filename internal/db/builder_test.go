package db

import "testing"

func TestIndexBuilder_Simple(t *testing.T) {
	idx, err := NewIndex("test-idx").
		Prefix("doc:").
		Tag("category").
		Numeric("price").
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx.Name != "test-idx" {
		t.Errorf("name = %q, want test-idx", idx.Name)
	}
	if len(idx.Fields) != 2 {
		t.Fatalf("fields count = %d, want 2", len(idx.Fields))
	}
	if idx.Fields[0].Name != "category" || idx.Fields[0].Type != IndexFieldTag {
		t.Errorf("field[0] = %+v, want category TAG", idx.Fields[0])
	}
	if idx.Fields[1].Name != "price" || idx.Fields[1].Type != IndexFieldNumeric {
		t.Errorf("field[1] = %+v, want price NUMERIC", idx.Fields[1])
	}
}

func TestIndexBuilder_VectorHNSW(t *testing.T) {
	idx, err := NewIndex("hnsw-idx").
		Prefix("doc:").
		VectorHNSW("vec", 768, DistanceL2, 32, 400).
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f := idx.Fields[0]
	if f.Type != IndexFieldVector || f.VectorDim != 768 || f.VectorDistance != DistanceL2 {
		t.Errorf("unexpected vector field: %+v", f)
	}
	if f.VectorM != 32 || f.VectorEFConstruct != 400 {
		t.Errorf("unexpected HNSW params: M=%d EF=%d", f.VectorM, f.VectorEFConstruct)
	}
}

func TestIndexBuilder_Errors(t *testing.T) {
	tests := []struct {
		name string
		b    *IndexBuilder
	}{
		{"empty name", NewIndex("").Tag("a")},
		{"bad name", NewIndex("bad name").Tag("a")},
		{"no fields", NewIndex("idx")},
		{"duplicate", NewIndex("idx").Tag("a").Numeric("a")},
		{"zero dim", NewIndex("idx").VectorHNSW("v", 0, DistanceCosine, 16, 200)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.b.Build(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestProfileIndex(t *testing.T) {
	idx, err := ProfileIndex("vecrec:profiles:idx", "vecrec:profile:", &Schema{
		Dimensions: 1536, Distance: DistanceCosine, HNSWM: 16, EFConstruct: 200,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(idx.Prefixes) != 1 || idx.Prefixes[0] != "vecrec:profile:" {
		t.Errorf("unexpected prefixes: %v", idx.Prefixes)
	}

	types := map[string]IndexFieldType{}
	for _, f := range idx.Fields {
		types[f.Name] = f.Type
	}
	want := map[string]IndexFieldType{
		FieldTmdbID:      IndexFieldNumeric,
		FieldTitleID:     IndexFieldNumeric,
		FieldProfileType: IndexFieldTag,
		FieldSlot:        IndexFieldNumeric,
		FieldYear:        IndexFieldNumeric,
		FieldVector:      IndexFieldVector,
	}
	for name, typ := range want {
		if got, ok := types[name]; !ok || got != typ {
			t.Errorf("field %s = %v,%v want %v", name, got, ok, typ)
		}
	}
}

func TestIsValidIdentifier(t *testing.T) {
	valid := []string{"idx", "vecrec:profiles:idx", "a-b_c"}
	for _, s := range valid {
		if !IsValidIdentifier(s) {
			t.Errorf("%q should be valid", s)
		}
	}
	invalid := []string{"", "a b", "a*b", "a/b"}
	for _, s := range invalid {
		if IsValidIdentifier(s) {
			t.Errorf("%q should be invalid", s)
		}
	}
}

func TestError_Unwrap(t *testing.T) {
	inner := ErrKeyNotFound
	err := &Error{Op: OpGet, Err: inner}
	if err.Error() != "GET: db: key not found" {
		t.Errorf("unexpected message: %q", err.Error())
	}
	if err.Unwrap() != inner {
		t.Error("Unwrap must return the inner error")
	}
}
