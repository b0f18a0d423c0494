package pages

import (
	"fmt"
	"testing"

	"github.com/tsawler/pdfpipe/core"
)

// mockResolver is a mock ObjectResolver for testing
type mockResolver struct {
	objects map[int]core.Object
}

func newMockResolver() *mockResolver {
	return &mockResolver{
		objects: make(map[int]core.Object),
	}
}

func (m *mockResolver) AddObject(num int, obj core.Object) {
	m.objects[num] = obj
}

func (m *mockResolver) Resolve(obj core.Object) (core.Object, error) {
	if ref, ok := obj.(core.IndirectRef); ok {
		return m.ResolveReference(ref)
	}
	return obj, nil
}

func (m *mockResolver) ResolveDeep(obj core.Object) (core.Object, error) {
	return m.Resolve(obj)
}

func (m *mockResolver) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	obj, ok := m.objects[ref.Number]
	if !ok {
		return nil, fmt.Errorf("object %d not found", ref.Number)
	}
	return obj, nil
}

func letter() core.Array {
	return core.Array{core.Int(0), core.Int(0), core.Int(612), core.Int(792)}
}

// nestedTree builds root 1 -> {20 -> {10, 11}, 21 -> {12, 13}}.
func nestedTree() *mockResolver {
	r := newMockResolver()
	for id := 10; id <= 13; id++ {
		r.AddObject(id, core.Dict{"Type": core.Name("Page")})
	}
	r.AddObject(20, core.Dict{
		"Type":     core.Name("Pages"),
		"Count":    core.Int(2),
		"Kids":     core.Array{core.IndirectRef{Number: 10}, core.IndirectRef{Number: 11}},
		"MediaBox": letter(),
	})
	r.AddObject(21, core.Dict{
		"Type":  core.Name("Pages"),
		"Count": core.Int(2),
		"Kids":  core.Array{core.IndirectRef{Number: 12}, core.IndirectRef{Number: 13}},
	})
	r.AddObject(1, core.Dict{
		"Type":     core.Name("Pages"),
		"Count":    core.Int(4),
		"Kids":     core.Array{core.IndirectRef{Number: 20}, core.IndirectRef{Number: 21}},
		"MediaBox": core.Array{core.Int(0), core.Int(0), core.Int(100), core.Int(200)},
		"Rotate":   core.Int(90),
	})
	return r
}

func TestCatalog(t *testing.T) {
	resolver := nestedTree()
	catalog := NewCatalog(core.Dict{
		"Type":    core.Name("Catalog"),
		"Version": core.Name("1.7"),
		"Pages":   core.IndirectRef{Number: 1},
	}, resolver)

	if catalog.Type() != "Catalog" {
		t.Errorf("expected Type=Catalog, got %s", catalog.Type())
	}
	if catalog.Version() != "1.7" {
		t.Errorf("expected Version=1.7, got %s", catalog.Version())
	}

	tree, err := catalog.PageTree()
	if err != nil {
		t.Fatalf("failed to get page tree: %v", err)
	}
	if root, ok := tree.Root(); !ok || root.Number != 1 {
		t.Errorf("Root() = %v, %v; want 1 0 R", root, ok)
	}

	if _, err := NewCatalog(core.Dict{}, resolver).PageTree(); err == nil {
		t.Error("expected error for catalog without /Pages")
	}
}

func TestPageTreeFlatStructure(t *testing.T) {
	resolver := newMockResolver()
	resolver.AddObject(10, core.Dict{"Type": core.Name("Page"), "MediaBox": letter()})
	resolver.AddObject(11, core.Dict{"Type": core.Name("Page"), "MediaBox": letter()})
	resolver.AddObject(12, core.Dict{"Type": core.Name("Page"), "MediaBox": letter()})

	pagesRoot := core.Dict{
		"Type":  core.Name("Pages"),
		"Count": core.Int(3),
		"Kids": core.Array{
			core.IndirectRef{Number: 10},
			core.IndirectRef{Number: 11},
			core.IndirectRef{Number: 12},
		},
	}

	tree := NewPageTree(pagesRoot, resolver)

	count, err := tree.Count()
	if err != nil {
		t.Fatalf("failed to get count: %v", err)
	}
	if count != 3 {
		t.Errorf("expected count=3, got %d", count)
	}

	pages, err := tree.Pages()
	if err != nil {
		t.Fatalf("failed to get pages: %v", err)
	}
	if len(pages) != 3 {
		t.Errorf("expected 3 pages, got %d", len(pages))
	}

	page, err := tree.GetPage(3)
	if err != nil {
		t.Fatalf("failed to get page 3: %v", err)
	}
	if ref, ok := page.Ref(); !ok || ref.Number != 12 {
		t.Errorf("page 3 ref = %v, want 12 0 R", ref)
	}
	if _, ok := tree.Root(); ok {
		t.Error("direct root should not report a reference")
	}
}

func TestPageTreeNumbersAndAncestors(t *testing.T) {
	tree := NewPageTree(core.IndirectRef{Number: 1}, nestedTree())

	numbers, err := tree.Numbers()
	if err != nil {
		t.Fatalf("Numbers() error = %v", err)
	}
	want := map[int]int{10: 1, 11: 2, 12: 3, 13: 4}
	if len(numbers) != len(want) {
		t.Fatalf("Numbers() = %v, want %v", numbers, want)
	}
	for id, n := range want {
		if numbers[id] != n {
			t.Errorf("object %d is page %d, want %d", id, numbers[id], n)
		}
	}

	page, err := tree.GetPage(3)
	if err != nil {
		t.Fatal(err)
	}
	ancestors, err := page.Ancestors()
	if err != nil {
		t.Fatal(err)
	}
	if len(ancestors) != 2 || ancestors[0].Number != 21 || ancestors[1].Number != 1 {
		t.Errorf("Ancestors() = %v, want [21 0 R 1 0 R]", ancestors)
	}
}

func TestPageAncestorsDirectNode(t *testing.T) {
	resolver := newMockResolver()
	resolver.AddObject(10, core.Dict{"Type": core.Name("Page")})
	inner := core.Dict{"Type": core.Name("Pages"), "Count": core.Int(1), "Kids": core.Array{core.IndirectRef{Number: 10}}}
	resolver.AddObject(1, core.Dict{"Type": core.Name("Pages"), "Count": core.Int(1), "Kids": core.Array{inner}})

	page, err := NewPageTree(core.IndirectRef{Number: 1}, resolver).GetPage(1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := page.Ancestors(); err == nil {
		t.Error("expected error for direct /Pages ancestor")
	}
}

func TestPageInheritance(t *testing.T) {
	tree := NewPageTree(core.IndirectRef{Number: 1}, nestedTree())

	tests := []struct {
		page   int
		width  float64
		height float64
	}{
		{1, 612, 792}, // from parent 20
		{3, 100, 200}, // from root
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("page %d", tt.page), func(t *testing.T) {
			page, err := tree.GetPage(tt.page)
			if err != nil {
				t.Fatal(err)
			}
			w, err := page.Width()
			if err != nil {
				t.Fatal(err)
			}
			h, _ := page.Height()
			if w != tt.width || h != tt.height {
				t.Errorf("size = %vx%v, want %vx%v", w, h, tt.width, tt.height)
			}
			if page.Rotate() != 90 {
				t.Errorf("Rotate() = %d, want 90", page.Rotate())
			}
			crop, err := page.CropBox()
			if err != nil {
				t.Fatal(err)
			}
			if crop[2] != tt.width {
				t.Errorf("CropBox should default to MediaBox, got %v", crop)
			}
		})
	}
}

func TestPageBoxErrors(t *testing.T) {
	tests := []struct {
		name string
		box  core.Object
	}{
		{"missing", nil},
		{"wrong length", core.Array{core.Int(0), core.Int(0)}},
		{"wrong element", core.Array{core.Int(0), core.Int(0), core.Name("x"), core.Int(1)}},
		{"not an array", core.Int(4)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dict := core.Dict{"Type": core.Name("Page")}
			if tt.box != nil {
				dict["MediaBox"] = tt.box
			}
			root := core.Dict{"Type": core.Name("Pages"), "Count": core.Int(1), "Kids": core.Array{dict}}
			page, err := NewPageTree(root, newMockResolver()).GetPage(1)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := page.MediaBox(); err == nil {
				t.Error("expected MediaBox error")
			}
		})
	}
}

func TestPageTreeErrors(t *testing.T) {
	t.Run("out of range", func(t *testing.T) {
		tree := NewPageTree(core.IndirectRef{Number: 1}, nestedTree())
		for _, n := range []int{0, 5, -1} {
			if _, err := tree.GetPage(n); err == nil {
				t.Errorf("GetPage(%d): expected error", n)
			}
		}
	})

	t.Run("cycle", func(t *testing.T) {
		r := newMockResolver()
		r.AddObject(1, core.Dict{"Type": core.Name("Pages"), "Count": core.Int(1), "Kids": core.Array{core.IndirectRef{Number: 2}}})
		r.AddObject(2, core.Dict{"Type": core.Name("Pages"), "Count": core.Int(1), "Kids": core.Array{core.IndirectRef{Number: 1}}})
		if _, err := NewPageTree(core.IndirectRef{Number: 1}, r).Pages(); err == nil {
			t.Error("expected cycle error")
		}
	})

	t.Run("missing kid", func(t *testing.T) {
		r := newMockResolver()
		r.AddObject(1, core.Dict{"Type": core.Name("Pages"), "Count": core.Int(1), "Kids": core.Array{core.IndirectRef{Number: 9}}})
		if _, err := NewPageTree(core.IndirectRef{Number: 1}, r).Pages(); err == nil {
			t.Error("expected error for unresolvable kid")
		}
	})

	t.Run("missing count", func(t *testing.T) {
		root := core.Dict{"Type": core.Name("Pages"), "Kids": core.Array{}}
		if _, err := NewPageTree(root, newMockResolver()).Count(); err == nil {
			t.Error("expected error for missing /Count")
		}
	})

	t.Run("unexpected type", func(t *testing.T) {
		root := core.Dict{"Type": core.Name("Pages"), "Count": core.Int(1), "Kids": core.Array{core.Dict{"Type": core.Name("Font")}}}
		if _, err := NewPageTree(root, newMockResolver()).Pages(); err == nil {
			t.Error("expected error for non-page kid")
		}
	})
}

func TestPageTreeUntypedNodes(t *testing.T) {
	leaf := core.Dict{"MediaBox": letter()}
	root := core.Dict{"Count": core.Int(1), "Kids": core.Array{leaf}}
	pages, err := NewPageTree(root, newMockResolver()).Pages()
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(pages))
	}
	if _, ok := pages[0].Ref(); ok {
		t.Error("direct page should not report a reference")
	}
}
