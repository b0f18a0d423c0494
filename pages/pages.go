package pages

import (
	"fmt"

	"github.com/tsawler/pdfpipe/core"
)

// ObjectResolver interface for resolving indirect references
type ObjectResolver interface {
	Resolve(obj core.Object) (core.Object, error)
	ResolveDeep(obj core.Object) (core.Object, error)
	ResolveReference(ref core.IndirectRef) (core.Object, error)
}

// Catalog represents the PDF document catalog (root of document structure)
type Catalog struct {
	dict     core.Dict
	resolver ObjectResolver
}

// NewCatalog creates a new catalog from a dictionary
func NewCatalog(dict core.Dict, resolver ObjectResolver) *Catalog {
	return &Catalog{
		dict:     dict,
		resolver: resolver,
	}
}

// Type returns the catalog type (should be "Catalog")
func (c *Catalog) Type() string {
	if name, ok := c.dict.GetName("Type"); ok {
		return string(name)
	}
	return ""
}

// Version returns the /Version entry if present. It overrides the file
// header when it names a later version.
func (c *Catalog) Version() string {
	if name, ok := c.dict.GetName("Version"); ok {
		return string(name)
	}
	return ""
}

// PageTree returns the page tree rooted at the catalog's /Pages entry.
func (c *Catalog) PageTree() (*PageTree, error) {
	root := c.dict.Get("Pages")
	if root == nil {
		return nil, fmt.Errorf("catalog missing /Pages entry")
	}
	return NewPageTree(root, c.resolver), nil
}

// PageTree represents the PDF page tree. Pages are numbered from 1 in
// document order.
type PageTree struct {
	root     core.Object // reference or dictionary
	resolver ObjectResolver
	pages    []*Page // Cached flattened page list
}

// NewPageTree creates a page tree whose root is a /Pages dictionary or a
// reference to one.
func NewPageTree(root core.Object, resolver ObjectResolver) *PageTree {
	return &PageTree{
		root:     root,
		resolver: resolver,
	}
}

// Root returns the reference to the root /Pages node, if it is indirect.
func (t *PageTree) Root() (core.IndirectRef, bool) {
	ref, ok := t.root.(core.IndirectRef)
	return ref, ok
}

func (t *PageTree) rootDict() (core.Dict, error) {
	obj, err := t.resolver.Resolve(t.root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve page tree root: %w", err)
	}
	dict, ok := obj.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("invalid page tree root type: %T", obj)
	}
	return dict, nil
}

// Count returns the total number of pages declared by the root /Count.
func (t *PageTree) Count() (int, error) {
	root, err := t.rootDict()
	if err != nil {
		return 0, err
	}
	count, ok := root.GetInt("Count")
	if !ok {
		return 0, fmt.Errorf("page tree missing or invalid /Count: %v", root.Get("Count"))
	}
	return int(count), nil
}

// GetPage returns the page with the given number, counting from 1.
func (t *PageTree) GetPage(number int) (*Page, error) {
	pages, err := t.Pages()
	if err != nil {
		return nil, err
	}
	if number < 1 || number > len(pages) {
		return nil, fmt.Errorf("page %d out of range [1, %d]", number, len(pages))
	}
	return pages[number-1], nil
}

// Pages returns all pages as a slice
func (t *PageTree) Pages() ([]*Page, error) {
	if t.pages == nil {
		if err := t.loadPages(); err != nil {
			return nil, err
		}
	}
	return t.pages, nil
}

// Numbers maps the object number of every indirect page to its page number.
func (t *PageTree) Numbers() (map[int]int, error) {
	pages, err := t.Pages()
	if err != nil {
		return nil, err
	}
	numbers := make(map[int]int, len(pages))
	for _, p := range pages {
		if ref, ok := p.Ref(); ok {
			numbers[ref.Number] = p.Number()
		}
	}
	return numbers, nil
}

// loadPages traverses the page tree and builds the flattened page list
func (t *PageTree) loadPages() error {
	t.pages = make([]*Page, 0)
	visited := make(map[int]bool)
	if err := t.traversePageNode(t.root, nil, visited); err != nil {
		t.pages = nil
		return fmt.Errorf("failed to traverse page tree: %w", err)
	}
	return nil
}

// traversePageNode visits n, a reference or a dictionary.
// ancestors lists the enclosing /Pages nodes, nearest first.
func (t *PageTree) traversePageNode(n core.Object, ancestors []*pagesNode, visited map[int]bool) error {
	ref, indirect := n.(core.IndirectRef)
	if indirect {
		if visited[ref.Number] {
			return fmt.Errorf("page tree cycle at object %d", ref.Number)
		}
		visited[ref.Number] = true
	}

	obj, err := t.resolver.Resolve(n)
	if err != nil {
		return fmt.Errorf("failed to resolve page node: %w", err)
	}
	dict, ok := obj.(core.Dict)
	if !ok {
		return fmt.Errorf("invalid page node type: %T", obj)
	}

	typeName, ok := dict.GetName("Type")
	if !ok {
		// Some writers omit /Type on leaves.
		if dict.Has("Kids") {
			typeName = "Pages"
		} else {
			typeName = "Page"
		}
	}

	switch string(typeName) {
	case "Pages":
		kidsObj := dict.Get("Kids")
		if kidsObj == nil {
			return fmt.Errorf("Pages node missing /Kids entry")
		}
		kidsResolved, err := t.resolver.Resolve(kidsObj)
		if err != nil {
			return fmt.Errorf("failed to resolve /Kids: %w", err)
		}
		kids, ok := kidsResolved.(core.Array)
		if !ok {
			return fmt.Errorf("invalid /Kids type: %T", kidsResolved)
		}

		self := &pagesNode{dict: dict, ref: ref, indirect: indirect}
		chain := append([]*pagesNode{self}, ancestors...)
		for i, kid := range kids {
			if err := t.traversePageNode(kid, chain, visited); err != nil {
				return fmt.Errorf("kid %d: %w", i, err)
			}
		}

	case "Page":
		t.pages = append(t.pages, &Page{
			dict:      dict,
			ref:       ref,
			indirect:  indirect,
			number:    len(t.pages) + 1,
			ancestors: ancestors,
			resolver:  t.resolver,
		})

	default:
		return fmt.Errorf("unexpected page node type: %s", typeName)
	}

	return nil
}

// pagesNode is an intermediate /Pages node on the path to a page.
type pagesNode struct {
	dict     core.Dict
	ref      core.IndirectRef
	indirect bool
}

// Page represents a single PDF page
type Page struct {
	dict      core.Dict
	ref       core.IndirectRef
	indirect  bool
	number    int
	ancestors []*pagesNode // enclosing /Pages nodes, nearest first
	resolver  ObjectResolver
}

// Dict returns the page dictionary.
func (p *Page) Dict() core.Dict { return p.dict }

// Ref returns the page's object reference, if the page is indirect.
func (p *Page) Ref() (core.IndirectRef, bool) { return p.ref, p.indirect }

// Number returns the page number, counting from 1.
func (p *Page) Number() int { return p.number }

// Ancestors returns references to the enclosing /Pages nodes, parent
// first. It fails if any of them is a direct object.
func (p *Page) Ancestors() ([]core.IndirectRef, error) {
	refs := make([]core.IndirectRef, 0, len(p.ancestors))
	for i, a := range p.ancestors {
		if !a.indirect {
			return nil, fmt.Errorf("page %d: ancestor %d is not an indirect object", p.number, i)
		}
		refs = append(refs, a.ref)
	}
	return refs, nil
}

// Type returns the page type (should be "Page")
func (p *Page) Type() string {
	if name, ok := p.dict.GetName("Type"); ok {
		return string(name)
	}
	return ""
}

// inherited looks name up on the page, then on each ancestor in turn.
func (p *Page) inherited(name string) core.Object {
	if v := p.dict.Get(name); v != nil {
		return v
	}
	for _, a := range p.ancestors {
		if v := a.dict.Get(name); v != nil {
			return v
		}
	}
	return nil
}

// MediaBox returns the page media box [x1 y1 x2 y2]
// This is inheritable, so checks parent if not present
func (p *Page) MediaBox() ([]float64, error) {
	return p.getBox("MediaBox")
}

// CropBox returns the page crop box [x1 y1 x2 y2]
// This is inheritable, defaults to MediaBox if not present
func (p *Page) CropBox() ([]float64, error) {
	box, err := p.getBox("CropBox")
	if err != nil {
		return p.MediaBox()
	}
	return box, nil
}

// getBox retrieves a box attribute (inheritable)
func (p *Page) getBox(name string) ([]float64, error) {
	boxObj := p.inherited(name)
	if boxObj == nil {
		return nil, fmt.Errorf("%s not found", name)
	}

	boxResolved, err := p.resolver.Resolve(boxObj)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", name, err)
	}

	boxArr, ok := boxResolved.(core.Array)
	if !ok {
		return nil, fmt.Errorf("invalid %s type: %T", name, boxResolved)
	}
	if len(boxArr) != 4 {
		return nil, fmt.Errorf("invalid %s length: %d (expected 4)", name, len(boxArr))
	}

	box := make([]float64, 4)
	for i, elem := range boxArr {
		switch v := elem.(type) {
		case core.Int:
			box[i] = float64(v)
		case core.Real:
			box[i] = float64(v)
		default:
			return nil, fmt.Errorf("invalid %s element type: %T", name, elem)
		}
	}
	return box, nil
}

// Rotate returns the page rotation (0, 90, 180, or 270)
// This is inheritable
func (p *Page) Rotate() int {
	if rotate, ok := p.inherited("Rotate").(core.Int); ok {
		return int(rotate)
	}
	return 0
}

// Width returns the page width (from MediaBox)
func (p *Page) Width() (float64, error) {
	box, err := p.MediaBox()
	if err != nil {
		return 0, err
	}
	return box[2] - box[0], nil
}

// Height returns the page height (from MediaBox)
func (p *Page) Height() (float64, error) {
	box, err := p.MediaBox()
	if err != nil {
		return 0, err
	}
	return box[3] - box[1], nil
}
