package pipe

import (
	"fmt"

	"github.com/tsawler/pdfpipe/core"
)

// SetInfo sets a text entry of the document information dictionary. When
// the document has none, or it has already been written, a new one is
// appended and the trailer is pointed at it.
func (s *Session) SetInfo(key, value string) {
	text := core.NewTextString(value)
	if s.info > 0 && !s.committed(s.info) {
		s.Enqueue(ByID(s.info), func(o *Object) Result {
			if d, ok := o.Dict(); ok {
				d[key] = text
			}
			return RemoveSelf
		})
		return
	}
	if s.newInfo != nil && s.newInfo.phase == Current {
		s.newInfo.value.(core.Dict)[key] = text
		return
	}

	info := core.Dict{}
	if s.info > 0 {
		if o, err := s.Fetch(s.info); err == nil {
			if d, ok := o.Dict(); ok {
				info = d
			}
		}
	}
	info[key] = text
	s.newInfo = s.Append(info)
	ref := s.newInfo.Ref()
	s.Enqueue(MatchTrailer(), func(o *Object) Result {
		o.value.(core.Dict)["Info"] = ref
		return RemoveSelf
	})
}

// InsertPage adds page so that it becomes page number at, counting from 1;
// at may be one past the last page to append. The page is created with
// Append and its /Parent, the parent's /Kids and the /Count of every
// enclosing /Pages node are updated as the traversal reaches them.
//
// InsertPage panics when at is out of range or when a /Pages node it must
// update has already been written.
func (s *Session) InsertPage(at int, page core.Dict) (*Object, error) {
	tree, err := s.rd.PageTree()
	if err != nil {
		return nil, fmt.Errorf("insert page: %w", err)
	}
	pages, err := tree.Pages()
	if err != nil {
		return nil, fmt.Errorf("insert page: %w", err)
	}
	count := len(pages)
	if at < 1 || at > count+1 {
		violation("insert page", 0, fmt.Sprintf("page %d outside 1..%d", at, count+1))
	}

	var chain []core.IndirectRef
	var anchor core.IndirectRef
	after := false
	if count == 0 {
		root, ok := tree.Root()
		if !ok {
			return nil, fmt.Errorf("insert page: page tree root is not an indirect object")
		}
		chain = []core.IndirectRef{root}
	} else {
		idx := at - 1
		if at == count+1 {
			idx, after = count-1, true
		}
		ref, ok := pages[idx].Ref()
		if !ok {
			return nil, fmt.Errorf("insert page: page %d is not an indirect object", idx+1)
		}
		anchor = ref
		if chain, err = pages[idx].Ancestors(); err != nil {
			return nil, fmt.Errorf("insert page: %w", err)
		}
	}

	parent := chain[0]
	for _, ref := range chain {
		if s.committed(ref.Number) {
			violation("insert page", ref.Number, "page tree node already written")
		}
	}
	pv, err := s.rd.GetObject(parent.Number)
	if err != nil {
		return nil, fmt.Errorf("insert page: parent: %w", err)
	}
	if d, ok := pv.(core.Dict); !ok {
		return nil, fmt.Errorf("insert page: parent %s is not a dictionary", parent)
	} else if _, ok := d.Get("Kids").(core.Array); !ok {
		return nil, fmt.Errorf("insert page: parent %s has no direct /Kids array", parent)
	}

	dict := core.Clone(page).(core.Dict)
	if dict == nil {
		dict = core.Dict{}
	}
	dict["Type"] = core.Name("Page")
	dict["Parent"] = parent
	o := s.Append(dict)
	ref := o.Ref()

	s.Enqueue(ByID(parent.Number), func(p *Object) Result {
		d, _ := p.Dict()
		kids, _ := d.Get("Kids").(core.Array)
		pos := len(kids)
		for i, k := range kids {
			if r, ok := k.(core.IndirectRef); ok && r == anchor {
				pos = i
				if after {
					pos++
				}
				break
			}
		}
		kids = append(kids, nil)
		copy(kids[pos+1:], kids[pos:])
		kids[pos] = ref
		d["Kids"] = kids
		return RemoveSelf
	})
	for _, anc := range chain {
		s.Enqueue(ByID(anc.Number), func(p *Object) Result {
			if d, ok := p.Dict(); ok {
				n, _ := d.GetInt("Count")
				d["Count"] = n + 1
			}
			return RemoveSelf
		})
	}
	s.log.Debug("page inserted", "page", at, "object", ref.Number, "parent", parent.Number)
	return o, nil
}
