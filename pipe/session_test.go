package pipe

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/tsawler/pdfpipe/core"
	"github.com/tsawler/pdfpipe/docio"
	"github.com/tsawler/pdfpipe/internal/filters"
	"github.com/tsawler/pdfpipe/reader"
	"github.com/tsawler/pdfpipe/xref"
)

// docBuilder writes objects one after another and finishes the file with
// an index that points at them.
type docBuilder struct {
	buf   bytes.Buffer
	table *xref.Table
}

func newDoc(header string) *docBuilder {
	d := &docBuilder{table: xref.NewTable(xref.TextLayout)}
	d.buf.WriteString(header)
	d.table.Set(0, xref.Entry{Kind: xref.Free, Gen: 65535})
	return d
}

func (d *docBuilder) add(id int, body string) {
	d.table.Set(id, xref.Entry{Kind: xref.Used, Offset: int64(d.buf.Len())})
	fmt.Fprintf(&d.buf, "%d 0 obj\n%s\nendobj\n", id, body)
}

func (d *docBuilder) addObject(id int, obj core.Object) {
	d.table.Set(id, xref.Entry{Kind: xref.Used, Offset: int64(d.buf.Len())})
	d.buf.Write(core.AppendIndirect(nil, core.IndirectRef{Number: id}, obj))
}

func (d *docBuilder) text(t *testing.T, trailer core.Dict) []byte {
	t.Helper()
	d.table.Fill()
	trailer["Size"] = core.Int(d.table.Len())
	section, err := xref.EncodeText(d.table, trailer, int64(d.buf.Len()))
	if err != nil {
		t.Fatalf("EncodeText: %v", err)
	}
	d.buf.Write(section)
	return d.buf.Bytes()
}

func (d *docBuilder) stream(t *testing.T, id int, trailer core.Dict) []byte {
	t.Helper()
	d.table.Fill()
	section, err := xref.EncodeStream(d.table, trailer, core.IndirectRef{Number: id}, int64(d.buf.Len()), filters.NewRegistry())
	if err != nil {
		t.Fatalf("EncodeStream: %v", err)
	}
	d.buf.Write(section)
	return d.buf.Bytes()
}

// thingDoc holds a catalog, a one-page tree and objects 4..last of type
// Thing.
func thingDoc(t *testing.T, last int) []byte {
	d := newDoc("%PDF-1.4\n")
	d.add(1, "<< /Type /Catalog /Pages 2 0 R >>")
	d.add(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	d.add(3, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>")
	for id := 4; id <= last; id++ {
		d.add(id, fmt.Sprintf("<< /Type /Thing /N %d >>", id))
	}
	return d.text(t, core.Dict{"Root": core.IndirectRef{Number: 1}})
}

// packedDoc stores objects 4 and 5 in object stream 3 and indexes the file
// with an xref stream numbered 6.
func packedDoc(t *testing.T) []byte {
	t.Helper()
	header, body, err := core.EncodeObjectStream([]core.Member{
		{Number: 4, Object: core.Dict{"Title": core.String("packed")}},
		{Number: 5, Object: core.Int(7)},
	})
	if err != nil {
		t.Fatal(err)
	}
	objStm := &core.Stream{Dict: core.Dict{
		"Type":   core.Name("ObjStm"),
		"N":      core.Int(2),
		"First":  core.Int(len(header)),
		"Filter": core.Name("FlateDecode"),
	}}
	if err := objStm.SetData(filters.NewRegistry(), append(header, body...)); err != nil {
		t.Fatal(err)
	}

	d := newDoc("%PDF-1.5\n")
	d.add(1, "<< /Type /Catalog /Pages 2 0 R >>")
	d.add(2, "<< /Type /Pages /Kids [] /Count 0 >>")
	d.addObject(3, objStm)
	d.table.Set(4, xref.Entry{Kind: xref.Compressed, Offset: 3, Gen: 0})
	d.table.Set(5, xref.Entry{Kind: xref.Compressed, Offset: 3, Gen: 1})
	return d.stream(t, 6, core.Dict{
		"Root": core.IndirectRef{Number: 1},
		"Info": core.IndirectRef{Number: 4},
	})
}

func openSession(t *testing.T, in []byte, out *bytes.Buffer, opts ...Option) *Session {
	t.Helper()
	var w io.Writer
	if out != nil {
		w = out
	}
	s, err := Open(NewConfig(opts...), bytes.NewReader(in), int64(len(in)), w)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

// runPipe opens in, lets setup enqueue tasks and runs the pass.
func runPipe(t *testing.T, in []byte, setup func(*Session), opts ...Option) ([]byte, int) {
	t.Helper()
	var out bytes.Buffer
	s := openSession(t, in, &out, opts...)
	if setup != nil {
		setup(s)
	}
	n, err := s.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return out.Bytes(), n
}

func readBack(t *testing.T, data []byte) *reader.Reader {
	t.Helper()
	r, err := reader.NewReader(docio.New(bytes.NewReader(data), int64(len(data)), nil), reader.Config{})
	if err != nil {
		t.Fatalf("reading output: %v\n%s", err, data)
	}
	return r
}

func mustPanic(t *testing.T, fn func()) *ContractError {
	t.Helper()
	var got *ContractError
	func() {
		defer func() {
			r := recover()
			ce, ok := r.(*ContractError)
			if !ok {
				t.Fatalf("expected *ContractError panic, got %v", r)
			}
			got = ce
		}()
		fn()
	}()
	return got
}

func TestNoOpPass(t *testing.T) {
	d := newDoc("%PDF-1.4\n")
	d.add(1, "<< /Type /Catalog /Pages 2 0 R >>")
	d.add(2, "<< /Type /Pages /Kids [] /Count 0 >>")
	body := d.buf.Len()
	in := d.text(t, core.Dict{"Root": core.IndirectRef{Number: 1}})

	out, n := runPipe(t, in, nil)
	if n != 2 {
		t.Errorf("processed %d objects, want 2", n)
	}
	if !bytes.Equal(out[:body], in[:body]) {
		t.Errorf("object bytes changed:\n%q\nwant\n%q", out[:body], in[:body])
	}
	if !bytes.HasPrefix(out[body:], []byte("xref\n0 3\n")) {
		t.Errorf("expected a text index right after the objects, got %q", out[body:])
	}

	r := readBack(t, out)
	if r.Master().Family != xref.Text {
		t.Errorf("Family = %v, want table", r.Master().Family)
	}
	if size, _ := r.Trailer().GetInt("Size"); size != 3 {
		t.Errorf("Size = %d, want 3", size)
	}
	orig := readBack(t, in)
	if got, want := withoutSize(r.Trailer()), withoutSize(orig.Trailer()); !bytes.Equal(got, want) {
		t.Errorf("trailer = %s, want %s", got, want)
	}
	for id := 1; id <= 2; id++ {
		want, _ := orig.GetObject(id)
		got, err := r.GetObject(id)
		if err != nil {
			t.Fatalf("GetObject(%d): %v", id, err)
		}
		if !bytes.Equal(core.Serialize(got), core.Serialize(want)) {
			t.Errorf("object %d = %v, want %v", id, got, want)
		}
	}
}

// withoutSize serializes a trailer with /Size left out.
func withoutSize(trailer core.Dict) []byte {
	d := make(core.Dict, len(trailer))
	for k, v := range trailer {
		if k != "Size" {
			d[k] = v
		}
	}
	return core.Serialize(d)
}

func TestAppendObject(t *testing.T) {
	in := thingDoc(t, 4)
	var ref core.IndirectRef
	out, n := runPipe(t, in, func(s *Session) {
		o := s.Append(core.Dict{"Type": core.Name("Extra")})
		ref = o.Ref()
	})
	if ref.Number != 5 {
		t.Fatalf("appended object numbered %d, want 5", ref.Number)
	}
	if n != 5 {
		t.Errorf("processed %d objects, want 5", n)
	}

	r := readBack(t, out)
	if size, _ := r.Trailer().GetInt("Size"); size != 6 {
		t.Errorf("Size = %d, want 6", size)
	}
	last, _ := r.Master().Get(4)
	added, _ := r.Master().Get(5)
	if added.Kind != xref.Used || added.Offset <= last.Offset || added.Offset >= r.Master().StartXRef {
		t.Errorf("appended entry %v should lie between object 4 at %d and the index at %d",
			added, last.Offset, r.Master().StartXRef)
	}
	obj, err := r.GetObject(5)
	if err != nil {
		t.Fatal(err)
	}
	if typ, _ := obj.(core.Dict).GetName("Type"); typ != "Extra" {
		t.Errorf("object 5 = %v", obj)
	}
}

func TestCreatedObjectsReverseOrder(t *testing.T) {
	in := thingDoc(t, 4)
	out, _ := runPipe(t, in, func(s *Session) {
		s.Append(core.Int(1))
		s.Append(core.Int(2))
	})
	r := readBack(t, out)
	first, _ := r.Master().Get(5)
	second, _ := r.Master().Get(6)
	if second.Offset >= first.Offset {
		t.Errorf("object 6 at %d should be written before object 5 at %d", second.Offset, first.Offset)
	}
}

func TestSkipRestIsPerObject(t *testing.T) {
	in := thingDoc(t, 8)
	var ran []int
	runPipe(t, in, func(s *Session) {
		s.Enqueue(ByType("Thing"), func(o *Object) Result {
			if o.Number() == 7 {
				return SkipRest
			}
			return Continue
		})
		s.Enqueue(ByType("Thing"), func(o *Object) Result {
			ran = append(ran, o.Number())
			return Continue
		})
	})
	want := []int{4, 5, 6, 8}
	if fmt.Sprint(ran) != fmt.Sprint(want) {
		t.Errorf("second task ran for %v, want %v", ran, want)
	}
}

func TestTaskOrder(t *testing.T) {
	in := thingDoc(t, 5)
	var calls []string
	runPipe(t, in, func(s *Session) {
		for _, name := range []string{"a", "b", "c"} {
			name := name
			s.Enqueue(ByID(5), func(*Object) Result {
				calls = append(calls, name)
				return Continue
			})
		}
	})
	if fmt.Sprint(calls) != "[a b c]" {
		t.Errorf("tasks ran as %v, want [a b c]", calls)
	}
}

func TestEnqueueDuringRun(t *testing.T) {
	in := thingDoc(t, 6)
	fired := map[string]bool{}
	runPipe(t, in, func(s *Session) {
		s.Enqueue(ByID(4), func(o *Object) Result {
			s.Enqueue(ByID(1), func(*Object) Result { fired["committed"] = true; return Continue })
			s.Enqueue(ByID(4), func(*Object) Result { fired["current"] = true; return Continue })
			s.Enqueue(ByID(6), func(*Object) Result { fired["pending"] = true; return Continue })
			return RemoveSelf
		})
	})
	if fired["committed"] {
		t.Error("task enqueued for a committed object ran")
	}
	if !fired["current"] {
		t.Error("task enqueued for the current object did not run")
	}
	if !fired["pending"] {
		t.Error("task enqueued for a pending object did not run")
	}
}

func TestRemoveSelf(t *testing.T) {
	in := thingDoc(t, 7)
	count := 0
	runPipe(t, in, func(s *Session) {
		s.Enqueue(ByType("Thing"), func(*Object) Result {
			count++
			return RemoveSelf
		})
	})
	if count != 1 {
		t.Errorf("task ran %d times, want 1", count)
	}
}

func TestAbort(t *testing.T) {
	in := thingDoc(t, 6)
	var out bytes.Buffer
	s := openSession(t, in, &out)
	later := false
	s.Enqueue(ByID(4), func(*Object) Result { return Abort })
	s.Enqueue(ByID(5), func(*Object) Result { later = true; return Continue })

	if _, err := s.Run(); !errors.Is(err, ErrAborted) {
		t.Fatalf("Run() error = %v, want ErrAborted", err)
	}
	if later {
		t.Error("tasks ran after abort")
	}
	if bytes.Contains(out.Bytes(), []byte("startxref")) {
		t.Error("aborted output should have no index")
	}
	if _, err := s.Run(); !errors.Is(err, ErrFinished) {
		t.Errorf("second Run() error = %v, want ErrFinished", err)
	}
}

func TestEditObject(t *testing.T) {
	in := thingDoc(t, 5)
	out, _ := runPipe(t, in, func(s *Session) {
		s.Enqueue(ByID(4), func(o *Object) Result {
			d, _ := o.Dict()
			d["Edited"] = core.Bool(true)
			return Continue
		})
	})
	if !bytes.Contains(out, []byte("/N 5 >>")) {
		t.Error("untouched object 5 should pass through verbatim")
	}
	r := readBack(t, out)
	obj, err := r.GetObject(4)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := obj.(core.Dict).GetBool("Edited"); !v {
		t.Errorf("object 4 = %v, want /Edited true", obj)
	}
	if obj, _ := r.GetObject(5); obj.(core.Dict)["N"] != core.Int(5) {
		t.Errorf("object 5 = %v", obj)
	}
}

func TestDeleteObject(t *testing.T) {
	in := thingDoc(t, 5)
	out, n := runPipe(t, in, func(s *Session) {
		s.Enqueue(ByID(4), func(o *Object) Result {
			o.Delete()
			return Continue
		})
	})
	if n != 5 {
		t.Errorf("processed %d objects, want 5", n)
	}
	if bytes.Contains(out, []byte("/N 4")) {
		t.Error("deleted object still in output")
	}
	r := readBack(t, out)
	e, _ := r.Master().Get(4)
	if e.Kind != xref.Free || e.Gen != 1 {
		t.Errorf("entry 4 = %v, want free with generation 1", e)
	}
	if _, err := r.GetObject(4); !errors.Is(err, reader.ErrNotFound) {
		t.Errorf("GetObject(4) error = %v, want ErrNotFound", err)
	}
}

func TestStreamData(t *testing.T) {
	reg := filters.NewRegistry()
	content := &core.Stream{Dict: core.Dict{"Filter": core.Name("FlateDecode")}}
	if err := content.SetData(reg, []byte("BT /F1 12 Tf (Hello) Tj ET")); err != nil {
		t.Fatal(err)
	}
	d := newDoc("%PDF-1.4\n")
	d.add(1, "<< /Type /Catalog /Pages 2 0 R >>")
	d.add(2, "<< /Type /Pages /Kids [] /Count 0 >>")
	d.addObject(3, content)
	in := d.text(t, core.Dict{"Root": core.IndirectRef{Number: 1}})

	out, _ := runPipe(t, in, func(s *Session) {
		s.Enqueue(ByID(3), func(o *Object) Result {
			data, err := o.StreamData()
			if err != nil {
				t.Errorf("StreamData: %v", err)
				return Abort
			}
			if err := o.SetStreamData(bytes.ToUpper(data)); err != nil {
				t.Errorf("SetStreamData: %v", err)
			}
			return Continue
		})
	})

	r := readBack(t, out)
	obj, err := r.GetObject(3)
	if err != nil {
		t.Fatal(err)
	}
	data, err := obj.(*core.Stream).Decode(reg)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "BT /F1 12 TF (HELLO) TJ ET" {
		t.Errorf("content = %q", data)
	}
}

func TestCompressedMembers(t *testing.T) {
	in := packedDoc(t)
	sawInfo := false
	out, _ := runPipe(t, in, func(s *Session) {
		s.Enqueue(IsInfo(), func(o *Object) Result {
			sawInfo = o.Class() == Compressed
			return Continue
		})
		s.Enqueue(ByID(5), func(o *Object) Result {
			o.Set(core.Int(42))
			return Continue
		})
	})
	if !sawInfo {
		t.Error("info task did not run on the compressed info dictionary")
	}

	r := readBack(t, out)
	if r.Master().Family != xref.Binary {
		t.Errorf("Family = %v, want stream", r.Master().Family)
	}
	e, _ := r.Master().Get(5)
	if e.Kind != xref.Compressed || e.Container() != 3 || e.Index() != 1 {
		t.Errorf("entry 5 = %v, want compressed in 3 at 1", e)
	}
	if obj, err := r.GetObject(5); err != nil || obj != core.Int(42) {
		t.Errorf("object 5 = %v, %v; want 42", obj, err)
	}
	info, err := r.GetInfo()
	if err != nil {
		t.Fatal(err)
	}
	if title, _ := info.GetString("Title"); title != "packed" {
		t.Errorf("Title = %q, want packed", title)
	}
}

func TestDeleteCompressedPanics(t *testing.T) {
	s := openSession(t, packedDoc(t), nil)
	s.Enqueue(ByID(4), func(o *Object) Result {
		o.Delete()
		return Continue
	})
	ce := mustPanic(t, func() { s.Run() })
	if ce.Object != 4 || ce.Op != "delete" {
		t.Errorf("ContractError = %+v", ce)
	}
}

func TestSetStreamOnCompressedPanics(t *testing.T) {
	s := openSession(t, packedDoc(t), nil)
	s.Enqueue(ByID(5), func(o *Object) Result {
		o.Set(&core.Stream{Dict: core.Dict{}})
		return Continue
	})
	mustPanic(t, func() { s.Run() })
}

func TestMutabilityWindow(t *testing.T) {
	in := thingDoc(t, 5)
	s := openSession(t, in, nil)

	pending, err := s.Fetch(4)
	if err != nil {
		t.Fatal(err)
	}
	if pending.Phase() != Pending {
		t.Errorf("Phase() = %v before the run, want pending", pending.Phase())
	}
	pending.Value().(core.Dict)["Scratch"] = core.Int(1)
	if again, _ := s.Fetch(4); again.Value().(core.Dict).Has("Scratch") {
		t.Error("editing a pending value's copy leaked into the document")
	}
	mustPanic(t, func() { pending.Set(core.Null{}) })

	var current *Object
	s.Enqueue(ByID(4), func(o *Object) Result {
		f, err := s.Fetch(4)
		if err != nil || f != o {
			t.Errorf("Fetch during a task returned %p, %v; want the current object", f, err)
		}
		o.Value().(core.Dict)["Edited"] = core.Bool(true)
		current = o
		return Continue
	})
	if _, err := s.Run(); err != nil {
		t.Fatal(err)
	}

	if current.Phase() != Committed {
		t.Errorf("Phase() = %v after the run, want committed", current.Phase())
	}
	ce := mustPanic(t, func() { current.Set(core.Null{}) })
	if ce.Object != 4 {
		t.Errorf("ContractError.Object = %d, want 4", ce.Object)
	}
	mustPanic(t, func() { current.Delete() })

	committed, err := s.Fetch(4)
	if err != nil {
		t.Fatal(err)
	}
	if !committed.Value().(core.Dict).Has("Edited") {
		t.Error("Fetch after commit should see the written value")
	}
	if other, _ := s.Fetch(5); other.Phase() != Committed {
		t.Errorf("untouched object Phase() = %v, want committed", other.Phase())
	}
}

func TestFetchNotFound(t *testing.T) {
	s := openSession(t, thingDoc(t, 4), nil)
	for _, id := range []int{0, 99} {
		if _, err := s.Fetch(id); !errors.Is(err, ErrNotFound) {
			t.Errorf("Fetch(%d) error = %v, want ErrNotFound", id, err)
		}
	}
	if v, err := s.ResolveReference(core.IndirectRef{Number: 99}); err != nil || v != (core.Null{}) {
		t.Errorf("ResolveReference(99) = %v, %v; want null", v, err)
	}
}

func TestResolve(t *testing.T) {
	s := openSession(t, thingDoc(t, 4), nil)
	v, err := s.Resolve(core.IndirectRef{Number: 1})
	if err != nil {
		t.Fatal(err)
	}
	pages, ok := v.(core.Dict).GetDict("Pages")
	if !ok {
		t.Fatalf("catalog /Pages not resolved: %v", v)
	}
	if n, _ := pages.GetInt("Count"); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
	kids, _ := pages.GetArray("Kids")
	page, ok := kids[0].(core.Dict)
	if !ok {
		t.Fatalf("Kids[0] not resolved: %v", kids[0])
	}
	if page["Parent"] != (core.IndirectRef{Number: 2}) {
		t.Errorf("Parent = %v, want 2 0 R", page["Parent"])
	}
}

func TestRootAndPagePredicates(t *testing.T) {
	in := thingDoc(t, 4)
	got := map[string]int{}
	runPipe(t, in, func(s *Session) {
		s.Enqueue(IsRoot(), func(o *Object) Result { got["root"] = o.Number(); return Continue })
		s.Enqueue(ByPage(1), func(o *Object) Result { got["page1"] = o.Number(); return Continue })
		s.Enqueue(ByPage(2), func(o *Object) Result { got["page2"] = o.Number(); return Continue })
	})
	if got["root"] != 1 || got["page1"] != 3 {
		t.Errorf("root ran on %d, page 1 on %d; want 1 and 3", got["root"], got["page1"])
	}
	if _, ok := got["page2"]; ok {
		t.Error("task for a missing page ran")
	}
}

func TestTrailerTask(t *testing.T) {
	in := thingDoc(t, 4)
	out, _ := runPipe(t, in, func(s *Session) {
		s.Enqueue(MatchTrailer(), func(o *Object) Result {
			if o.Class() != Trailer {
				t.Errorf("Class() = %v, want trailer", o.Class())
			}
			d, _ := o.Dict()
			d["Custom"] = core.Name("yes")
			return Continue
		})
	})
	if !bytes.Contains(out, []byte("/Custom /yes")) {
		t.Error("trailer edit missing from output")
	}
}

func TestSetInfo(t *testing.T) {
	t.Run("new dictionary", func(t *testing.T) {
		out, _ := runPipe(t, thingDoc(t, 4), func(s *Session) {
			s.SetInfo("Title", "Quarterly Report")
			s.SetInfo("Author", "Zoë")
		})
		r := readBack(t, out)
		ref, ok := r.Trailer().GetIndirectRef("Info")
		if !ok || ref.Number != 5 {
			t.Fatalf("trailer /Info = %v, want 5 0 R", r.Trailer().Get("Info"))
		}
		info, err := r.GetInfo()
		if err != nil {
			t.Fatal(err)
		}
		title, _ := info.GetString("Title")
		author, _ := info.GetString("Author")
		if title.Text() != "Quarterly Report" || author.Text() != "Zoë" {
			t.Errorf("info = %v", info)
		}
	})

	t.Run("existing dictionary", func(t *testing.T) {
		d := newDoc("%PDF-1.4\n")
		d.add(1, "<< /Type /Catalog /Pages 2 0 R >>")
		d.add(2, "<< /Type /Pages /Kids [] /Count 0 >>")
		d.add(3, "<< /Producer (old) >>")
		in := d.text(t, core.Dict{"Root": core.IndirectRef{Number: 1}, "Info": core.IndirectRef{Number: 3}})

		out, _ := runPipe(t, in, func(s *Session) { s.SetInfo("Title", "New") })
		r := readBack(t, out)
		if size, _ := r.Trailer().GetInt("Size"); size != 4 {
			t.Errorf("Size = %d, want 4", size)
		}
		info, err := r.GetInfo()
		if err != nil {
			t.Fatal(err)
		}
		producer, _ := info.GetString("Producer")
		title, _ := info.GetString("Title")
		if producer != "old" || title.Text() != "New" {
			t.Errorf("info = %v", info)
		}
	})
}

func TestDocumentID(t *testing.T) {
	t.Run("none added by default", func(t *testing.T) {
		out, _ := runPipe(t, thingDoc(t, 4), nil)
		if id := readBack(t, out).Trailer().Get("ID"); id != nil {
			t.Errorf("/ID = %v, want none", id)
		}
	})

	t.Run("generated", func(t *testing.T) {
		out, _ := runPipe(t, thingDoc(t, 4), nil, WithAddID(true))
		id, ok := readBack(t, out).Trailer().GetArray("ID")
		if !ok || len(id) != 2 {
			t.Fatalf("/ID = %v", id)
		}
		a, _ := id[0].(core.String)
		b, _ := id[1].(core.String)
		if len(a) != 16 || a != b {
			t.Errorf("/ID = %v, want two equal 16-byte hashes", id)
		}
	})

	t.Run("first element kept", func(t *testing.T) {
		d := newDoc("%PDF-1.4\n")
		d.add(1, "<< /Type /Catalog /Pages 2 0 R >>")
		d.add(2, "<< /Type /Pages /Kids [] /Count 0 >>")
		in := d.text(t, core.Dict{
			"Root": core.IndirectRef{Number: 1},
			"ID":   core.Array{core.String("original"), core.String("original")},
		})
		out, _ := runPipe(t, in, nil)
		id, _ := readBack(t, out).Trailer().GetArray("ID")
		if len(id) != 2 || id[0] != core.String("original") || id[1] == core.String("original") {
			t.Errorf("/ID = %v, want the original first element and a fresh second", id)
		}
	})
}

func TestXRefFormat(t *testing.T) {
	tests := []struct {
		name   string
		in     func(*testing.T) []byte
		format Format
		want   xref.Family
	}{
		{"table stays table", func(t *testing.T) []byte { return thingDoc(t, 4) }, FormatAuto, xref.Text},
		{"stream stays stream", packedDoc, FormatAuto, xref.Binary},
		{"forced stream", func(t *testing.T) []byte { return thingDoc(t, 4) }, FormatStream, xref.Binary},
		{"compressed objects need a stream", packedDoc, FormatTable, xref.Binary},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _ := runPipe(t, tt.in(t), nil, WithXRefFormat(tt.format))
			r := readBack(t, out)
			if r.Master().Family != tt.want {
				t.Errorf("Family = %v, want %v", r.Master().Family, tt.want)
			}
			if _, err := r.GetCatalog(); err != nil {
				t.Errorf("GetCatalog: %v", err)
			}
		})
	}
}

func TestIncrementalUpdate(t *testing.T) {
	d := newDoc("%PDF-1.4\n")
	d.add(1, "<< /Type /Catalog /Pages 2 0 R >>")
	d.add(2, "<< /Type /Pages /Kids [] /Count 0 >>")
	d.add(3, "<< /Rev 1 >>")
	first := d.buf.Len()
	d.text(t, core.Dict{"Root": core.IndirectRef{Number: 1}})

	update := xref.NewTable(xref.TextLayout)
	update.Set(0, xref.Entry{Kind: xref.Free, Gen: 65535})
	update.Set(3, xref.Entry{Kind: xref.Used, Offset: int64(d.buf.Len())})
	fmt.Fprintf(&d.buf, "3 0 obj\n<< /Rev 2 >>\nendobj\n")
	section, err := xref.EncodeText(update, core.Dict{
		"Root": core.IndirectRef{Number: 1},
		"Size": core.Int(4),
		"Prev": core.Int(int64(first)),
	}, int64(d.buf.Len()))
	if err != nil {
		t.Fatal(err)
	}
	d.buf.Write(section)
	in := d.buf.Bytes()

	var revs []core.Object
	out, _ := runPipe(t, in, func(s *Session) {
		s.Enqueue(ByID(3), func(o *Object) Result {
			d, _ := o.Dict()
			revs = append(revs, d["Rev"])
			return Continue
		})
	})
	if len(revs) != 1 || revs[0] != core.Int(2) {
		t.Errorf("task saw %v, want only the newest revision", revs)
	}
	r := readBack(t, out)
	if len(r.Master().Sections) != 1 {
		t.Errorf("output has %d sections, want 1", len(r.Master().Sections))
	}
	if obj, _ := r.GetObject(3); obj.(core.Dict)["Rev"] != core.Int(2) {
		t.Errorf("object 3 = %v, want revision 2", obj)
	}
}

func TestReadOnlySession(t *testing.T) {
	s := openSession(t, thingDoc(t, 4), nil)
	n, err := s.Run()
	if err != nil || n != 4 {
		t.Errorf("Run() = %d, %v; want 4, nil", n, err)
	}
	// Enqueueing after the run is allowed and never fires.
	s.Enqueue(ByID(1), func(*Object) Result { t.Error("task ran after the pass"); return Continue })
	mustPanic(t, func() { s.Append(core.Null{}) })
}
