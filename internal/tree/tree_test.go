package tree

import (
	"reflect"
	"testing"

	"github.com/kk-code-lab/seekr/internal/pathnorm"
	"github.com/kk-code-lab/seekr/internal/search"
)

func hit(id, p string) search.RawHit {
	return search.RawHit{ID: id, StoragePath: p}
}

func names(nodes []*Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Name)
	}
	return out
}

func TestBuildNestedScenario(t *testing.T) {
	nodes := NewProjector().Build([]search.RawHit{
		hit("1", "a/b/c/file1.pdf"),
		hit("2", "a/b/file2.pdf"),
	})
	if len(nodes) != 1 || nodes[0].Name != "a" || nodes[0].Kind != Folder {
		t.Fatalf("expected single root folder a, got %v", names(nodes))
	}
	b := nodes[0].Children[0]
	if b.Name != "b" {
		t.Fatalf("expected b under a, got %q", b.Name)
	}
	if got := names(b.Children); !reflect.DeepEqual(got, []string{"c", "file2.pdf"}) {
		t.Fatalf("expected [c file2.pdf], got %v", got)
	}
	if b.Children[0].Kind != Folder || b.Children[1].Kind != File {
		t.Fatalf("unexpected kinds under b")
	}
	leaf := b.Children[0].Children[0]
	if leaf.Name != "file1.pdf" || leaf.HitID != "1" || leaf.Path != "a/b/c/file1.pdf" {
		t.Fatalf("unexpected leaf %+v", leaf)
	}
	if nodes[0].Files != 2 || b.Children[0].Files != 1 {
		t.Fatalf("unexpected file counts a=%d c=%d", nodes[0].Files, b.Children[0].Files)
	}
}

func TestBuildLeavesReconstructNormalizedPath(t *testing.T) {
	hits := []search.RawHit{
		hit("1", `\\ts-server3\share\R06_JOB\plan\a.xdw`),
		hit("2", "documents/road/ts-server3/R06_JOB/b.pdf"),
		hit("3", "s3://bucket/documents/structure/ts-server6/H22/c.pdf"),
		hit("4", "misc//notes.txt"),
	}
	nodes := NewProjector().Build(hits)
	byID := map[string]string{}
	for _, leaf := range Leaves(nodes) {
		byID[leaf.HitID] = leaf.Path
	}
	for _, h := range hits {
		if got, want := byID[h.ID], pathnorm.Normalize(h.StoragePath); got != want {
			t.Fatalf("leaf for %s = %q, want %q", h.ID, got, want)
		}
	}
}

func TestBuildOrdersFoldersFirstThenLocale(t *testing.T) {
	nodes := NewProjector(WithLocale("en")).Build([]search.RawHit{
		hit("1", "root/zeta.pdf"),
		hit("2", "root/Alpha.pdf"),
		hit("3", "root/beta/x.pdf"),
		hit("4", "root/alpha.pdf"),
		hit("5", "root/file10.pdf"),
		hit("6", "root/file9.pdf"),
		hit("7", "root/Gamma/y.pdf"),
	})
	got := names(nodes[0].Children)
	want := []string{"beta", "Gamma", "alpha.pdf", "Alpha.pdf", "file9.pdf", "file10.pdf", "zeta.pdf"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestBuildSkipsSidecars(t *testing.T) {
	nodes := NewProjector().Build([]search.RawHit{
		hit("1", "a/plan.pdf"),
		hit("2", "a/plan.pdf.meta"),
		hit("3", "a/._plan.pdf"),
		{ID: "4", StoragePath: "a/x.bin", DisplayName: "Thumbs.db"},
	})
	if got := names(nodes[0].Children); !reflect.DeepEqual(got, []string{"plan.pdf"}) {
		t.Fatalf("expected only plan.pdf, got %v", got)
	}
}

func TestBuildUnknownFallback(t *testing.T) {
	nodes := NewProjector().Build([]search.RawHit{
		{ID: "1", StoragePath: "", DisplayName: "orphan/1.pdf"},
		{ID: "2", StoragePath: "documents/"},
		{ID: "3", StoragePath: "  ", DisplayName: "  "},
	})
	if len(nodes) != 1 || nodes[0].Name != UnknownFolder {
		t.Fatalf("expected only the unknown folder, got %v", names(nodes))
	}
	if got := names(nodes[0].Children); !reflect.DeepEqual(got, []string{"orphan_1.pdf"}) {
		t.Fatalf("unexpected unknown children %v", got)
	}
}

func TestBuildPromotesFileToFolder(t *testing.T) {
	nodes := NewProjector().Build([]search.RawHit{
		hit("1", "a/report"),
		hit("2", "a/report/page1.pdf"),
	})
	report := nodes[0].Children[0]
	if report.Kind != Folder || report.HitID != "" {
		t.Fatalf("expected report promoted to folder, got %+v", report)
	}
	if got := names(report.Children); !reflect.DeepEqual(got, []string{"page1.pdf"}) {
		t.Fatalf("unexpected children %v", got)
	}
}

func TestBuildEmpty(t *testing.T) {
	if nodes := NewProjector().Build(nil); len(nodes) != 0 {
		t.Fatalf("expected no nodes, got %d", len(nodes))
	}
}

func TestFlattenAndFind(t *testing.T) {
	nodes := NewProjector().Build([]search.RawHit{
		hit("1", "a/b/c/file1.pdf"),
		hit("2", "a/b/file2.pdf"),
		hit("3", "z.pdf"),
	})
	rows := Flatten(nodes, map[string]bool{"a": true, "a/b": true})
	var got []string
	for _, r := range rows {
		got = append(got, r.Node.Path)
	}
	want := []string{"a", "a/b", "a/b/c", "a/b/file2.pdf", "z.pdf"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if rows[2].Depth != 2 {
		t.Fatalf("expected depth 2 for a/b/c, got %d", rows[2].Depth)
	}

	if n := Find(nodes, "a/b/c/file1.pdf"); n == nil || n.HitID != "1" {
		t.Fatalf("Find did not locate file1.pdf")
	}
	if n := Find(nodes, "a/missing"); n != nil {
		t.Fatalf("expected nil for missing path")
	}
}

func TestAncestors(t *testing.T) {
	if got := Ancestors("a/b/c.pdf"); !reflect.DeepEqual(got, []string{"a", "a/b"}) {
		t.Fatalf("unexpected ancestors %v", got)
	}
	if got := Ancestors("top.pdf"); got != nil {
		t.Fatalf("expected no ancestors, got %v", got)
	}
}
