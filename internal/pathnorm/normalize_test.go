package pathnorm

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"unc share", `\\ts-server3\share\R06_JOB\plan\a.xdw`, "ts-server3/R06_JOB/plan/a.xdw"},
		{"s3 key", "documents/road/ts-server3/R06_JOB/plan/a.xdw", "ts-server3/R06_JOB/plan/a.xdw"},
		{"s3 uri drops bucket", "s3://doc-bucket/processed/structure/ts-server6/H22_JOB/b.pdf", "ts-server6/H22_JOB/b.pdf"},
		{"host case", "TS-SERVER7/Share/x.doc", "TS-SERVER7/x.doc"},
		{"host-n", "/mnt/nas/host-12/share/share/x.doc", "host-12/x.doc"},
		{"prefix no host", "documents/road/misc/c.pdf", "misc/c.pdf"},
		{"nested prefixes", "thumbnails/documents/x.jpg", "x.jpg"},
		{"prefix case", "Documents/Processed/z.txt", "z.txt"},
		{"plain relative", "a/b/c/file1.pdf", "a/b/c/file1.pdf"},
		{"double separators", "a//./b/ c /d.pdf", "a/b/c/d.pdf"},
		{"file scheme", "file:///home/u/docs/x.txt", "home/u/docs/x.txt"},
		{"not a host", "ts-serverX/a.pdf", "ts-serverX/a.pdf"},
		{"only prefix", "documents/processed", ""},
		{"empty", "", ""},
		{"blank", "   ", ""},
		{"separators only", `\\//\`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.raw); got != tt.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	samples := []string{
		`\\ts-server3\share\R06_JOB\plan\a.xdw`,
		"documents/road/ts-server3/share/share/x",
		"s3://bucket/documents/structure/ts-server6/y.pdf",
		"documents/documents/road/a.pdf",
		"https://example.com/a/b",
		"s3:/not-a-scheme/a",
		" a / . / b ",
		"ts-server3",
		"share/ts-server5/share",
		"..\\..\\x",
		"café/menu.pdf",
		"",
	}
	for _, p := range samples {
		once := Normalize(p)
		if twice := Normalize(once); twice != once {
			t.Fatalf("Normalize not idempotent for %q: %q then %q", p, once, twice)
		}
	}
}

func TestNormalizeUNCAndKeyAgree(t *testing.T) {
	unc := Normalize(`\\ts-server5\share\R03_JOB\図面\001.pdf`)
	key := Normalize("docuworks-converted/road/ts-server5/R03_JOB/図面/001.pdf")
	if unc != key {
		t.Fatalf("expected UNC path and object key to agree, got %q and %q", unc, key)
	}
}

func TestNewRejectsBadHostPattern(t *testing.T) {
	if _, err := New(Options{HostPattern: "("}); err == nil {
		t.Fatal("expected error for invalid host pattern")
	}
}

func TestCustomOptions(t *testing.T) {
	n := MustNew(Options{
		HostPattern:     `^nas\d$`,
		StoragePrefixes: []string{"bucket/raw"},
		ShareSegments:   []string{"public"},
	})
	if got := n.Normalize(`\\nas1\public\x\y.pdf`); got != "nas1/x/y.pdf" {
		t.Fatalf("unexpected custom host normalization %q", got)
	}
	if got := n.Normalize("bucket/raw/a.pdf"); got != "a.pdf" {
		t.Fatalf("unexpected custom prefix normalization %q", got)
	}
	if got := n.Normalize("documents/a.pdf"); got != "documents/a.pdf" {
		t.Fatalf("default prefixes should not apply, got %q", got)
	}
}

func TestInspect(t *testing.T) {
	loc := Default().Inspect(`\\ts-server6\share\H22_JOB\sub\a.pdf`)
	if loc.Host != "ts-server6" || loc.Category != "structure" || loc.RootFolder != "H22_JOB" {
		t.Fatalf("unexpected location %+v", loc)
	}
	loc = Default().Inspect("ts-server9/file.pdf")
	if loc.Host != "ts-server9" || loc.Category != "" || loc.RootFolder != "" {
		t.Fatalf("unexpected location for unmapped host %+v", loc)
	}
	if loc := Default().Inspect("a/b.pdf"); loc != (Location{}) {
		t.Fatalf("expected empty location, got %+v", loc)
	}
}

func TestUNCPath(t *testing.T) {
	got, ok := Default().UNCPath("documents/road/ts-server3/R06_JOB/a.xdw")
	if !ok || got != `\\ts-server3\share\R06_JOB\a.xdw` {
		t.Fatalf("UNCPath = (%q,%v)", got, ok)
	}
	if _, ok := Default().UNCPath("a/b.pdf"); ok {
		t.Fatal("expected no UNC path without a host segment")
	}
}
