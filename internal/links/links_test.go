package links

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"github.com/stupside/kisskh/internal/app"
	"github.com/stupside/kisskh/internal/series"
)

const overrideLink = "https://hls.cdnvideo11.shop/hls07/10652/Ep2.v1865_index.m3u8"

func TestApplyReplacesFallbackLink(t *testing.T) {
	episodes := series.Episodes{1: "184426", 2: "184427"}
	m := Map{
		1: "https://hls.test/10652/Ep1.m3u8",
		2: "https://kisskh.co/Drama/Queen-of-Tears/Episode-2?id=10652&ep=184427&page=0&pageSize=100",
	}

	applied := Builtin().Apply(10652, episodes, m)
	if len(applied) != 1 || applied[0].Number != 2 {
		t.Fatalf("unexpected applied list: %+v", applied)
	}
	if m[2] != overrideLink {
		t.Fatalf("episode 2 link = %q, want %q", m[2], overrideLink)
	}
	if m[1] != "https://hls.test/10652/Ep1.m3u8" {
		t.Fatalf("episode 1 changed to %q", m[1])
	}
}

func TestApplyNeverOverwritesManifest(t *testing.T) {
	episodes := series.Episodes{2: "184427"}
	m := Map{2: "https://other.cdn.test/fresh.m3u8"}

	if applied := Builtin().Apply(10652, episodes, m); len(applied) != 0 {
		t.Fatalf("expected no substitution, got %+v", applied)
	}
	if m[2] != "https://other.cdn.test/fresh.m3u8" {
		t.Fatalf("manifest link overwritten with %q", m[2])
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	o := Builtin().WithConfig([]app.OverrideConfig{
		{SeriesID: 10652, EpisodeID: "184428", URL: "https://mirror.test/page-not-manifest"},
	})
	episodes := series.Episodes{2: "184427", 3: "184428"}
	m := Map{2: "https://kisskh.co/ep2", 3: "https://kisskh.co/ep3"}

	o.Apply(10652, episodes, m)
	first := Map{2: m[2], 3: m[3]}

	o.Apply(10652, episodes, m)
	for n, link := range first {
		if m[n] != link {
			t.Fatalf("episode %d changed on second apply: %q -> %q", n, link, m[n])
		}
	}
}

func TestApplyIgnoresOtherSeriesAndUnrecorded(t *testing.T) {
	episodes := series.Episodes{2: "184427"}
	m := Map{2: "https://kisskh.co/ep2"}
	if applied := Builtin().Apply(1, episodes, m); applied != nil {
		t.Fatalf("override applied to wrong series: %+v", applied)
	}

	empty := Map{}
	Builtin().Apply(10652, episodes, empty)
	if len(empty) != 0 {
		t.Fatalf("override created an unrecorded episode: %+v", empty)
	}
}

func TestWithConfigDoesNotMutateBuiltin(t *testing.T) {
	base := Builtin()
	extended := base.WithConfig([]app.OverrideConfig{{SeriesID: 10652, EpisodeID: "184427", URL: "https://x.test/y.m3u8"}})
	if base[10652]["184427"] != overrideLink {
		t.Fatal("builtin table mutated")
	}
	if extended[10652]["184427"] != "https://x.test/y.m3u8" {
		t.Fatal("configured entry did not win")
	}
}

func TestStoreWritesArtifacts(t *testing.T) {
	sc := series.Context{ID: 10652, Name: "Queen of Tears: Special", TargetURL: "https://kisskh.co/Drama/Queen-of-Tears?id=10652"}
	store := NewStore(t.TempDir(), sc)

	if err := store.Lock(); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	defer store.Unlock()

	if filepath.Base(store.Dir()) != "Queen_of_Tears__Special" {
		t.Fatalf("unexpected dir %q", store.Dir())
	}

	m := Map{10: "https://hls.test/10.m3u8", 2: "https://kisskh.co/ep2", 1: "https://hls.test/1.m3u8"}
	path, err := store.WriteLinks(m)
	if err != nil {
		t.Fatalf("WriteLinks: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read links: %v", err)
	}
	want := "https://hls.test/1.m3u8\nhttps://kisskh.co/ep2\nhttps://hls.test/10.m3u8\n"
	if string(data) != want {
		t.Fatalf("links file = %q, want %q", data, want)
	}

	episodes := series.Episodes{1: "a", 2: "b", 10: "j"}
	sumPath, err := store.WriteSummary(sc, episodes, m)
	if err != nil {
		t.Fatalf("WriteSummary: %v", err)
	}
	raw, err := os.ReadFile(sumPath)
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	var got Summary
	if err := toml.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if got.SeriesID != 10652 || len(got.Episodes) != 3 {
		t.Fatalf("unexpected summary: %+v", got)
	}
	if got.Episodes[1].Number != 2 || got.Episodes[1].Kind != "HTML PAGE (FALLBACK)" || got.Episodes[1].EpisodeID != "b" {
		t.Fatalf("unexpected episode 2 entry: %+v", got.Episodes[1])
	}
}

func TestStoreLockIsExclusive(t *testing.T) {
	base := t.TempDir()
	sc := series.Context{Name: "Moving"}

	first := NewStore(base, sc)
	if err := first.Lock(); err != nil {
		t.Fatalf("first Lock: %v", err)
	}
	defer first.Unlock()

	second := NewStore(base, sc)
	if err := second.Lock(); !errors.Is(err, ErrLocked) {
		t.Fatalf("second Lock error = %v, want ErrLocked", err)
	}
}

func TestRenderTagsKinds(t *testing.T) {
	out := Render(Map{1: "https://hls.test/1.m3u8", 2: "https://kisskh.co/ep2"}, false)
	lines := strings.Split(out, "\n")
	var ep1, ep2 string
	for _, l := range lines {
		switch {
		case strings.Contains(l, "hls.test/1.m3u8"):
			ep1 = l
		case strings.Contains(l, "kisskh.co/ep2"):
			ep2 = l
		}
	}
	if !strings.Contains(ep1, "STREAM (M3U8)") {
		t.Fatalf("episode 1 row missing stream tag: %q", ep1)
	}
	if !strings.Contains(ep2, "HTML PAGE (FALLBACK)") {
		t.Fatalf("episode 2 row missing fallback tag: %q", ep2)
	}
}
