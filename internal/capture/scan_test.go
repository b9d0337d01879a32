package capture

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/stupside/kisskh/internal/series"
)

// fakeBodies serves response bodies by request id and counts fetches.
type fakeBodies struct {
	bodies  map[string]string
	failing map[string]bool
	fetched []string
}

func (f *fakeBodies) ResponseBody(_ context.Context, requestID string) ([]byte, error) {
	f.fetched = append(f.fetched, requestID)
	if f.failing[requestID] {
		return nil, errors.New("no resource with given identifier found")
	}
	body, ok := f.bodies[requestID]
	if !ok {
		return nil, nil
	}
	return []byte(body), nil
}

var rules = Rules{ConfigMarker: "Epconfig/", ManifestField: "HlsUrl"}

func response(id, url string, status int64) Entry {
	return Entry{RequestID: id, Kind: KindResponse, URL: url, Status: status}
}

func request(id, url string) Entry {
	return Entry{RequestID: id, Kind: KindRequest, URL: url}
}

func TestScanEpisodeListFindsSeriesPayload(t *testing.T) {
	entries := []Entry{
		request("1", "https://kisskh.co/api/DramaList/Drama/10652"),
		response("2", "https://ads.example.test/pixel", 200),
		response("3", "https://kisskh.co/api/DramaList/Drama/999", 200),
		response("4", "https://kisskh.co/api/DramaList/Drama/10652", 200),
	}
	fetch := &fakeBodies{bodies: map[string]string{
		"2": `<html>not json</html>`,
		"3": `{"id":999,"episodes":[{"id":1,"number":1}]}`,
		"4": `{"id":10652,"title":"Queen of Tears","episodes":[{"id":184428,"number":3},{"id":184427,"number":2},{"id":1,"number":null},{"id":184426,"number":1}]}`,
	}}

	got := ScanEpisodeList(context.Background(), entries, fetch, 10652)
	if len(got) != 3 {
		t.Fatalf("got %d episodes, want 3: %+v", len(got), got)
	}
	want := map[int]string{1: "184426", 2: "184427", 3: "184428"}
	for _, ep := range got {
		if want[ep.Number] != ep.ID {
			t.Fatalf("episode %d has id %q, want %q", ep.Number, ep.ID, want[ep.Number])
		}
	}
}

func TestScanEpisodeListIgnoresNoise(t *testing.T) {
	entries := []Entry{
		response("1", "https://kisskh.co/api/a", 200),
		response("2", "https://kisskh.co/api/b", 200),
		response("3", "https://kisskh.co/api/c", 404),
		response("4", "https://kisskh.co/api/d", 200),
		response("5", "https://kisskh.co/api/e", 200),
		response("6", "https://kisskh.co/api/f", 200),
		response("7", "https://kisskh.co/api/g", 200),
		request("8", "https://kisskh.co/api/h"),
	}
	fetch := &fakeBodies{
		bodies: map[string]string{
			"1": `{"id":10652`,
			"2": ``,
			"3": `{"id":10652,"episodes":[{"id":1,"number":1}]}`,
			"5": `{"id":"10652","episodes":[{"id":1,"number":1}]}`,
			"6": `{"id":10652,"episodes":"none"}`,
			"7": `[1,2,3]`,
			"8": `{"id":10652,"episodes":[{"id":1,"number":1}]}`,
		},
		failing: map[string]bool{"4": true},
	}

	if got := ScanEpisodeList(context.Background(), entries, fetch, 10652); len(got) != 0 {
		t.Fatalf("expected no episodes, got %+v", got)
	}
	for _, id := range fetch.fetched {
		if id == "3" || id == "8" {
			t.Fatalf("fetched body of non-success or request entry %s", id)
		}
	}
}

func TestScanEpisodeListKeepsOnlyWholePositiveNumbers(t *testing.T) {
	entries := []Entry{response("1", "https://kisskh.co/api/DramaList/Drama/10652", 200)}
	fetch := &fakeBodies{bodies: map[string]string{
		"1": `{"id":10652,"episodes":[{"id":1,"number":1},{"id":2,"number":1.5},{"id":3,"number":0},{"id":4,"number":-2},{"id":5,"number":1},{"id":6,"number":2.0}]}`,
	}}

	got := ScanEpisodeList(context.Background(), entries, fetch, 10652)
	want := []series.Episode{{Number: 1, ID: "1"}, {Number: 2, ID: "6"}}
	if !slices.Equal(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestScanEpisodeListRequiresExactSeriesID(t *testing.T) {
	entries := []Entry{response("1", "https://kisskh.co/api/DramaList/Drama/10652", 200)}
	fetch := &fakeBodies{bodies: map[string]string{
		"1": `{"id":10652.9,"episodes":[{"id":1,"number":1}]}`,
	}}

	if got := ScanEpisodeList(context.Background(), entries, fetch, 10652); got != nil {
		t.Fatalf("accepted payload with id 10652.9: %+v", got)
	}
}

func TestScanManifestDirectURLIsOrderIndependent(t *testing.T) {
	const manifest = "https://hls.cdn.test/hls07/10652/Ep1.v1_index.m3u8"
	noise := []Entry{
		request("1", "https://kisskh.co/api/DramaList/Drama/10652"),
		response("2", "https://analytics.test/collect", 204),
		response("3", "https://kisskh.co/api/DramaList/Epconfig/1", 200),
		{RequestID: "4", Kind: KindResponse},
	}

	for pos := 0; pos <= len(noise); pos++ {
		entries := make([]Entry, 0, len(noise)+1)
		entries = append(entries, noise[:pos]...)
		entries = append(entries, request("m", manifest))
		entries = append(entries, noise[pos:]...)

		got, ok := ScanManifest(context.Background(), entries, &fakeBodies{}, "184426", rules)
		if !ok || got != manifest {
			t.Fatalf("position %d: got (%q, %v), want %q", pos, got, ok, manifest)
		}
	}
}

func TestScanManifestReadsConfigPayload(t *testing.T) {
	entries := []Entry{response("9", "https://kisskh.co/api/DramaList/Epconfig/555", 200)}
	fetch := &fakeBodies{bodies: map[string]string{"9": `{"HlsUrl":"https://x.test/a.m3u8"}`}}

	got, ok := ScanManifest(context.Background(), entries, fetch, "555", rules)
	if !ok || got != "https://x.test/a.m3u8" {
		t.Fatalf("got (%q, %v), want https://x.test/a.m3u8", got, ok)
	}
}

func TestScanManifestIgnoresOtherEpisodes(t *testing.T) {
	entries := []Entry{
		response("1", "https://kisskh.co/api/DramaList/Epconfig/999", 200),
		response("2", "https://kisskh.co/api/DramaList/Epconfig/5550?x=1", 200),
		response("3", "https://kisskh.co/api/DramaList/Drama/10652", 200),
	}
	fetch := &fakeBodies{bodies: map[string]string{
		"1": `{"HlsUrl":"https://x.test/999.m3u8"}`,
		"2": `{"HlsUrl":"https://x.test/5550.m3u8"}`,
		"3": `{"id":10652}`,
	}}

	if got, ok := ScanManifest(context.Background(), entries, fetch, "555", rules); ok {
		t.Fatalf("expected no manifest, got %q", got)
	}
	if len(fetch.fetched) != 0 {
		t.Fatalf("fetched unrelated bodies: %v", fetch.fetched)
	}
}

func TestScanManifestSwallowsBadEntries(t *testing.T) {
	entries := []Entry{
		response("1", "https://kisskh.co/api/DramaList/Epconfig/555", 200),
		response("2", "https://kisskh.co/api/DramaList/Epconfig/555?retry=1", 200),
		response("3", "https://kisskh.co/api/DramaList/Epconfig/555?retry=2", 200),
		request("4", "https://kisskh.co/api/DramaList/Epconfig/555?retry=3"),
		response("5", "https://kisskh.co/api/DramaList/Epconfig/555?retry=4", 200),
	}
	fetch := &fakeBodies{
		bodies: map[string]string{
			"2": `not json`,
			"3": `{"HlsUrl":"https://x.test/a.mp4"}`,
			"5": `{"HlsUrl":"https://x.test/final.m3u8"}`,
		},
		failing: map[string]bool{"1": true},
	}

	got, ok := ScanManifest(context.Background(), entries, fetch, "555", rules)
	if !ok || got != "https://x.test/final.m3u8" {
		t.Fatalf("got (%q, %v), want https://x.test/final.m3u8", got, ok)
	}
}

func TestContainsIdentifier(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://k.test/Epconfig/555", true},
		{"https://k.test/Epconfig/555?a=1", true},
		{"https://k.test/Epconfig/555.png", true},
		{"https://k.test/Epconfig/5551", false},
		{"https://k.test/Epconfig/5551?Epconfig/555", true},
		{"https://k.test/Epconfig/555a", false},
	}
	for _, tt := range tests {
		if got := containsIdentifier(tt.url, "Epconfig/555"); got != tt.want {
			t.Fatalf("containsIdentifier(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}
