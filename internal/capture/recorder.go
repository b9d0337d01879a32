package capture

import (
	"context"
	"log/slog"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
)

// Kind is the method tag of a captured transaction.
type Kind int

const (
	// KindRequest marks a Network.requestWillBeSent event.
	KindRequest Kind = iota
	// KindResponse marks a Network.responseReceived event.
	KindResponse
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindResponse:
		return "response"
	default:
		return "unknown"
	}
}

// Entry is one captured network transaction event. The response body is not
// kept; it is fetched on demand through a BodyFetcher.
type Entry struct {
	RequestID string
	Kind      Kind
	URL       string
	Status    int64 // responses only
}

// BodyFetcher lazily retrieves the response body of a captured request.
type BodyFetcher interface {
	ResponseBody(ctx context.Context, requestID string) ([]byte, error)
}

// Recorder accumulates network events from a browser target. It is fed by
// chromedp.ListenTarget and read by the polling loops through Snapshot.
//
// While armed, the recorder ignores traffic until the main frame receives the
// response of its next document, so late requests of the page being left do
// not land in the new page's log.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
	armed   bool
	frame   cdp.FrameID
	loader  network.RequestID
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Listen is an event handler for chromedp.ListenTarget.
func (r *Recorder) Listen(ev any) {
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		if e.Request == nil {
			return
		}
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.armed {
			if e.Type == network.ResourceTypeDocument && e.FrameID == r.frame {
				r.loader = e.RequestID
			}
			return
		}
		r.entries = append(r.entries, Entry{RequestID: string(e.RequestID), Kind: KindRequest, URL: e.Request.URL})

	case *network.EventResponseReceived:
		if e.Response == nil {
			return
		}
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.armed {
			if r.loader == "" || e.RequestID != r.loader {
				return
			}
			r.armed, r.loader = false, ""
		}
		r.entries = append(r.entries, Entry{RequestID: string(e.RequestID), Kind: KindResponse, URL: e.Response.URL, Status: e.Response.Status})
	}
}

// Snapshot returns a copy of every entry recorded since the last Arm.
func (r *Recorder) Snapshot() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Arm drops all recorded entries and ignores traffic until frame receives a
// new document or Open is called. Sessions arm the recorder before each
// navigation.
func (r *Recorder) Arm(frame cdp.FrameID) {
	r.mu.Lock()
	n := len(r.entries)
	r.entries = nil
	r.armed, r.frame, r.loader = true, frame, ""
	r.mu.Unlock()
	slog.Debug("recorder: armed", "dropped", n, "frame", frame)
}

// Open stops ignoring traffic. Sessions call it once a navigation completed,
// in case the document response was missed.
func (r *Recorder) Open() {
	r.mu.Lock()
	r.armed, r.loader = false, ""
	r.mu.Unlock()
}
