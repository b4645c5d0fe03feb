package offcache

import (
	"github.com/peakready/offcache/policy"
)

// Request is the worker's view of one outgoing application request.
type Request struct {
	Method string
	Path   string
	// Destination is what kind of resource the application is loading,
	// as reported by the host. Empty for plain data requests.
	Destination policy.Destination
}

// Key addresses a cache entry: exact method plus path.
func (r *Request) Key() string { return r.Method + " " + r.Path }

// Response is a captured response: status, headers and body as they were at
// write time. Cached responses are immutable once written except by being
// overwritten under the same key or deleted.
type Response struct {
	Status int               `json:"status" cbor:"1,keyasint" msgpack:"status"`
	Header map[string]string `json:"header,omitempty" cbor:"2,keyasint" msgpack:"header"`
	Body   []byte            `json:"body,omitempty" cbor:"3,keyasint" msgpack:"body"`
}

// OK reports whether the response carries a 2xx status.
func (r *Response) OK() bool { return r.Status >= 200 && r.Status < 300 }

// Clone returns a deep copy, so callers may mutate the result without
// touching what the worker cached.
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	out := &Response{Status: r.Status}
	if r.Header != nil {
		out.Header = make(map[string]string, len(r.Header))
		for k, v := range r.Header {
			out.Header[k] = v
		}
	}
	if r.Body != nil {
		out.Body = make([]byte, len(r.Body))
		copy(out.Body, r.Body)
	}
	return out
}
