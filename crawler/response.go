package crawler

import (
	"mime"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/unicode"
)

// Response is a fetched document with its body decoded to text. It is an
// immutable value; the accessors never expose internal maps or slices.
type Response struct {
	status  int
	header  http.Header
	content string
	charset string
	markers []string

	truncated bool
}

// NewResponse decodes body and captures the status and headers. The
// character set comes from the Content-Type header, else from detection,
// else UTF-8; undecodable input falls back to UTF-8 with replacement
// characters. Construction never fails.
func NewResponse(status int, header http.Header, body []byte, markers []string) Response {
	h := header.Clone()
	if h == nil {
		h = http.Header{}
	}
	content, cs := decodeBody(body, h.Get("Content-Type"))
	return Response{
		status:  status,
		header:  h,
		content: content,
		charset: cs,
		markers: append([]string(nil), markers...),
	}
}

// Status returns the HTTP status code.
func (r Response) Status() int { return r.status }

// Content returns the decoded body.
func (r Response) Content() string { return r.content }

// Charset returns the name of the encoding the body was decoded with.
func (r Response) Charset() string { return r.charset }

// Truncated reports whether the body was cut at the configured size limit.
func (r Response) Truncated() bool { return r.truncated }

// Header returns the first value of the named response header.
func (r Response) Header(key string) string { return r.header.Get(key) }

// ContentType returns the media type of the response without parameters.
func (r Response) ContentType() string {
	mt, _, err := mime.ParseMediaType(r.header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return mt
}

// IsInvalid reports whether the decoded body contains any of the markers
// that identify an error page served with a success status.
func (r Response) IsInvalid() bool {
	for _, m := range r.markers {
		if m != "" && strings.Contains(r.content, m) {
			return true
		}
	}
	return false
}

func decodeBody(body []byte, contentType string) (string, string) {
	label := declaredCharset(contentType)
	if label == "" {
		if utf8.Valid(body) {
			return string(body), "utf-8"
		}
		label = detectCharset(body)
	}
	if label == "" {
		label = "utf-8"
	}

	enc, name := charset.Lookup(label)
	if enc == nil {
		return replaceInvalid(body), "utf-8"
	}
	if name == "utf-8" {
		if utf8.Valid(body) {
			return string(body), name
		}
		return replaceInvalid(body), name
	}
	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return replaceInvalid(body), "utf-8"
	}
	return string(out), name
}

func declaredCharset(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(params["charset"])
}

func detectCharset(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	res, err := chardet.NewTextDetector().DetectBest(body)
	if err != nil || res == nil {
		return ""
	}
	return res.Charset
}

func replaceInvalid(body []byte) string {
	out, err := unicode.UTF8.NewDecoder().Bytes(body)
	if err != nil {
		return strings.ToValidUTF8(string(body), "\uFFFD")
	}
	return string(out)
}
