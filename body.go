package fetchkit

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
)

// Body is a request body. The concrete variants are JSON, Text, Raw and
// *FormBody; a nil Body means no body is sent. Dispatch is explicit on the
// variant, which also decides whether the pipeline injects a JSON
// content-type: multipart bodies keep the boundary-bearing type produced by
// their encoder and never receive an injected one.
type Body interface {
	isBody()
}

// JSON is a body that is marshalled to JSON at send time.
type JSON struct {
	Value any
}

// Text is a plain text body sent verbatim.
type Text string

// Raw is a byte slice body sent verbatim.
type Raw []byte

func (JSON) isBody()      {}
func (Text) isBody()      {}
func (Raw) isBody()       {}
func (*FormBody) isBody() {}

// encodeBody converts a body variant into an io.Reader plus the content type
// intrinsic to the encoding. Only multipart bodies carry one; the JSON
// content-type for the other variants is injected during the header merge.
func encodeBody(b Body) (io.Reader, string, error) {
	switch v := b.(type) {
	case nil:
		return nil, "", nil
	case JSON:
		data, err := json.Marshal(v.Value)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), "", nil
	case Text:
		return strings.NewReader(string(v)), "", nil
	case Raw:
		return bytes.NewReader(v), "", nil
	case *FormBody:
		return v.encode()
	default:
		return nil, "", nil
	}
}
