package s3store

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// sniffLen is how many leading bytes AutoContentType inspects.
// It matches the detection window of mimetype.
const sniffLen = 3072

var utf8BOM = []byte("\xEF\xBB\xBF")

// Sniffer inspects the first bytes of a file and reports its content type.
// The second return value is false when the sniffer does not recognize the data.
type Sniffer func(head []byte) (string, bool)

// AutoContentType detects the content type from the file content.
// Binary formats with a known signature (PNG, JPEG, PDF, ZIP, ...) are
// recognized first, then SVG documents; anything else is sent as
// application/octet-stream.
var AutoContentType = NewAutoContentType(SniffBinary, SniffSVG)

// NewAutoContentType builds a ContentTypeFunc that reads the first chunk of the
// stream and asks each sniffer in turn. The returned body replays the consumed
// bytes followed by the rest of the stream.
func NewAutoContentType(sniffers ...Sniffer) ContentTypeFunc {
	return func(_ context.Context, _ *http.Request, f *File) (string, io.Reader, error) {
		head := make([]byte, sniffLen)
		n, err := io.ReadFull(f.Stream, head)
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return "", nil, err
		}
		head = head[:n]
		body := io.MultiReader(bytes.NewReader(head), f.Stream)

		for _, sniff := range sniffers {
			if contentType, ok := sniff(head); ok {
				return contentType, body, nil
			}
		}
		return OctetStream, body, nil
	}
}

// SniffBinary matches magic-number signatures. Text formats are left to the
// other sniffers since their detection is a guess rather than a signature match.
func SniffBinary(head []byte) (string, bool) {
	if len(head) == 0 {
		return "", false
	}

	detected := mimetype.Detect(head)
	if detected.Parent() == nil {
		// Root of the tree, nothing matched.
		return "", false
	}
	for m := detected; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return "", false
		}
	}

	contentType, _, _ := strings.Cut(detected.String(), ";")
	return strings.TrimSpace(contentType), true
}

// SniffSVG reports image/svg+xml when head is XML whose root element is svg.
// Only the prolog and the root start tag need to be present. A leading UTF-8
// byte order mark is ignored.
func SniffSVG(head []byte) (string, bool) {
	head = bytes.TrimPrefix(head, utf8BOM)
	dec := xml.NewDecoder(bytes.NewReader(head))
	dec.Strict = false

	for {
		tok, err := dec.Token()
		if err != nil {
			return "", false
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if strings.EqualFold(t.Name.Local, "svg") {
				return "image/svg+xml", true
			}
			return "", false
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return "", false
			}
		case xml.ProcInst, xml.Comment, xml.Directive:
		}
	}
}
