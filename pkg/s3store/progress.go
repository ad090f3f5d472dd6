package s3store

import (
	"errors"
	"io"
)

// progressReader counts bytes read from the upload body. The total is
// reported once the body hits EOF, since streamed bodies have no known size.
type progressReader struct {
	r      io.Reader
	fn     ProgressFunc
	loaded int64
}

func newProgressReader(r io.Reader, fn ProgressFunc) io.Reader {
	if fn == nil {
		return r
	}
	return &progressReader{r: r, fn: fn}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.loaded += int64(n)

	switch {
	case errors.Is(err, io.EOF):
		p.fn(Progress{Loaded: p.loaded, Total: p.loaded})
	case n > 0:
		p.fn(Progress{Loaded: p.loaded})
	}
	return n, err
}
