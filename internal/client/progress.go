package client

import (
	"io"
	"sync/atomic"
)

// progressReader reports how many bytes of a body of known size have been
// consumed by the transport.
type progressReader struct {
	r     io.Reader
	total int64
	sent  atomic.Int64
	fn    func(sent, total int64)
}

func newProgressReader(r io.Reader, total int64, fn func(sent, total int64)) *progressReader {
	return &progressReader{r: r, total: total, fn: fn}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		sent := p.sent.Add(int64(n))
		if p.fn != nil {
			p.fn(sent, p.total)
		}
	}
	return n, err
}

// Percent converts a byte count into a whole percentage, capped at ceiling.
func Percent(sent, total int64, ceiling int) int {
	if total <= 0 {
		return 0
	}
	pct := int((sent*100 + total/2) / total)
	return min(pct, ceiling)
}
