package audio

import (
	"io"
)

// SampleSink receives decoded samples as they stream past.
type SampleSink interface {
	Write(samples []int16)
}

// AnalyzingReader wraps a PCM s16le reader and feeds every sample to a sink.
// Reads pass through unchanged to the caller.
type AnalyzingReader struct {
	inner io.Reader
	sink  SampleSink
	carry []byte // odd trailing byte from the previous read
}

func NewAnalyzingReader(inner io.Reader, sink SampleSink) *AnalyzingReader {
	return &AnalyzingReader{inner: inner, sink: sink}
}

func (r *AnalyzingReader) Read(p []byte) (int, error) {
	n, err := r.inner.Read(p)
	if n > 0 && r.sink != nil {
		data := p[:n]
		if len(r.carry) > 0 {
			data = append(append([]byte{}, r.carry...), data...)
			r.carry = r.carry[:0]
		}
		if len(data)%2 == 1 {
			r.carry = append(r.carry, data[len(data)-1])
			data = data[:len(data)-1]
		}
		if len(data) > 0 {
			r.sink.Write(BytesToSamples(data))
		}
	}
	return n, err
}
