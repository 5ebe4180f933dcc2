package protocol

import (
	"bufio"
	"io"
	"strconv"
)

// WriteBatchResponse serializes the response: the length on its own line, then
// the nine echoed input arrays and the sixteen output arrays, one array per
// line, space-separated, in schema order. Every output field is written even
// when its governing flag was off (such fields hold the placeholder zero).
//
// Output is buffered and flushed once at the end so a downstream reader never
// observes a response interleaved with anything else.
func WriteBatchResponse(w io.Writer, resp *BatchResponse) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.WriteString(strconv.Itoa(resp.Request.Length)); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	for _, arr := range resp.Request.inputArrays() {
		if err := writeValueLine(bw, *arr); err != nil {
			return err
		}
	}

	for _, arr := range resp.outputArrays() {
		if err := writeValueLine(bw, *arr); err != nil {
			return err
		}
	}

	return bw.Flush()
}

func writeValueLine(bw *bufio.Writer, values []float64) error {
	for i, v := range values {
		if i > 0 {
			if err := bw.WriteByte(' '); err != nil {
				return err
			}
		}

		// Shortest decimal form that round-trips the exact float64 value
		if _, err := bw.WriteString(strconv.FormatFloat(v, 'g', -1, 64)); err != nil {
			return err
		}
	}

	return bw.WriteByte('\n')
}
