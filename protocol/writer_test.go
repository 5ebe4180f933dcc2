package protocol

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeResponseForTest(length int) *BatchResponse {
	mono := func(start float64) []float64 {
		vals := make([]float64, length)
		for i := range vals {
			vals[i] = start + float64(i)
		}
		return vals
	}

	req := &BatchRequest{
		Length:     length,
		Altitude:   mono(100),
		DayOfYear:  mono(10),
		LocalTime:  mono(1),
		Latitude:   mono(-40),
		Longitude:  mono(20),
		F107:       mono(140),
		F107Mean:   mono(145),
		Kp1:        mono(2),
		Kp2:        mono(3),
		DtmDataDir: "/data/dtm/",
		UmDataDir:  "/data/um/",
	}

	resp := NewBatchResponse(req)
	for i := 0; i < length; i++ {
		resp.Dens[i] = 1.25e-12 + float64(i)*1e-14
		resp.Temp[i] = 800 + float64(i)
		resp.Wmm[i] = 16.5
		resp.Tinf[i] = 1000 + float64(i)
	}

	return resp
}

func TestWriteBatchResponse_LineLayout(t *testing.T) {
	resp := makeResponseForTest(3)

	var sb strings.Builder
	require.NoError(t, WriteBatchResponse(&sb, resp))

	lines := strings.Split(strings.TrimSuffix(sb.String(), "\n"), "\n")

	// 1 length line + 9 echoed inputs + 16 outputs
	require.Len(t, lines, 26)
	assert.Equal(t, "3", lines[0])

	// Every array line carries exactly length values
	for i, line := range lines[1:] {
		assert.Len(t, strings.Fields(line), 3, "line %d", i+2)
	}

	// Echoes come first, in schema order
	assert.Equal(t, "100 101 102", lines[1])
	assert.Equal(t, "10 11 12", lines[2])

	// First output array is dens
	densToks := strings.Fields(lines[10])
	assert.Equal(t, "1.25e-12", densToks[0])
}

func TestWriteBatchResponse_PlaceholderZerosForUnsetFlags(t *testing.T) {
	// Wind and uncertainty arrays stay at the placeholder zero when their
	// flags were off, but are still written
	resp := makeResponseForTest(2)

	var sb strings.Builder
	require.NoError(t, WriteBatchResponse(&sb, resp))

	lines := strings.Split(strings.TrimSuffix(sb.String(), "\n"), "\n")
	require.Len(t, lines, 26)

	// The last four lines are xwind, ywind, xwind_std, ywind_std
	for _, line := range lines[22:] {
		assert.Equal(t, "0 0", line)
	}
}

func TestWriteBatchResponse_RoundTripsThroughReader(t *testing.T) {
	resp := makeResponseForTest(2)
	resp.Request.ComputeWinds = true

	var sb strings.Builder
	require.NoError(t, WriteBatchResponse(&sb, resp))

	// The leading 10 lines of a response (length + nine inputs) followed by
	// flag and path lines form a valid request again
	lines := strings.Split(sb.String(), "\n")
	requestText := strings.Join(lines[:10], "\n") + "\nT F\n/data/dtm/\n/data/um/\n"

	req, err := ReadBatchRequest(strings.NewReader(requestText))
	require.NoError(t, err)

	assert.Equal(t, resp.Request.Length, req.Length)
	assert.Equal(t, resp.Request.Altitude, req.Altitude)
	assert.Equal(t, resp.Request.Kp2, req.Kp2)
}

func TestSchemaTableArity(t *testing.T) {
	req := &BatchRequest{}
	resp := &BatchResponse{Request: req}

	assert.Len(t, req.inputArrays(), len(InputFieldNames))
	assert.Len(t, resp.outputArrays(), len(OutputFieldNames))
}
