package pipe

import (
	"strconv"
	"strings"
	"testing"

	"fast_mcm/batcheval"
	"fast_mcm/mcm"
	"fast_mcm/protocol"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requestText(t *testing.T, length int, winds bool, uncertainty bool) string {
	t.Helper()

	boolTok := func(b bool) string {
		if b {
			return "T"
		}
		return "F"
	}

	join := func(start float64) string {
		toks := make([]string, length)
		for i := range toks {
			toks[i] = strconv.FormatFloat(start+float64(i)*10, 'g', -1, 64)
		}
		return strings.Join(toks, " ")
	}

	return strings.Join([]string{
		strconv.Itoa(length),
		join(100), // altitude
		join(10),  // day_of_year
		"12 " + strings.Repeat("13 ", length-1),          // local_time
		strings.TrimSpace(strings.Repeat("45 ", length)), // latitude
		join(20),  // longitude
		join(140), // f107
		join(145), // f107m
		strings.TrimSpace(strings.Repeat("2 ", length)), // kp1
		strings.TrimSpace(strings.Repeat("3 ", length)), // kp2
		boolTok(winds) + " " + boolTok(uncertainty),
		t.TempDir(),
		t.TempDir(),
	}, "\n") + "\n"
}

func TestRun_EndToEnd(t *testing.T) {
	input := requestText(t, 2, false, false)

	var out strings.Builder
	require.NoError(t, Run(strings.NewReader(input), &out, mcm.NewSurrogateModel()))

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, 26)

	assert.Equal(t, "2", lines[0])
	assert.Equal(t, "100 110", lines[1]) // altitude echo

	// Every echoed input and output array carries two values
	for i, line := range lines[1:] {
		toks := strings.Fields(line)
		require.Len(t, toks, 2, "line %d", i+2)

		for _, tok := range toks {
			_, err := strconv.ParseFloat(tok, 64)
			assert.NoError(t, err)
		}
	}

	// dens and temp are present and positive at both indices
	for _, lineIdx := range []int{10, 11} {
		for _, tok := range strings.Fields(lines[lineIdx]) {
			v, err := strconv.ParseFloat(tok, 64)
			require.NoError(t, err)
			assert.Greater(t, v, 0.0)
		}
	}

	// Wind arrays are still written, holding the placeholder zero
	assert.Equal(t, "0 0", lines[22])
}

func TestRun_Deterministic(t *testing.T) {
	input := requestText(t, 3, true, true)

	var out1, out2 strings.Builder
	require.NoError(t, Run(strings.NewReader(input), &out1, mcm.NewSurrogateModel()))
	require.NoError(t, Run(strings.NewReader(input), &out2, mcm.NewSurrogateModel()))

	assert.Equal(t, out1.String(), out2.String())
}

func TestRun_FormatErrorWritesNothing(t *testing.T) {
	input := "not_a_number\n"

	var out strings.Builder
	err := Run(strings.NewReader(input), &out, mcm.NewSurrogateModel())

	var formatErr *protocol.FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Empty(t, out.String())
}

func TestRun_InitErrorWritesNothing(t *testing.T) {
	input := requestText(t, 2, false, false)
	// Point the dtm path at a directory that does not exist
	lines := strings.Split(input, "\n")
	lines[11] = "/nonexistent/dtm"
	input = strings.Join(lines, "\n")

	var out strings.Builder
	err := Run(strings.NewReader(input), &out, mcm.NewSurrogateModel())

	var initErr *mcm.InitError
	require.ErrorAs(t, err, &initErr)
	assert.Empty(t, out.String())
}

func TestRun_EvalErrorCarriesIndexAndWritesNothing(t *testing.T) {
	input := requestText(t, 3, false, false)
	// Make the second altitude value out of domain
	lines := strings.Split(input, "\n")
	lines[1] = "100 -110 120"
	input = strings.Join(lines, "\n")

	var out strings.Builder
	err := Run(strings.NewReader(input), &out, mcm.NewSurrogateModel())

	var pointErr *batcheval.PointError
	require.ErrorAs(t, err, &pointErr)
	assert.Equal(t, 1, pointErr.Index)
	assert.Empty(t, out.String())
}
