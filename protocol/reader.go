package protocol

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// ReadBatchRequest parses one complete batch request from the stream:
//
//	<length>
//	<nine lines of length whitespace-separated reals, schema order>
//	<compute_winds> <compute_uncertainty>   (Fortran logical tokens)
//	<dtm data dir, one line>
//	<um data dir, one line>
//
// Each input field occupies one line carrying exactly length values, which is
// what lets a short line be reported against the right field instead of
// silently shifting every later token. The logical tokens may share a line or
// sit on one line each. Parsing is purely stream consumption, no model work
// happens here.
func ReadBatchRequest(r io.Reader) (*BatchRequest, error) {
	lr := &lineReader{br: bufio.NewReader(r)}

	lengthLine, err := lr.nextNonBlankLine()
	if err != nil {
		return nil, &FormatError{Field: "length", Msg: "missing length line"}
	}

	lengthToks := strings.Fields(lengthLine)
	if len(lengthToks) != 1 {
		return nil, &FormatError{Field: "length", Msg: "expected a single integer token"}
	}

	length, err := strconv.Atoi(lengthToks[0])
	if err != nil {
		return nil, &FormatError{Field: "length", Msg: "not an integer: '" + lengthToks[0] + "'"}
	}
	if length <= 0 {
		return nil, &FormatError{Field: "length", Msg: "must be a positive integer, got " + lengthToks[0]}
	}

	req := &BatchRequest{Length: length}

	for fieldIdx, arr := range req.inputArrays() {
		fieldName := InputFieldNames[fieldIdx]

		line, err := lr.nextNonBlankLine()
		if err != nil {
			return nil, &FormatError{Field: fieldName, Position: 1, Msg: "stream ended before field was read"}
		}

		toks := strings.Fields(line)
		if len(toks) < length {
			return nil, &FormatError{
				Field:    fieldName,
				Position: len(toks) + 1,
				Msg:      "expected " + strconv.Itoa(length) + " values, got " + strconv.Itoa(len(toks)),
			}
		}
		if len(toks) > length {
			return nil, &FormatError{
				Field:    fieldName,
				Position: length + 1,
				Msg:      "expected " + strconv.Itoa(length) + " values, got " + strconv.Itoa(len(toks)),
			}
		}

		values := make([]float64, length)
		for i, tok := range toks {
			v, err := parseReal(tok)
			if err != nil {
				return nil, &FormatError{Field: fieldName, Position: i + 1, Msg: "not a real number: '" + tok + "'"}
			}
			values[i] = v
		}

		*arr = values
	}

	boolToks, err := lr.collectTokens(2)
	if err != nil {
		return nil, &FormatError{Field: "compute_winds", Msg: "missing boolean tokens"}
	}

	if req.ComputeWinds, err = parseLogical(boolToks[0], "compute_winds"); err != nil {
		return nil, err
	}
	if req.ComputeUncertainty, err = parseLogical(boolToks[1], "compute_uncertainty_std"); err != nil {
		return nil, err
	}

	if req.DtmDataDir, err = lr.pathLine("dtm_data_path"); err != nil {
		return nil, err
	}
	if req.UmDataDir, err = lr.pathLine("um_data_path"); err != nil {
		return nil, err
	}

	return req, nil
}

// parseReal parses a token as float64, accepting the Fortran 'd' exponent
// marker ("1.5d-3") in addition to the usual 'e'.
func parseReal(tok string) (float64, error) {
	if strings.ContainsAny(tok, "dD") {
		tok = strings.Map(func(r rune) rune {
			switch r {
			case 'd':
				return 'e'
			case 'D':
				return 'E'
			}
			return r
		}, tok)
	}

	return strconv.ParseFloat(tok, 64)
}

// parseLogical interprets one token in Fortran logical lexical form.
func parseLogical(tok string, fieldName string) (bool, error) {
	switch strings.ToUpper(strings.Trim(tok, ".")) {
	case "T", "TRUE":
		return true, nil
	case "F", "FALSE":
		return false, nil
	}

	return false, &FormatError{Field: fieldName, Msg: "not a logical value: '" + tok + "'"}
}

type lineReader struct {
	br *bufio.Reader
}

// nextLine returns the next line without its line ending. io.EOF is only
// returned once the stream is exhausted and no text remains.
func (lr *lineReader) nextLine() (string, error) {
	line, err := lr.br.ReadString('\n')
	trimmed := strings.TrimRight(line, "\r\n")
	if err != nil && err != io.EOF {
		return "", err
	}
	if err == io.EOF && trimmed == "" {
		return "", io.EOF
	}

	return trimmed, nil
}

func (lr *lineReader) nextNonBlankLine() (string, error) {
	for {
		line, err := lr.nextLine()
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(line) != "" {
			return line, nil
		}
	}
}

// collectTokens gathers exactly n whitespace-separated tokens from one or more
// non-blank lines.
func (lr *lineReader) collectTokens(n int) ([]string, error) {
	toks := make([]string, 0, n)
	for len(toks) < n {
		line, err := lr.nextNonBlankLine()
		if err != nil {
			return nil, err
		}
		toks = append(toks, strings.Fields(line)...)
	}

	if len(toks) > n {
		toks = toks[:n]
	}

	return toks, nil
}

// pathLine reads one path, preserving embedded whitespace but trimming the
// ends.
func (lr *lineReader) pathLine(fieldName string) (string, error) {
	line, err := lr.nextNonBlankLine()
	if err != nil {
		return "", &FormatError{Field: fieldName, Msg: "missing path line"}
	}

	return strings.TrimSpace(line), nil
}
