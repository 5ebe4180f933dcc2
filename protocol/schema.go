package protocol

import "fmt"

// Field order of the text wire format. The reader consumes the input fields in
// this order and the writer echoes them back in the same order, so a caller can
// resynchronize records purely by position. Keep this table as the single
// source of truth for ordering - never spell the order out a second time in
// reader or writer code.
var InputFieldNames = []string{
	"altitude",
	"day_of_year",
	"local_time",
	"latitude",
	"longitude",
	"f107",
	"f107m",
	"kp1",
	"kp2",
}

// Output arrays follow the echoed inputs, one array per line, in this order.
var OutputFieldNames = []string{
	"dens",
	"temp",
	"wmm",
	"d_H",
	"d_He",
	"d_O",
	"d_N2",
	"d_O2",
	"d_N",
	"tinf",
	"dens_unc",
	"dens_std",
	"xwind",
	"ywind",
	"xwind_std",
	"ywind_std",
}

// BatchRequest is one fully parsed evaluation request. All nine input slices
// have exactly Length elements.
type BatchRequest struct {
	Length int

	Altitude  []float64
	DayOfYear []float64
	LocalTime []float64
	Latitude  []float64
	Longitude []float64
	F107      []float64
	F107Mean  []float64
	Kp1       []float64
	Kp2       []float64

	// Batch-wide flags, they cannot vary per point
	ComputeWinds       bool
	ComputeUncertainty bool

	DtmDataDir string
	UmDataDir  string
}

// inputArrays returns pointers to the nine input slices, index-aligned with
// InputFieldNames.
func (r *BatchRequest) inputArrays() []*[]float64 {
	return []*[]float64{
		&r.Altitude,
		&r.DayOfYear,
		&r.LocalTime,
		&r.Latitude,
		&r.Longitude,
		&r.F107,
		&r.F107Mean,
		&r.Kp1,
		&r.Kp2,
	}
}

// Validate checks the structural invariant that every input slice has exactly
// Length elements. Requests produced by ReadBatchRequest satisfy this by
// construction, but requests assembled from JSON payloads may not.
func (r *BatchRequest) Validate() error {
	if r.Length <= 0 {
		return &FormatError{Field: "length", Msg: "must be a positive integer"}
	}

	arrays := r.inputArrays()
	for fieldIdx, arr := range arrays {
		if len(*arr) != r.Length {
			return &FormatError{
				Field: InputFieldNames[fieldIdx],
				Msg:   "array length does not match declared batch length",
			}
		}
	}

	return nil
}

// BatchResponse holds the echoed request and the sixteen output arrays, each
// of Request.Length elements, index-aligned with the request's points.
type BatchResponse struct {
	Request *BatchRequest

	Dens    []float64
	Temp    []float64
	Wmm     []float64
	DH      []float64
	DHe     []float64
	DO      []float64
	DN2     []float64
	DO2     []float64
	DN      []float64
	Tinf    []float64
	DensUnc []float64
	DensStd []float64

	XWind    []float64
	YWind    []float64
	XWindStd []float64
	YWindStd []float64
}

// NewBatchResponse allocates all output arrays for the given request. Output
// values default to zero, which is also the documented placeholder for fields
// whose governing flag is off.
func NewBatchResponse(req *BatchRequest) *BatchResponse {
	resp := &BatchResponse{Request: req}
	for _, arr := range resp.outputArrays() {
		*arr = make([]float64, req.Length)
	}

	return resp
}

// outputArrays returns pointers to the sixteen output slices, index-aligned
// with OutputFieldNames.
func (r *BatchResponse) outputArrays() []*[]float64 {
	return []*[]float64{
		&r.Dens,
		&r.Temp,
		&r.Wmm,
		&r.DH,
		&r.DHe,
		&r.DO,
		&r.DN2,
		&r.DO2,
		&r.DN,
		&r.Tinf,
		&r.DensUnc,
		&r.DensStd,
		&r.XWind,
		&r.YWind,
		&r.XWindStd,
		&r.YWindStd,
	}
}

// FormatError reports malformed or insufficient wire content. Field names the
// offending field from the schema tables and Position is the 1-based token
// position within that field (0 when not applicable).
type FormatError struct {
	Field    string
	Position int
	Msg      string
}

func (e *FormatError) Error() string {
	if e.Position > 0 {
		return fmt.Sprintf("format error in field '%s' at position %d: %s", e.Field, e.Position, e.Msg)
	}

	return fmt.Sprintf("format error in field '%s': %s", e.Field, e.Msg)
}
