package decoder

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"vehicle-data-pipeline/models"
)

// ErrMalformedResponse is returned when a decoder body is not the expected
// JSON envelope.
var ErrMalformedResponse = errors.New("decoder: malformed response")

// Response is the envelope of a batch decode reply.
type Response struct {
	Count   int      `json:"Count"`
	Message string   `json:"Message"`
	Results []Result `json:"Results"`
}

// FieldValue is one result field. Present records whether the key appeared
// in the payload at all; null decodes to "" and numbers or other non-string
// values keep their JSON text, so "ModelYear": 2003 reads as "2003".
type FieldValue struct {
	Present bool
	Value   string
}

// UnmarshalJSON implements json.Unmarshaler. It is also called for null.
func (f *FieldValue) UnmarshalJSON(b []byte) error {
	f.Present = true
	switch {
	case bytes.Equal(b, []byte("null")):
		f.Value = ""
	case len(b) > 0 && b[0] == '"':
		return json.Unmarshal(b, &f.Value)
	default:
		f.Value = string(b)
	}
	return nil
}

// Result is one per-VIN entry.
type Result struct {
	Message   FieldValue `json:"Message"`
	VIN       FieldValue `json:"VIN"`
	Make      FieldValue `json:"Make"`
	Model     FieldValue `json:"Model"`
	ModelYear FieldValue `json:"ModelYear"`
	Trim      FieldValue `json:"Trim"`

	// invalid is set when the entry could not be read as an object.
	invalid error
}

// ParseResult is what one decoder payload yields.
type ParseResult struct {
	Records     []*models.DecodedVinRecord
	DecodedVINs []string
	Diagnostics []string
}

// DecodeResponse parses a response body. A body without a Results array is
// malformed. Each result is decoded on its own, so one unreadable entry does
// not cost its siblings.
func DecodeResponse(body []byte) (*Response, error) {
	var envelope struct {
		Count   int                `json:"Count"`
		Message FieldValue         `json:"Message"`
		Results *[]json.RawMessage `json:"Results"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if envelope.Results == nil {
		return nil, fmt.Errorf("%w: missing Results", ErrMalformedResponse)
	}

	resp := &Response{
		Count:   envelope.Count,
		Message: envelope.Message.Value,
		Results: make([]Result, len(*envelope.Results)),
	}
	for i, raw := range *envelope.Results {
		if err := json.Unmarshal(raw, &resp.Results[i]); err != nil {
			resp.Results[i] = Result{invalid: err}
		}
	}
	return resp, nil
}

// Parse splits a payload into decoded records and diagnostics, preserving the
// order of resp.Results. A result with a Message key is a diagnostic and its
// VIN is excluded, as is a result missing any of the decoded keys or with a
// blank VIN.
func Parse(resp *Response) *ParseResult {
	out := &ParseResult{}
	if resp == nil {
		return out
	}

	for i, r := range resp.Results {
		switch {
		case r.invalid != nil:
			out.Diagnostics = append(out.Diagnostics, fmt.Sprintf("result %d is unreadable: %v", i, r.invalid))
			continue
		case r.Message.Present:
			out.Diagnostics = append(out.Diagnostics, fmt.Sprintf("message from decoder: %s", r.Message.Value))
			continue
		case !r.VIN.Present || !r.Make.Present || !r.Model.Present || !r.ModelYear.Present || !r.Trim.Present:
			out.Diagnostics = append(out.Diagnostics, fmt.Sprintf("result %d is missing decoded fields", i))
			continue
		}

		vin := strings.TrimSpace(r.VIN.Value)
		if vin == "" {
			out.Diagnostics = append(out.Diagnostics, fmt.Sprintf("result %d has a blank VIN", i))
			continue
		}

		rec := &models.DecodedVinRecord{
			VIN:   vin,
			Make:  r.Make.Value,
			Model: r.Model.Value,
			Year:  parseYear(r.ModelYear.Value),
			Trim:  r.Trim.Value,
		}
		out.Records = append(out.Records, rec)
		out.DecodedVINs = append(out.DecodedVINs, rec.VIN)
	}

	return out
}

func parseYear(s string) *int {
	y, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &y
}

// Merge unions the output of several chunks. When a VIN appears more than
// once, the first record wins.
func Merge(parts ...*ParseResult) *ParseResult {
	out := &ParseResult{}
	seen := make(map[string]struct{})
	for _, p := range parts {
		if p == nil {
			continue
		}
		out.Diagnostics = append(out.Diagnostics, p.Diagnostics...)
		for _, rec := range p.Records {
			if _, dup := seen[rec.VIN]; dup {
				continue
			}
			seen[rec.VIN] = struct{}{}
			out.Records = append(out.Records, rec)
			out.DecodedVINs = append(out.DecodedVINs, rec.VIN)
		}
	}
	return out
}
