package report

import (
	"errors"
	"net/url"
	"strconv"

	"divs/internal/core"
	"divs/internal/metric"
	"divs/internal/query"
)

// Bucket selects the column grouping of the pivot.
type Bucket string

const (
	BucketYear    Bucket = "year"
	BucketTaxYear Bucket = "taxYear"
)

// Request parameters.
const (
	ParamBucket      = "bucketH"
	ParamPerShare    = "perShare"
	ParamCellContent = "cellContent"
	ParamFillGaps    = "fillGaps"
	ParamCSV         = "csv"

	CellDetails = "details"
)

var errFlag = errors.New("expected 0 or 1")

// Request describes one pivot report.
type Request struct {
	Bucket   Bucket
	Metric   metric.Kind
	Scale    int32
	Details  bool
	FillGaps bool
	Criteria query.Criteria
}

// DefaultRequest is the calendar year, nominal, summed report.
func DefaultRequest() Request {
	return Request{
		Bucket:   BucketYear,
		Metric:   metric.KindNominal,
		Scale:    metric.DefaultScale,
		Criteria: query.Criteria{},
	}
}

// ParseBucket validates a bucket mode. Empty means calendar years.
func ParseBucket(s string) (Bucket, error) {
	switch Bucket(s) {
	case "", BucketYear:
		return BucketYear, nil
	case BucketTaxYear:
		return BucketTaxYear, nil
	}
	return "", &core.ValidationError{Field: ParamBucket, Value: s, Err: errors.New("expected year or taxYear")}
}

func parseFlag(name, s string) (bool, error) {
	switch s {
	case "", "0":
		return false, nil
	case "1":
		return true, nil
	}
	return false, &core.ValidationError{Field: name, Value: s, Err: errFlag}
}

// ParseRequest reads a report request from query parameters. scale is the
// rounding scale of the per-share metric.
func ParseRequest(v url.Values, scale int32) (Request, error) {
	req := DefaultRequest()
	req.Scale = scale

	var err error
	if req.Bucket, err = ParseBucket(v.Get(ParamBucket)); err != nil {
		return req, err
	}
	perShare, err := parseFlag(ParamPerShare, v.Get(ParamPerShare))
	if err != nil {
		return req, err
	}
	if perShare {
		req.Metric = metric.KindPerUnit
	}
	switch c := v.Get(ParamCellContent); c {
	case "", "sum":
	case CellDetails:
		req.Details = true
	default:
		return req, &core.ValidationError{Field: ParamCellContent, Value: c, Err: errors.New("expected sum or details")}
	}
	if req.FillGaps, err = parseFlag(ParamFillGaps, v.Get(ParamFillGaps)); err != nil {
		return req, err
	}
	if req.Criteria, err = query.FromValues(v); err != nil {
		return req, err
	}
	return req, nil
}

// Values encodes the request back into query parameters. Defaults are
// omitted.
func (r Request) Values() url.Values {
	v := url.Values{}
	if r.Bucket != "" && r.Bucket != BucketYear {
		v.Set(ParamBucket, string(r.Bucket))
	}
	if r.Metric == metric.KindPerUnit {
		v.Set(ParamPerShare, "1")
	}
	if r.Details {
		v.Set(ParamCellContent, CellDetails)
	}
	if r.FillGaps {
		v.Set(ParamFillGaps, "1")
	}
	r.Criteria.Encode(v)
	return v
}

// Key identifies the request for caching.
func (r Request) Key() string {
	return r.Values().Encode() + "&scale=" + strconv.Itoa(int(r.Scale))
}
