package http

import (
	"errors"
	"net/http"
	"net/url"

	"divs/internal/core"
	applog "divs/internal/log"
	"divs/internal/pivot"
	"divs/internal/query"
	"divs/internal/report"
)

const (
	pathPivot  = "/"
	pathEvents = "/div-events"
)

// parseCSVFlag reads the csv download switch.
func parseCSVFlag(v url.Values) (bool, error) {
	switch raw := v.Get(report.ParamCSV); raw {
	case "", "0":
		return false, nil
	case "1":
		return true, nil
	default:
		return false, &core.ValidationError{Field: report.ParamCSV, Value: raw, Err: errors.New("expected 0 or 1")}
	}
}

func href(path string, v url.Values) string {
	if q := v.Encode(); q != "" {
		return path + "?" + q
	}
	return path
}

func encodeCriteria(c query.Criteria) url.Values {
	v := url.Values{}
	c.Encode(v)
	return v
}

func pivotHref(req report.Request) string {
	return href(pathPivot, req.Values())
}

func eventsHref(t report.Target) string {
	return href(pathEvents, t.Values())
}

// writeError maps domain errors to status codes. Record errors are shown in
// full since only the record's maintainer can fix them.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	ctx := r.Context()
	logger := applog.NewStructuredLogger(applog.FromContext(ctx))
	fields := applog.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent())

	switch {
	case errors.Is(err, core.ErrValidation):
		applog.FromContext(ctx).WarnContext(ctx, "Invalid request", applog.FieldError, err.Error(), applog.FieldOperation, op)
		BadRequestError(err.Error()).Write(w)
	case errors.Is(err, core.ErrParse):
		logger.LogError(ctx, "Dividend record is invalid", err, applog.ComponentRecords, op, fields.WithErrorType(applog.ErrorTypeParse))
		InternalServerError("The dividend record could not be read: " + err.Error()).Write(w)
	case errors.Is(err, core.ErrConfiguration):
		logger.LogError(ctx, "Dividend record unavailable", err, applog.ComponentSource, op, fields.WithErrorType(applog.ErrorTypeConfiguration))
		ServiceUnavailableError(err.Error()).Write(w)
	case errors.Is(err, pivot.ErrUnknownRow):
		logger.LogError(ctx, "Report layout mismatch", err, applog.ComponentReport, op, fields)
		InternalServerError(err.Error()).Write(w)
	default:
		logger.LogError(ctx, "Request failed", err, applog.ComponentHTTP, op, fields)
		InternalServerError("internal error").Write(w)
	}
}
