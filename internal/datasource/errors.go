package datasource

import (
	"errors"
	"fmt"
)

// ErrNoData marks queries that matched nothing. Callers treat it as
// "no data for this query", not as a failure of the data source itself.
var ErrNoData = errors.New("no data found for query")

// APIError is a failure reported by the upstream data API.
type APIError struct {
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("data API error %s: %s", e.Code, e.Message)
}
