package output

import (
	"encoding/json"

	"github.com/paycore/payroll-engine/internal/domain"
)

// JSONFormatter serializes the results as pretty-printed JSON, trace included.
type JSONFormatter struct{}

func (j JSONFormatter) Name() string { return "json" }

func (j JSONFormatter) Format(results []*domain.PaycheckResult) ([]byte, error) {
	if results == nil {
		results = []*domain.PaycheckResult{}
	}
	return json.MarshalIndent(results, "", "  ")
}
