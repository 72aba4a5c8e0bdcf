package rules

import (
	"context"
	"strings"
	"time"

	"github.com/paycore/payroll-engine/internal/domain"
)

// Query scopes a rule lookup to one employer, work location and date.
type Query struct {
	EmployerID string
	AsOf       time.Time
	WorkState  string
	HomeState  string
	WorkCity   string
}

// QueryFor builds the query for a paycheck's employee and check date.
func QueryFor(emp domain.EmployeeSnapshot, checkDate time.Time) Query {
	return Query{
		EmployerID: emp.EmployerID,
		AsOf:       checkDate,
		WorkState:  emp.WorkState,
		HomeState:  emp.HomeState,
		WorkCity:   emp.WorkCity,
	}
}

// Key is the normalized cache key: identifiers are trimmed and upper-cased and the date
// is truncated to the day.
func (q Query) Key() string {
	return strings.Join([]string{
		"rules",
		normalize(q.EmployerID),
		q.AsOf.Format("2006-01-02"),
		normalize(q.WorkState),
		normalize(q.HomeState),
		normalize(q.WorkCity),
	}, ":")
}

func normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Catalog resolves the tax context for a query.
type Catalog interface {
	TaxContext(ctx context.Context, q Query) (domain.TaxContext, error)
}

// Selector returns the rule specs in force for a query, in catalog order.
type Selector interface {
	SelectRules(ctx context.Context, q Query) ([]RuleSpec, error)
}

// StaticCatalog serves a fixed set of rules loaded from a catalog document.
type StaticCatalog struct {
	version string
	specs   []RuleSpec
}

// NewStaticCatalog validates every rule up front so a bad table fails at load time.
func NewStaticCatalog(doc Document) (*StaticCatalog, error) {
	for _, s := range doc.Rules {
		if _, err := s.ToRule(); err != nil {
			return nil, err
		}
	}
	return &StaticCatalog{version: doc.Version, specs: doc.Rules}, nil
}

func (c *StaticCatalog) Version() string { return c.version }

// SelectRules keeps rules that are effective on the date, open to the employer, and
// either federal, employer-level, or issued by the work or home state or the work city.
func (c *StaticCatalog) SelectRules(ctx context.Context, q Query) ([]RuleSpec, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []RuleSpec
	for _, s := range c.specs {
		if !s.EffectiveOn(q.AsOf) || !openTo(s.Employers, q.EmployerID) {
			continue
		}
		if s.Employer {
			out = append(out, s)
			continue
		}
		code := normalize(s.Jurisdiction.Code)
		switch s.Jurisdiction.Type {
		case domain.JurisdictionState:
			if code != normalize(q.WorkState) && code != normalize(q.HomeState) {
				continue
			}
		case domain.JurisdictionLocal:
			if code != normalize(q.WorkCity) {
				continue
			}
		}
		out = append(out, s)
	}
	return out, nil
}

func (c *StaticCatalog) TaxContext(ctx context.Context, q Query) (domain.TaxContext, error) {
	specs, err := c.SelectRules(ctx, q)
	if err != nil {
		return domain.TaxContext{}, err
	}
	return BuildContext(specs)
}

func openTo(employers []string, employerID string) bool {
	if len(employers) == 0 {
		return true
	}
	for _, e := range employers {
		if strings.EqualFold(strings.TrimSpace(e), strings.TrimSpace(employerID)) {
			return true
		}
	}
	return false
}
