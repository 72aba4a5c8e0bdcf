package calculation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/paycore/payroll-engine/internal/domain"
	"github.com/paycore/payroll-engine/pkg/money"
	"github.com/shopspring/decimal"
)

// withholdingEventNamespace scopes the name-based UUIDs of withholding events.
var withholdingEventNamespace = uuid.MustParse("6f1c2a7e-3d4b-5e8f-9a0b-1c2d3e4f5a6b")

// GarnishmentDeductionPrefix prefixes the deduction code of every garnishment line.
const GarnishmentDeductionPrefix = "GARN:"

// WithholdingEventID derives the event id from the employer, employee, order and
// paycheck, so recalculating a paycheck reproduces the same id.
func WithholdingEventID(employerID, employeeID, orderID, paycheckID string) string {
	name := strings.Join([]string{employerID, employeeID, orderID, paycheckID}, "|")
	return uuid.NewSHA1(withholdingEventNamespace, []byte(name)).String()
}

// GarnishmentRequest is one paycheck's garnishment input. Orders must already reflect
// ledger state (remaining arrears, withheld to date).
type GarnishmentRequest struct {
	EmployerID string
	EmployeeID string
	PaycheckID string
	PayRunID   string
	CheckDate  time.Time

	FilingStatus    domain.FilingStatus
	Gross           money.Money
	MandatoryPreTax money.Money
	EmployeeTaxes   money.Money

	Orders         []domain.GarnishmentOrder
	LaborStandards *domain.LaborStandards
	SupportCap     *domain.SupportCapContext
}

// GarnishmentComputation holds one deduction line and one withholding event per order
// that withheld anything.
type GarnishmentComputation struct {
	Disposable money.Money
	Lines      []domain.DeductionLine
	Events     []domain.WithholdingEvent
	Trace      []domain.TraceStep
}

// GarnishmentEngine applies garnishment orders in priority order against disposable
// income, honoring protected-earnings floors and the CCPA support cap.
type GarnishmentEngine struct {
	SupportCap SupportCapPolicy
	Logger     Logger
}

func NewGarnishmentEngine() *GarnishmentEngine {
	return &GarnishmentEngine{SupportCap: DefaultSupportCapPolicy(), Logger: NopLogger{}}
}

type orderState struct {
	order     domain.GarnishmentOrder
	floor     money.Money
	requested money.Money
}

// Compute runs every active order. Completed orders are skipped with a note.
func (g *GarnishmentEngine) Compute(req GarnishmentRequest) (GarnishmentComputation, error) {
	log := loggerOrNop(g.Logger)
	var out GarnishmentComputation
	if err := checkOrderCurrency(req); err != nil {
		return GarnishmentComputation{}, err
	}

	active := make([]domain.GarnishmentOrder, 0, len(req.Orders))
	for _, o := range req.Orders {
		if o.IsCompleted() {
			out.Trace = append(out.Trace, domain.Note{Message: fmt.Sprintf("garnishment order %s completed: skipped", o.OrderID)})
			continue
		}
		if o.Formula == nil {
			return GarnishmentComputation{}, &domain.CalculationError{
				Op:      "garnishment",
				OrderID: o.OrderID,
				Err:     fmt.Errorf("%w: no formula", domain.ErrInvalidOrder),
			}
		}
		active = append(active, o)
	}
	sort.SliceStable(active, func(i, j int) bool {
		a, b := active[i], active[j]
		if a.PriorityClass != b.PriorityClass {
			return a.PriorityClass < b.PriorityClass
		}
		if a.SequenceWithinClass != b.SequenceWithinClass {
			return a.SequenceWithinClass < b.SequenceWithinClass
		}
		return a.OrderID < b.OrderID
	})

	disposable := req.Gross.Sub(req.MandatoryPreTax).Sub(req.EmployeeTaxes).FloorZero()
	out.Disposable = disposable
	out.Trace = append(out.Trace, domain.DisposableIncomeComputed{
		Gross:           req.Gross,
		MandatoryPreTax: req.MandatoryPreTax,
		EmployeeTaxes:   req.EmployeeTaxes,
		Disposable:      disposable,
	})
	if len(active) == 0 {
		return out, nil
	}

	states := make([]orderState, len(active))
	for i, o := range active {
		floor, err := protectedFloor(o, req.LaborStandards)
		if err != nil {
			return GarnishmentComputation{}, err
		}
		requested, err := requestedAmount(o, disposable, req.FilingStatus)
		if err != nil {
			return GarnishmentComputation{}, err
		}
		if o.LifetimeCap != nil {
			requested = money.Min(requested, o.LifetimeCap.Sub(o.WithheldToDate).FloorZero())
		}
		states[i] = orderState{order: o, floor: floor, requested: requested}
	}

	if step, ok := g.applySupportCap(states, disposable, req.SupportCap); ok {
		out.Trace = append(out.Trace, step)
	}

	remaining := disposable
	for _, st := range states {
		o := st.order
		applied := money.Min(st.requested, remaining.Sub(st.floor).FloorZero())
		constrained := applied.LessThan(st.requested)
		if constrained {
			out.Trace = append(out.Trace, domain.ProtectedEarningsApplied{
				OrderID:   o.OrderID,
				Floor:     st.floor,
				Requested: st.requested,
				Applied:   applied,
			})
		}

		split := splitArrears(o, applied)
		applied = split.applied

		out.Trace = append(out.Trace, domain.GarnishmentApplied{
			OrderID:          o.OrderID,
			Type:             o.Type,
			Formula:          o.Formula.FormulaName(),
			Requested:        st.requested,
			Applied:          applied,
			DisposableBefore: remaining,
			DisposableAfter:  remaining.Sub(applied),
			Floor:            st.floor,
			Constrained:      constrained,
			ArrearsBefore:    o.ArrearsBefore,
			ArrearsAfter:     split.arrearsAfter,
			AppliedToCurrent: split.toCurrent,
			AppliedToArrears: split.toArrears,
		})
		remaining = remaining.Sub(applied)

		if !applied.IsPositive() {
			log.Debugf("garnishment order %s withheld nothing", o.OrderID)
			continue
		}
		out.Lines = append(out.Lines, domain.DeductionLine{
			Code:        GarnishmentDeductionPrefix + o.OrderID,
			Description: fmt.Sprintf("Garnishment %s (%s)", o.OrderID, o.Type),
			Kind:        domain.DeductionGarnishment,
			Amount:      applied,
			OrderID:     o.OrderID,
		})
		out.Events = append(out.Events, domain.WithholdingEvent{
			EventID:          WithholdingEventID(req.EmployerID, req.EmployeeID, o.OrderID, req.PaycheckID),
			EmployerID:       req.EmployerID,
			EmployeeID:       req.EmployeeID,
			OrderID:          o.OrderID,
			PaycheckID:       req.PaycheckID,
			PayRunID:         req.PayRunID,
			CheckDate:        req.CheckDate,
			Withheld:         applied,
			AppliedToCurrent: split.toCurrent,
			AppliedToArrears: split.toArrears,
			InitialArrears:   o.ArrearsBefore,
			LifetimeCap:      o.LifetimeCap,
			ArrearsOnly:      o.TracksArrears() && o.CurrentObligation == nil,
		})
	}
	return out, nil
}

// applySupportCap scales support orders down as a group so their combined request stays
// within the CCPA cap on the full disposable income.
func (g *GarnishmentEngine) applySupportCap(states []orderState, disposable money.Money, ctx *domain.SupportCapContext) (domain.SupportCapApplied, bool) {
	var (
		idx      []int
		requests []money.Money
		ids      []string
	)
	for i, st := range states {
		if st.order.Type.IsSupport() {
			idx = append(idx, i)
			requests = append(requests, st.requested)
			ids = append(ids, st.order.OrderID)
		}
	}
	if len(idx) == 0 {
		return domain.SupportCapApplied{}, false
	}

	var c domain.SupportCapContext
	if ctx != nil {
		c = *ctx
	}
	rate, limit := g.SupportCap.Cap(c, disposable)
	scaled := allocateProportionally(requests, limit)
	for k, i := range idx {
		states[i].requested = scaled[k]
	}
	return domain.SupportCapApplied{
		Rate:           rate,
		Disposable:     disposable,
		Cap:            limit,
		RequestedTotal: money.Sum(requests...),
		AppliedTotal:   money.Sum(scaled...),
		OrderIDs:       ids,
	}, true
}

func protectedFloor(o domain.GarnishmentOrder, labor *domain.LaborStandards) (money.Money, error) {
	switch rule := o.ProtectedEarnings.(type) {
	case nil:
		return money.Zero(), nil
	case domain.FixedFloor:
		return rule.Amount, nil
	case domain.MultipleOfMinimumWage:
		var rate money.Money
		switch {
		case rule.HourlyRate != nil:
			rate = *rule.HourlyRate
		case labor != nil && labor.MinimumWage.IsPositive():
			rate = labor.MinimumWage
		default:
			return money.Money{}, &domain.CalculationError{Op: "garnishment floor", OrderID: o.OrderID, Err: domain.ErrMissingMinimumWage}
		}
		return rate.MulDecimal(rule.Hours.Mul(rule.Multiplier)), nil
	default:
		return money.Money{}, &domain.CalculationError{
			Op:      "garnishment floor",
			OrderID: o.OrderID,
			Err:     fmt.Errorf("%w: protected earnings rule %T", domain.ErrInvalidOrder, rule),
		}
	}
}

func requestedAmount(o domain.GarnishmentOrder, disposable money.Money, status domain.FilingStatus) (money.Money, error) {
	switch f := o.Formula.(type) {
	case domain.PercentOfDisposable:
		return disposable.MulRate(f.Percent), nil
	case domain.FixedAmountPerPeriod:
		return f.Amount, nil
	case domain.LesserOfPercentOrAmount:
		return money.Min(disposable.MulRate(f.Percent), f.Amount), nil
	case domain.LevyWithBands:
		return levyAmount(f, disposable, status), nil
	default:
		return money.Money{}, &domain.CalculationError{
			Op:      "garnishment",
			OrderID: o.OrderID,
			Err:     fmt.Errorf("%w: formula %T", domain.ErrInvalidOrder, f),
		}
	}
}

var fullPercent = money.PercentFromDecimal(decimal.NewFromInt(1))

// levyAmount exempts the amount of the first band covering the disposable income and
// withholds the percent of the rest. Income above every bounded band uses the highest band.
func levyAmount(f domain.LevyWithBands, disposable money.Money, status domain.FilingStatus) money.Money {
	bands := make([]domain.LevyBand, 0, len(f.Bands))
	for _, b := range f.Bands {
		if b.FilingStatus == nil || *b.FilingStatus == status {
			bands = append(bands, b)
		}
	}
	sort.SliceStable(bands, func(i, j int) bool {
		a, b := bands[i].UpTo, bands[j].UpTo
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return a.Cents < b.Cents
	})

	exempt := money.Zero()
	matched := false
	for _, b := range bands {
		if b.UpTo == nil || disposable.Cents <= b.UpTo.Cents {
			exempt, matched = b.ExemptAmount, true
			break
		}
	}
	if !matched && len(bands) > 0 {
		exempt = bands[len(bands)-1].ExemptAmount
	}
	percent := fullPercent
	if f.Percent != nil {
		percent = *f.Percent
	}
	return disposable.Sub(exempt).FloorZero().MulRate(percent)
}

type arrearsSplit struct {
	applied      money.Money
	toCurrent    money.Money
	toArrears    money.Money
	arrearsAfter *money.Money
}

// splitArrears assigns the applied amount to the current obligation first and the rest
// to arrears. Orders tracking arrears never withhold more than current plus the balance.
func splitArrears(o domain.GarnishmentOrder, applied money.Money) arrearsSplit {
	if !o.TracksArrears() {
		return arrearsSplit{applied: applied, toCurrent: applied, toArrears: money.Zero()}
	}
	balance := o.ArrearsBefore.FloorZero()

	current := applied
	switch {
	case o.CurrentObligation != nil:
		current = money.Min(applied, *o.CurrentObligation)
	case balance.IsPositive():
		current = money.Zero()
	}
	toArrears := money.Min(applied.Sub(current), balance)
	after := balance.Sub(toArrears)
	return arrearsSplit{
		applied:      current.Add(toArrears),
		toCurrent:    current,
		toArrears:    toArrears,
		arrearsAfter: &after,
	}
}
