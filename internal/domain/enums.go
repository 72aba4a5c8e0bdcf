package domain

import (
	"fmt"
	"strings"
)

// FilingStatus is the federal filing status from the employee's W-4.
type FilingStatus string

const (
	FilingSingle          FilingStatus = "SINGLE"
	FilingMarried         FilingStatus = "MARRIED"
	FilingHeadOfHousehold FilingStatus = "HEAD_OF_HOUSEHOLD"
)

var filingStatuses = []FilingStatus{FilingSingle, FilingMarried, FilingHeadOfHousehold}

// ParseFilingStatus rejects anything outside the known statuses.
func ParseFilingStatus(s string) (FilingStatus, error) {
	v, err := parseEnum(s, filingStatuses)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownFilingStatus, s)
	}
	return v, nil
}

func (f *FilingStatus) UnmarshalText(text []byte) error {
	v, err := ParseFilingStatus(string(text))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// PayFrequency drives periods-per-year for annualization and allocation.
type PayFrequency string

const (
	Weekly      PayFrequency = "WEEKLY"
	Biweekly    PayFrequency = "BIWEEKLY"
	FourWeekly  PayFrequency = "FOUR_WEEKLY"
	SemiMonthly PayFrequency = "SEMI_MONTHLY"
	Monthly     PayFrequency = "MONTHLY"
	Quarterly   PayFrequency = "QUARTERLY"
	Annual      PayFrequency = "ANNUAL"
)

var periodsPerYear = map[PayFrequency]int{
	Weekly:      52,
	Biweekly:    26,
	FourWeekly:  13,
	SemiMonthly: 24,
	Monthly:     12,
	Quarterly:   4,
	Annual:      1,
}

var payFrequencies = []PayFrequency{Weekly, Biweekly, FourWeekly, SemiMonthly, Monthly, Quarterly, Annual}

// PeriodsPerYear returns 0 for an unknown frequency.
func (p PayFrequency) PeriodsPerYear() int {
	return periodsPerYear[p]
}

func ParsePayFrequency(s string) (PayFrequency, error) {
	v, err := parseEnum(s, payFrequencies)
	if err != nil {
		return "", fmt.Errorf("%w: pay frequency %q", ErrInvalidPeriods, s)
	}
	return v, nil
}

func (p *PayFrequency) UnmarshalText(text []byte) error {
	v, err := ParsePayFrequency(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// EmploymentType selects special FICA thresholds.
type EmploymentType string

const (
	EmploymentRegular        EmploymentType = "REGULAR"
	EmploymentHousehold      EmploymentType = "HOUSEHOLD"
	EmploymentElectionWorker EmploymentType = "ELECTION_WORKER"
	EmploymentAgricultural   EmploymentType = "AGRICULTURAL"
)

var employmentTypes = []EmploymentType{EmploymentRegular, EmploymentHousehold, EmploymentElectionWorker, EmploymentAgricultural}

func ParseEmploymentType(s string) (EmploymentType, error) {
	return parseEnum(s, employmentTypes)
}

func (e *EmploymentType) UnmarshalText(text []byte) error {
	v, err := ParseEmploymentType(string(text))
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// EarningCategory classifies an earning line for tax-basis purposes.
type EarningCategory string

const (
	EarningRegular          EarningCategory = "REGULAR"
	EarningOvertime         EarningCategory = "OVERTIME"
	EarningBonus            EarningCategory = "BONUS"
	EarningSupplemental     EarningCategory = "SUPPLEMENTAL"
	EarningCommission       EarningCategory = "COMMISSION"
	EarningHoliday          EarningCategory = "HOLIDAY"
	EarningPTO              EarningCategory = "PTO"
	EarningTips             EarningCategory = "TIPS"
	EarningImputed          EarningCategory = "IMPUTED"
	EarningFringeNonTaxable EarningCategory = "FRINGE_NON_TAXABLE"
	EarningReimbursement    EarningCategory = "REIMBURSEMENT"
)

// Earning categories are open-ended: an unrecognized category is carried through and
// treated as gross-only by the basis builder.
func (c *EarningCategory) UnmarshalText(text []byte) error {
	*c = EarningCategory(normalizeEnum(string(text)))
	return nil
}

// TaxBasis names a wage base that tax rules are evaluated against.
type TaxBasis string

const (
	BasisGross               TaxBasis = "Gross"
	BasisFederalTaxable      TaxBasis = "FederalTaxable"
	BasisStateTaxable        TaxBasis = "StateTaxable"
	BasisSocialSecurityWages TaxBasis = "SocialSecurityWages"
	BasisMedicareWages       TaxBasis = "MedicareWages"
	BasisSupplementalWages   TaxBasis = "SupplementalWages"
	BasisFutaWages           TaxBasis = "FutaWages"
)

// AllTaxBases lists the bases in presentation order.
var AllTaxBases = []TaxBasis{
	BasisGross,
	BasisFederalTaxable,
	BasisStateTaxable,
	BasisSocialSecurityWages,
	BasisMedicareWages,
	BasisSupplementalWages,
	BasisFutaWages,
}

// IsFICA reports the Social Security and Medicare wage bases.
func (b TaxBasis) IsFICA() bool {
	return b == BasisSocialSecurityWages || b == BasisMedicareWages
}

func ParseTaxBasis(s string) (TaxBasis, error) {
	return parseEnum(s, AllTaxBases)
}

func (b *TaxBasis) UnmarshalText(text []byte) error {
	v, err := ParseTaxBasis(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}

// DeductionKind fixes the tax treatment defaults of a deduction plan.
type DeductionKind string

const (
	DeductionPretaxRetirement DeductionKind = "PRETAX_RETIREMENT_EMPLOYEE"
	DeductionRothRetirement   DeductionKind = "ROTH_RETIREMENT_EMPLOYEE"
	DeductionHSA              DeductionKind = "HSA"
	DeductionFSA              DeductionKind = "FSA"
	DeductionPosttaxVoluntary DeductionKind = "POSTTAX_VOLUNTARY"
	DeductionOtherPosttax     DeductionKind = "OTHER_POSTTAX"
	DeductionGarnishment      DeductionKind = "GARNISHMENT"
)

var deductionKinds = []DeductionKind{
	DeductionPretaxRetirement, DeductionRothRetirement, DeductionHSA, DeductionFSA,
	DeductionPosttaxVoluntary, DeductionOtherPosttax, DeductionGarnishment,
}

// IsPreTax reports kinds withheld before taxes.
func (k DeductionKind) IsPreTax() bool {
	return k == DeductionPretaxRetirement || k == DeductionHSA || k == DeductionFSA
}

func ParseDeductionKind(s string) (DeductionKind, error) {
	return parseEnum(s, deductionKinds)
}

func (k *DeductionKind) UnmarshalText(text []byte) error {
	v, err := ParseDeductionKind(string(text))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// DeductionEffect names a basis a pre-tax deduction reduces.
type DeductionEffect string

const (
	ReducesFederalTaxable      DeductionEffect = "REDUCES_FEDERAL_TAXABLE"
	ReducesStateTaxable        DeductionEffect = "REDUCES_STATE_TAXABLE"
	ReducesSocialSecurityWages DeductionEffect = "REDUCES_SOCIAL_SECURITY_WAGES"
	ReducesMedicareWages       DeductionEffect = "REDUCES_MEDICARE_WAGES"
	NoTaxEffect                DeductionEffect = "NO_TAX_EFFECT"
)

var deductionEffects = []DeductionEffect{
	ReducesFederalTaxable, ReducesStateTaxable, ReducesSocialSecurityWages, ReducesMedicareWages, NoTaxEffect,
}

// Basis returns the basis reduced by the effect, if any.
func (e DeductionEffect) Basis() (TaxBasis, bool) {
	switch e {
	case ReducesFederalTaxable:
		return BasisFederalTaxable, true
	case ReducesStateTaxable:
		return BasisStateTaxable, true
	case ReducesSocialSecurityWages:
		return BasisSocialSecurityWages, true
	case ReducesMedicareWages:
		return BasisMedicareWages, true
	}
	return "", false
}

func (e *DeductionEffect) UnmarshalText(text []byte) error {
	v, err := parseEnum(string(text), deductionEffects)
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// DefaultEffects is the tax treatment of a deduction kind when a plan lists none.
func (k DeductionKind) DefaultEffects() []DeductionEffect {
	switch k {
	case DeductionPretaxRetirement, DeductionFSA:
		return []DeductionEffect{ReducesFederalTaxable, ReducesStateTaxable}
	case DeductionHSA:
		return []DeductionEffect{ReducesFederalTaxable, ReducesStateTaxable, ReducesSocialSecurityWages, ReducesMedicareWages}
	default:
		return []DeductionEffect{NoTaxEffect}
	}
}

// GarnishmentType is the legal category of a withholding order.
type GarnishmentType string

const (
	GarnishmentChildSupport   GarnishmentType = "CHILD_SUPPORT"
	GarnishmentSpousalSupport GarnishmentType = "SPOUSAL_SUPPORT"
	GarnishmentFederalLevy    GarnishmentType = "FEDERAL_TAX_LEVY"
	GarnishmentStateLevy      GarnishmentType = "STATE_TAX_LEVY"
	GarnishmentStudentLoan    GarnishmentType = "STUDENT_LOAN"
	GarnishmentCreditor       GarnishmentType = "CREDITOR_GARNISHMENT"
	GarnishmentBankruptcy     GarnishmentType = "BANKRUPTCY"
	GarnishmentOther          GarnishmentType = "OTHER"
)

var garnishmentTypes = []GarnishmentType{
	GarnishmentChildSupport, GarnishmentSpousalSupport, GarnishmentFederalLevy, GarnishmentStateLevy,
	GarnishmentStudentLoan, GarnishmentCreditor, GarnishmentBankruptcy, GarnishmentOther,
}

// IsSupport reports orders subject to the CCPA support cap.
func (g GarnishmentType) IsSupport() bool {
	return g == GarnishmentChildSupport || g == GarnishmentSpousalSupport
}

func ParseGarnishmentType(s string) (GarnishmentType, error) {
	return parseEnum(s, garnishmentTypes)
}

func (g *GarnishmentType) UnmarshalText(text []byte) error {
	v, err := ParseGarnishmentType(string(text))
	if err != nil {
		return err
	}
	*g = v
	return nil
}

// W4Version separates pre-2020 allowance-based forms from the redesigned form.
type W4Version string

const (
	W4Legacy W4Version = "LEGACY_PRE_2020"
	W4Modern W4Version = "MODERN_2020"
)

func (v *W4Version) UnmarshalText(text []byte) error {
	parsed, err := parseEnum(string(text), []W4Version{W4Legacy, W4Modern})
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// JurisdictionType is the level of government that levies a tax.
type JurisdictionType string

const (
	JurisdictionFederal JurisdictionType = "FEDERAL"
	JurisdictionState   JurisdictionType = "STATE"
	JurisdictionLocal   JurisdictionType = "LOCAL"
	JurisdictionOther   JurisdictionType = "OTHER"
)

func (j *JurisdictionType) UnmarshalText(text []byte) error {
	v, err := parseEnum(string(text), []JurisdictionType{JurisdictionFederal, JurisdictionState, JurisdictionLocal, JurisdictionOther})
	if err != nil {
		return err
	}
	*j = v
	return nil
}

// Jurisdiction identifies the taxing or issuing authority, e.g. FEDERAL/US or STATE/CA.
type Jurisdiction struct {
	Type JurisdictionType `json:"type" yaml:"type"`
	Code string           `json:"code" yaml:"code"`
}

func (j Jurisdiction) String() string {
	return string(j.Type) + ":" + j.Code
}

func normalizeEnum(s string) string {
	r := strings.NewReplacer("-", "_", " ", "_")
	return strings.ToUpper(r.Replace(strings.TrimSpace(s)))
}

func squash(s string) string {
	return strings.ReplaceAll(normalizeEnum(s), "_", "")
}

// parseEnum matches case-insensitively and ignores separators, so "head of household",
// "HEAD_OF_HOUSEHOLD" and "federal_taxable" all resolve.
func parseEnum[T ~string](s string, valid []T) (T, error) {
	want := squash(s)
	for _, v := range valid {
		if squash(string(v)) == want {
			return v, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("unknown value %q", s)
}
