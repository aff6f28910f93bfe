package extraction

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/freight-commission-ledger/internal/domain/money"
	"github.com/freight-commission-ledger/internal/domain/shared"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptyPayload = shared.Validation(shared.CodeRequiredField, "extraction", "extraction payload is empty")
	ErrNotAnObject  = shared.Validation(shared.CodeInvalidField, "extraction", "extraction payload must be a JSON object")
)

var dateLayouts = []string{"2006-01-02", time.RFC3339, "02/01/2006", "02-01-2006", "2006/01/02"}

// Options tune the data-quality checks.
type Options struct {
	ConfidenceThreshold int
	ChargeTolerance     decimal.Decimal
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Parse validates raw extractor output. A non-EUR invoice is rejected before
// anything else is looked at. Warnings never block: they are returned next to
// a usable Extraction.
func Parse(raw json.RawMessage, opts Options) (*Extraction, []shared.Warning, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil, ErrEmptyPayload
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil || doc == nil {
		return nil, nil, ErrNotAnObject
	}

	r := &reader{scores: readScores(doc["confidence"]), confidence: map[string]shared.ConfidenceLevel{}}

	ext := &Extraction{Raw: raw, Confidence: r.confidence}
	ext.CurrencyValid = r.boolean(doc, "currency_valid", true)
	ext.CurrencyDetected = strings.ToUpper(r.str(doc, "currency_detected", "currency"))
	if ext.CurrencyDetected == "" {
		ext.CurrencyDetected = money.Currency
	}
	if !ext.CurrencyValid || money.ValidateCurrency(ext.CurrencyDetected) != nil {
		return nil, nil, &shared.Error{
			Kind:    shared.KindValidation,
			Code:    shared.CodeInvalidCurrency,
			Field:   "currency_detected",
			Message: fmt.Sprintf("only EUR invoices can be booked, found %q", ext.CurrencyDetected),
		}
	}

	if t, ok := shared.ParseDocumentType(r.str(doc, "document_type")); ok {
		ext.DocumentType = t
	}
	ext.InvoiceNumber = r.str(doc, "invoice_number")
	ext.InvoiceDate = r.date(doc, "invoice_date")
	ext.Issuer = r.party(doc, "issuer")
	ext.Recipient = r.party(doc, "recipient")
	if p := r.str(doc, "provider_type"); p != "" {
		ext.ProviderType = shared.ParseProviderType(p)
	}
	ext.AIModel = r.str(doc, "ai_model")
	ext.BLReferences = r.references(doc["bl_references"])
	ext.Totals = r.totals(doc)
	ext.Shipping = r.shipping(doc)

	charges, err := r.charges(doc["charges"])
	if err != nil {
		return nil, nil, err
	}
	ext.Charges = charges

	if err := validate.Struct(ext); err != nil {
		return nil, nil, toDomainError(err)
	}
	if ext.Totals.Total == nil {
		return nil, nil, shared.Validation(shared.CodeRequiredField, "totals.total", "is required")
	}

	return ext, append(r.warnings, qualityWarnings(ext, opts)...), nil
}

func qualityWarnings(ext *Extraction, opts Options) []shared.Warning {
	var warnings []shared.Warning

	for _, field := range sortedKeys(ext.Confidence) {
		level := ext.Confidence[field]
		if level != shared.ConfidenceNotFound && int(level) < opts.ConfidenceThreshold {
			warnings = append(warnings, shared.Warning{
				Code:    shared.WarningLowConfidence,
				Field:   field,
				Message: fmt.Sprintf("confidence %d is below %d", level, opts.ConfidenceThreshold),
			})
		}
	}

	if !ext.Totals.Total.IsPositive() {
		warnings = append(warnings, shared.Warning{
			Code:    shared.WarningNonPositiveTotal,
			Field:   "totals.total",
			Message: fmt.Sprintf("invoice total is %s", ext.Totals.Total),
		})
	}

	switch refs := ext.AllReferences(); {
	case len(refs) == 0:
		warnings = append(warnings, shared.Warning{
			Code:    shared.WarningMissingBL,
			Field:   "bl_references",
			Message: "no BL reference found, one must be entered manually",
		})
	case len(refs) > 1:
		warnings = append(warnings, shared.Warning{
			Code:    shared.WarningMultipleBL,
			Field:   "bl_references",
			Message: "invoice covers several bookings: " + strings.Join(refs, ", "),
		})
	}

	if ext.Totals.Subtotal != nil {
		diff := ext.ChargeTotal().Sub(*ext.Totals.Subtotal).Abs()
		if diff.Decimal().GreaterThan(opts.ChargeTolerance) {
			warnings = append(warnings, shared.Warning{
				Code:  shared.WarningChargesMismatch,
				Field: "charges",
				Message: fmt.Sprintf("charges sum to %s but the subtotal is %s (difference %s)",
					ext.ChargeTotal(), ext.Totals.Subtotal, diff),
			})
		}
	}
	return warnings
}

func toDomainError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return shared.Validation(shared.CodeInvalidField, "extraction", err.Error())
	}
	fe := verrs[0]
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	message := "is required"
	if fe.Tag() == "min" {
		message = "at least one charge is required"
		return shared.Validation(shared.CodeEmptyCharges, field, message)
	}
	return shared.Validation(shared.CodeRequiredField, field, message)
}

// reader pulls typed values out of the decoded document and records a
// confidence for every field it looks at.
type reader struct {
	scores     map[string]shared.ConfidenceLevel
	confidence map[string]shared.ConfidenceLevel
	warnings   []shared.Warning
}

func (r *reader) found(field string) {
	if score, ok := r.scores[field]; ok {
		r.confidence[field] = score
		return
	}
	r.confidence[field] = shared.ConfidenceHigh
}

func (r *reader) missing(field string) {
	r.confidence[field] = shared.ConfidenceNotFound
}

func (r *reader) malformed(field string, value any) {
	r.confidence[field] = shared.ConfidenceNotFound
	r.warnings = append(r.warnings, shared.Warning{
		Code:    shared.WarningLowConfidence,
		Field:   field,
		Message: fmt.Sprintf("value %v could not be read", value),
	})
}

// str reads the first present key among keys, recording confidence under the first.
func (r *reader) str(doc map[string]any, keys ...string) string {
	return r.strAs(doc, keys[0], keys...)
}

func (r *reader) strAs(doc map[string]any, field string, keys ...string) string {
	for _, k := range keys {
		v, ok := doc[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				r.found(field)
				return s
			}
		case json.Number:
			r.found(field)
			return t.String()
		default:
			r.malformed(field, v)
			return ""
		}
	}
	r.missing(field)
	return ""
}

func (r *reader) boolean(doc map[string]any, key string, fallback bool) bool {
	if b, ok := doc[key].(bool); ok {
		return b
	}
	return fallback
}

func (r *reader) date(doc map[string]any, key string) time.Time {
	raw := r.str(doc, key)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	r.malformed(key, raw)
	return time.Time{}
}

func (r *reader) party(doc map[string]any, side string) Party {
	nested, _ := doc[side].(map[string]any)
	if nested == nil {
		nested = map[string]any{
			"name":   doc[side+"_name"],
			"tax_id": doc[side+"_nif"],
		}
	}
	return Party{
		Name:  r.strAs(nested, side+".name", "name"),
		TaxID: r.strAs(nested, side+".tax_id", "tax_id", "nif"),
	}
}

func (r *reader) amount(doc map[string]any, field, key string) (*money.Money, bool) {
	v, ok := doc[key]
	if !ok || v == nil {
		r.missing(field)
		return nil, true
	}
	d, ok := toDecimal(v)
	if !ok {
		r.malformed(field, v)
		return nil, false
	}
	r.found(field)
	m := money.New(d)
	return &m, true
}

func (r *reader) totals(doc map[string]any) Totals {
	block, _ := doc["totals"].(map[string]any)
	if block == nil {
		block = map[string]any{}
	}
	var t Totals
	t.Subtotal, _ = r.amount(block, "totals.subtotal", "subtotal")
	if tax, _ := r.amount(block, "totals.tax_amount", "tax_amount"); tax != nil {
		t.TaxAmount = *tax
	} else {
		t.TaxAmount = money.Zero()
	}
	t.Total, _ = r.amount(block, "totals.total", "total")
	if v, ok := block["tax_rate"]; ok && v != nil {
		if d, ok := toDecimal(v); ok {
			t.TaxRate = &d
		}
	}
	return t
}

func (r *reader) shipping(doc map[string]any) Shipping {
	block, _ := doc["shipping_details"].(map[string]any)
	if block == nil {
		return Shipping{}
	}
	s := Shipping{
		POLCode: stringOf(block["pol_code"]),
		POLName: stringOf(block["pol_name"]),
		PODCode: stringOf(block["pod_code"]),
		PODName: stringOf(block["pod_name"]),
		Vessel:  stringOf(block["vessel"]),
	}
	if list, ok := block["containers"].([]any); ok {
		for _, c := range list {
			if v := stringOf(c); v != "" {
				s.Containers = append(s.Containers, v)
			}
		}
	}
	return s
}

// references accepts plain strings or objects carrying a bl_number.
func (r *reader) references(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return []string{}
	}
	refs := []string{}
	for _, item := range list {
		var ref string
		switch t := item.(type) {
		case string:
			ref = strings.TrimSpace(t)
		case map[string]any:
			ref = stringOf(t["bl_number"])
			if ref == "" {
				ref = stringOf(t["reference"])
			}
		}
		if ref != "" {
			refs = append(refs, ref)
		}
	}
	return refs
}

func (r *reader) charges(v any) ([]Charge, error) {
	list, ok := v.([]any)
	if !ok {
		return []Charge{}, nil
	}
	charges := make([]Charge, 0, len(list))
	for i, item := range list {
		field := fmt.Sprintf("charges[%d]", i)
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, shared.Validation(shared.CodeInvalidField, field, "charge must be an object")
		}
		d, ok := toDecimal(obj["amount"])
		if !ok {
			return nil, shared.Validation(shared.CodeInvalidField, field+".amount",
				fmt.Sprintf("amount %v is not a number", obj["amount"]))
		}
		charges = append(charges, Charge{
			BookingRef:  stringOf(obj["bl_reference"]),
			Description: stringOf(obj["description"]),
			Category:    shared.ParseChargeCategory(stringOf(obj["category"])),
			Container:   stringOf(obj["container"]),
			Amount:      money.New(d).Round(),
		})
	}
	return charges, nil
}

func readScores(v any) map[string]shared.ConfidenceLevel {
	scores := map[string]shared.ConfidenceLevel{}
	block, _ := v.(map[string]any)
	for field, raw := range block {
		if level, ok := parseConfidence(raw); ok {
			scores[field] = level
		}
	}
	return scores
}

func parseConfidence(v any) (shared.ConfidenceLevel, bool) {
	switch t := v.(type) {
	case string:
		switch strings.ToUpper(strings.TrimSpace(t)) {
		case "HIGH":
			return shared.ConfidenceHigh, true
		case "MEDIUM":
			return shared.ConfidenceMedium, true
		case "LOW":
			return shared.ConfidenceLow, true
		case "NOT_FOUND":
			return shared.ConfidenceNotFound, true
		}
	case json.Number:
		if n, err := t.Int64(); err == nil && n >= 0 && n <= 100 {
			return shared.ConfidenceLevel(n), true
		}
	}
	return 0, false
}

func toDecimal(v any) (decimal.Decimal, bool) {
	var raw string
	switch t := v.(type) {
	case json.Number:
		raw = t.String()
	case string:
		raw = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(t), "€"))
	default:
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

func stringOf(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	}
	return ""
}

func sortedKeys(m map[string]shared.ConfidenceLevel) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
