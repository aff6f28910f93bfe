// Package classifier decides whether an invoice is revenue, cost or neither by
// comparing its tax IDs with the company's.
package classifier

import (
	"github.com/freight-commission-ledger/internal/domain/party"
	"github.com/freight-commission-ledger/internal/domain/shared"
)

// Party is one side of an invoice as extracted.
type Party struct {
	Name  string
	TaxID string
}

// Input carries everything the decision needs. The company tax ID is passed in
// explicitly for every call.
type Input struct {
	Issuer            Party
	Recipient         Party
	CompanyTaxID      string
	ProviderTypeGuess shared.ProviderType
}

// Classification is the outcome. Counterparty is the recipient for revenue and
// the issuer for cost; it is empty for OTHER.
type Classification struct {
	DocumentType shared.DocumentType
	Role         shared.Role
	Counterparty Party
	ProviderType shared.ProviderType
	NeedsReview  bool
	Reason       string
}

// IsInvoice reports whether the document produces a ledger entry.
func (c Classification) IsInvoice() bool { return c.Role != "" }

// Classify never fails: every combination of tax IDs yields exactly one type.
func Classify(in Input) Classification {
	company := party.NormalizeTaxID(in.CompanyTaxID)
	issuer := party.NormalizeTaxID(in.Issuer.TaxID)
	recipient := party.NormalizeTaxID(in.Recipient.TaxID)

	issuerIsCompany := company != "" && issuer == company
	recipientIsCompany := company != "" && recipient == company

	switch {
	case issuerIsCompany && recipientIsCompany:
		return Classification{
			DocumentType: shared.DocumentTypeOther,
			NeedsReview:  true,
			Reason:       "issuer and recipient both carry the company tax ID",
		}
	case issuerIsCompany:
		return Classification{
			DocumentType: shared.DocumentTypeClientInvoice,
			Role:         shared.RoleRevenue,
			Counterparty: Party{Name: in.Recipient.Name, TaxID: recipient},
		}
	case recipientIsCompany:
		return Classification{
			DocumentType: shared.DocumentTypeProviderInvoice,
			Role:         shared.RoleCost,
			Counterparty: Party{Name: in.Issuer.Name, TaxID: issuer},
			ProviderType: shared.ParseProviderType(string(in.ProviderTypeGuess)),
		}
	default:
		return Classification{
			DocumentType: shared.DocumentTypeOther,
			Reason:       "neither issuer nor recipient matches the company tax ID",
		}
	}
}

// Override applies a document type chosen by the user during review. The
// counterparty follows the chosen type: the recipient for a client invoice,
// the issuer for a provider invoice.
func Override(in Input, docType shared.DocumentType) Classification {
	switch docType {
	case shared.DocumentTypeClientInvoice:
		return Classification{
			DocumentType: docType,
			Role:         shared.RoleRevenue,
			Counterparty: Party{Name: in.Recipient.Name, TaxID: party.NormalizeTaxID(in.Recipient.TaxID)},
			Reason:       "document type set by user",
		}
	case shared.DocumentTypeProviderInvoice:
		return Classification{
			DocumentType: docType,
			Role:         shared.RoleCost,
			Counterparty: Party{Name: in.Issuer.Name, TaxID: party.NormalizeTaxID(in.Issuer.TaxID)},
			ProviderType: shared.ParseProviderType(string(in.ProviderTypeGuess)),
			Reason:       "document type set by user",
		}
	default:
		return Classification{DocumentType: shared.DocumentTypeOther, Reason: "document type set by user"}
	}
}
