package payment

import "strings"

// MethodKind is the closed set of payment methods the gateway reports.
// Anything it sends that is not listed maps to MethodUnmapped.
type MethodKind string

const (
	MethodBankTransfer MethodKind = "bank_transfer"
	MethodEWallet      MethodKind = "ewallet"
	MethodCard         MethodKind = "card"
	MethodRetailOutlet MethodKind = "retail_outlet"
	MethodQRCode       MethodKind = "qr_code"
	MethodUnmapped     MethodKind = "unmapped"
)

type Method struct {
	Kind    MethodKind
	Channel string
}

// MapMethod translates the provider's method and channel fields.
func MapMethod(providerMethod, providerChannel string) Method {
	channel := strings.ToUpper(strings.TrimSpace(providerChannel))
	switch strings.ToUpper(strings.TrimSpace(providerMethod)) {
	case "BANK_TRANSFER", "VIRTUAL_ACCOUNT", "DIRECT_DEBIT":
		return Method{Kind: MethodBankTransfer, Channel: channel}
	case "EWALLET", "E_WALLET":
		return Method{Kind: MethodEWallet, Channel: channel}
	case "CREDIT_CARD", "DEBIT_CARD", "CARD":
		return Method{Kind: MethodCard, Channel: channel}
	case "RETAIL_OUTLET", "OVER_THE_COUNTER":
		return Method{Kind: MethodRetailOutlet, Channel: channel}
	case "QR_CODE", "QRIS":
		return Method{Kind: MethodQRCode, Channel: channel}
	default:
		return Method{Kind: MethodUnmapped, Channel: channel}
	}
}

func (k MethodKind) IsValid() bool {
	switch k {
	case MethodBankTransfer, MethodEWallet, MethodCard, MethodRetailOutlet, MethodQRCode, MethodUnmapped:
		return true
	default:
		return false
	}
}
