package models

import "strings"

// NormalizeKey canonicalizes natural keys so lookups ignore formatting.
// Card numbers and IBANs drop spaces; IBANs are upper-cased. Chain
// addresses are case-sensitive on some networks and kept verbatim.
func NormalizeKey(kind AccountKind, key string) string {
	key = strings.TrimSpace(key)
	switch kind {
	case AccountKindCard:
		return strings.ReplaceAll(key, " ", "")
	case AccountKindBank:
		return strings.ToUpper(strings.ReplaceAll(key, " ", ""))
	}
	return key
}

// MaskCard renders "**** 1234". Empty input stays empty.
func MaskCard(number string) string {
	number = strings.ReplaceAll(strings.TrimSpace(number), " ", "")
	if number == "" {
		return ""
	}
	if len(number) < 4 {
		return "****"
	}
	return "**** " + number[len(number)-4:]
}

// MaskIban renders "AE07 **** 3456". Empty input stays empty.
func MaskIban(iban string) string {
	iban = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(iban), " ", ""))
	if iban == "" {
		return ""
	}
	if len(iban) <= 8 {
		return "****"
	}
	return iban[:4] + " **** " + iban[len(iban)-4:]
}

// MaskAddress renders "TXyzA...9fK2k". Addresses too short for that keep
// only their last four characters.
func MaskAddress(address string) string {
	address = strings.TrimSpace(address)
	switch {
	case address == "":
		return ""
	case len(address) <= 4:
		return "****"
	case len(address) <= 10:
		return "..." + address[len(address)-4:]
	}
	return address[:5] + "..." + address[len(address)-5:]
}

// MaskKey masks a natural key according to its account kind.
func MaskKey(kind AccountKind, key string) string {
	if key == "" {
		return ""
	}
	switch kind {
	case AccountKindCard:
		return MaskCard(key)
	case AccountKindBank:
		return MaskIban(key)
	case AccountKindCrypto:
		return MaskAddress(key)
	}
	return key
}
