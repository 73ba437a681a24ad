package cache

import "strings"

// KeyInvoiceSnapshot is the read-through key for a stored invoice.
func KeyInvoiceSnapshot(id string) string {
	return "invoice:snap:" + id
}

// KeyInvoiceLock guards read-modify-write of one invoice.
func KeyInvoiceLock(id string) string {
	return "invoice:lock:" + id
}

// KeyInvoiceSequence counts issued numbers for a prefix within a month (YYYYMM).
func KeyInvoiceSequence(prefix, month string) string {
	return "invoice:seq:" + strings.ToUpper(prefix) + ":" + month
}

// KeyFXRates holds the fresh rate table for a base currency.
func KeyFXRates(base string) string {
	return "fx:rates:" + strings.ToUpper(base)
}

// KeyFXStale holds the last good rate table, without expiry.
func KeyFXStale(base string) string {
	return "fx:stale:" + strings.ToUpper(base)
}

// KeyFXWarmLock lets one worker replica refresh rates at a time.
const KeyFXWarmLock = "fx:warm:lock"

// PrefixIdempotency namespaces Idempotency-Key hashes.
const PrefixIdempotency = "invoice:idem:"
