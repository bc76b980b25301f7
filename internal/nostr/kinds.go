package nostr

// Event kinds handled by the notification pipeline.
const (
	KindProfileMetadata = 0
	KindContactList     = 3
	KindEncryptedDM     = 4 // NIP-04 direct message
	KindSeal            = 13
	KindChatMessage     = 14 // NIP-17 chat rumor
	KindZapRequest      = 9734
	KindZapReceipt      = 9735
	KindGiftWrap        = 1059
)

// IsWrapper reports whether a kind is an encryption layer rather than
// a terminal event.
func IsWrapper(kind int) bool {
	return kind == KindGiftWrap || kind == KindSeal
}
