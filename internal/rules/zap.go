package rules

import (
	"strconv"
	"strings"

	"nostr-notify/internal/keys"
	"nostr-notify/internal/nostr"
	"nostr-notify/internal/types"
)

// MinZapSats is the notification floor; dust zaps stay silent.
const MinZapSats = 10

// ZapRule matches zap receipts (kind 9735). Three events must resolve: the
// receipt itself, the embedded signed zap request, and the zapped target.
// Any gap fails closed; a later retry may succeed once dependencies arrive.
// The authoritative recipient check is on the independently signed receipt;
// everything recovered from the request payload is informational.
type ZapRule struct{}

func (ZapRule) Matches(ev *types.Event, id *keys.Identity, deps Deps) (*Match, bool) {
	if !fresh(ev.CreatedAt, deps.now()) {
		return nil, false
	}

	if _, ok := deps.Store.ResolveIfPresent(ev.ID); !ok {
		return nil, false
	}

	request := resolveZapRequest(ev, deps)
	if request == nil {
		return nil, false
	}

	targetID := nostr.ZappedEventID(ev)
	if targetID == "" {
		return nil, false
	}
	target, ok := deps.Store.ResolveIfPresent(targetID)
	if !ok {
		return nil, false
	}

	sats := amountSats(request)
	if sats < MinZapSats {
		return nil, false
	}

	// The receipt is the signed confirmation; only it decides who got paid.
	if nostr.ZappedAuthor(ev) != id.PubKey {
		return nil, false
	}

	senderPub, message := zapSenderInfo(request, id)

	return &Match{
		Type:          TypeZap,
		EventID:       ev.ID,
		SenderPub:     senderPub,
		Body:          message,
		AmountSats:    sats,
		TargetExcerpt: firstLine(targetContent(target, id)),
	}, true
}

// resolveZapRequest recovers the kind 9734 request from the receipt's
// description tag, accepting it only when independently signed, and makes
// it addressable in the store.
func resolveZapRequest(receipt *types.Event, deps Deps) *types.Event {
	description := nostr.DescriptionTag(receipt)
	if description == "" {
		return nil
	}
	request, err := nostr.ParseEvent([]byte(description))
	if err != nil || request.Kind != nostr.KindZapRequest {
		return nil
	}
	if !nostr.Verify(request) {
		return nil
	}
	deps.Store.Consume(request, true)
	return request
}

// amountSats reads the request's declared amount tag (millisats).
func amountSats(request *types.Event) int64 {
	raw := nostr.AmountTag(request)
	if raw == "" {
		return 0
	}
	msats, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || msats < 0 {
		return 0
	}
	return msats / 1000
}

// zapSenderInfo recovers the paying author and optional message. Private
// zaps carry a NIP-44 encrypted inner event in the request content; when it
// decrypts, its author and content replace the public ones. Either way the
// data is display-only.
func zapSenderInfo(request *types.Event, id *keys.Identity) (string, string) {
	senderPub := request.PubKey
	message := strings.TrimSpace(request.Content)

	if nostr.AnonTag(request) != "" && request.Content != "" {
		if plaintext, err := id.DecryptNIP44(request.Content, request.PubKey); err == nil {
			if inner, err := nostr.ParseEvent([]byte(plaintext)); err == nil && inner.PubKey != "" {
				senderPub = inner.PubKey
				message = strings.TrimSpace(inner.Content)
			}
		}
	}

	return senderPub, message
}

// targetContent returns the zapped event's content, decrypting it for
// display when the target is itself an encrypted DM.
func targetContent(target *types.Event, id *keys.Identity) string {
	if target.Kind == nostr.KindEncryptedDM {
		counterparty := target.PubKey
		if counterparty == id.PubKey {
			counterparty = nostr.RecipientPubKey(target)
		}
		if body, err := id.Decrypt(target.Content, counterparty); err == nil {
			return body
		}
		return ""
	}
	return target.Content
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
