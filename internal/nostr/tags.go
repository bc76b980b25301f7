package nostr

import "nostr-notify/internal/types"

// FirstTagValue returns the value of the first tag with the given name,
// or "" when absent.
func FirstTagValue(evt *types.Event, name string) string {
	for _, tag := range evt.Tags {
		if len(tag) > 1 && tag[0] == name {
			return tag[1]
		}
	}
	return ""
}

// TagValues returns every value carried by tags with the given name.
func TagValues(evt *types.Event, name string) []string {
	var values []string
	for _, tag := range evt.Tags {
		if len(tag) > 1 && tag[0] == name {
			values = append(values, tag[1])
		}
	}
	return values
}

// RecipientPubKey returns the wrap/DM recipient: the first "p" tag value.
func RecipientPubKey(evt *types.Event) string {
	return FirstTagValue(evt, "p")
}

// TaggedPubKeys returns all "p" tag values (chat participants, zap targets).
func TaggedPubKeys(evt *types.Event) []string {
	return TagValues(evt, "p")
}

// ZappedEventID returns the id of the event a zap receipt points at.
func ZappedEventID(evt *types.Event) string {
	return FirstTagValue(evt, "e")
}

// ZappedAuthor returns the pubkey being paid in a zap receipt.
func ZappedAuthor(evt *types.Event) string {
	return FirstTagValue(evt, "p")
}

// DescriptionTag returns the embedded zap request JSON of a zap receipt.
func DescriptionTag(evt *types.Event) string {
	return FirstTagValue(evt, "description")
}

// AnonTag returns the NIP-57 private zap payload, when present.
func AnonTag(evt *types.Event) string {
	return FirstTagValue(evt, "anon")
}

// AmountTag returns the declared amount (millisats, decimal string) of a
// zap request, or "" when the tag is absent.
func AmountTag(evt *types.Event) string {
	return FirstTagValue(evt, "amount")
}
