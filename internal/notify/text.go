package notify

import (
	"fmt"

	"nostr-notify/internal/keys"
	"nostr-notify/internal/nostr"
	"nostr-notify/internal/rules"
)

// render turns a confirmed match into presentation data, resolving sender
// profiles through the store.
func (c *Consumer) render(m *rules.Match, id *keys.Identity) Notification {
	profile := c.store.GetOrCreateProfile(m.SenderPub)
	sender := profile.BestDisplayName()
	if sender == "" {
		sender = nostr.ShortID(m.SenderPub)
	}

	n := Notification{
		Type:        m.Type,
		IconRef:     profile.Picture,
		IdentityPub: id.PubKey,
		EventID:     m.EventID,
	}

	switch m.Type {
	case rules.TypeZap:
		n.Title = fmt.Sprintf("⚡ %d sats", m.AmountSats)
		if m.Body != "" {
			n.Title += " (" + m.Body + ")"
		}
		n.Body = "from " + sender
		if m.TargetExcerpt != "" {
			n.Body += " for " + m.TargetExcerpt
		}
		n.Route = "nostr:notifications"
	default:
		n.Title = sender
		n.Body = m.Body
		n.Route = "nostr:room/" + string(m.Room)
	}

	return n
}
