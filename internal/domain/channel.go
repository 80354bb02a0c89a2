package domain

import "strings"

// Channel represents the notification delivery channel
type Channel string

const (
	// ChannelAll is the meta channel that stands for every concrete channel
	ChannelAll      Channel = "all"
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelEmail    Channel = "email"
	ChannelPush     Channel = "push"
)

// concreteChannels is the canonical order used when expanding ChannelAll and
// when reporting results.
var concreteChannels = []Channel{ChannelSMS, ChannelWhatsApp, ChannelEmail, ChannelPush}

// ConcreteChannels returns every concrete channel in canonical order.
func ConcreteChannels() []Channel {
	out := make([]Channel, len(concreteChannels))
	copy(out, concreteChannels)
	return out
}

func (c Channel) IsValid() bool {
	return c == ChannelAll || c.IsConcrete()
}

// IsConcrete reports whether c names a real delivery medium.
func (c Channel) IsConcrete() bool {
	switch c {
	case ChannelSMS, ChannelWhatsApp, ChannelEmail, ChannelPush:
		return true
	}
	return false
}

// Order returns the canonical position of a concrete channel, or -1.
func (c Channel) Order() int {
	for i, ch := range concreteChannels {
		if ch == c {
			return i
		}
	}
	return -1
}

// ParseChannel converts user input such as "SMS" or " WhatsApp " into a Channel.
func ParseChannel(s string) (Channel, error) {
	c := Channel(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", NewValidationError("channels", "unknown channel "+s)
	}
	return c, nil
}

// ExpandChannels resolves the requested channels into the effective concrete
// set: ChannelAll becomes every concrete channel and duplicates collapse.
// Values are not validated here; callers run NotificationRequest.Validate
// first, which rejects unknown channels.
func ExpandChannels(requested []Channel) []Channel {
	seen := make(map[Channel]bool, len(requested))
	out := make([]Channel, 0, len(requested))

	add := func(c Channel) {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}

	for _, c := range requested {
		if c == ChannelAll {
			for _, cc := range concreteChannels {
				add(cc)
			}
			continue
		}
		add(c)
	}
	return out
}

// ContainsAll reports whether the meta channel was requested.
func ContainsAll(requested []Channel) bool {
	for _, c := range requested {
		if c == ChannelAll {
			return true
		}
	}
	return false
}
