package mqtt

import "strings"

// DefaultTopicPrefix is used when no prefix is configured.
const DefaultTopicPrefix = "sqlez"

// Topics builds the sqlez topic hierarchy under a configurable prefix:
//
//	{prefix}/status              retained online/offline status
//	{prefix}/events/{kind}       store lifecycle events
//
// The zero value uses DefaultTopicPrefix.
type Topics struct {
	Prefix string
}

// NewTopics returns topic builders rooted at prefix. Surrounding slashes are
// trimmed.
func NewTopics(prefix string) Topics {
	return Topics{Prefix: strings.Trim(prefix, "/")}
}

func (t Topics) root() string {
	if t.Prefix == "" {
		return DefaultTopicPrefix
	}
	return t.Prefix
}

// Status returns the retained status topic, also used as the Last Will topic.
//
// Example: sqlez/status
func (t Topics) Status() string {
	return t.root() + "/status"
}

// Event returns the topic for one kind of lifecycle event.
//
// Example: sqlez/events/migration
func (t Topics) Event(kind string) string {
	return t.root() + "/events/" + kind
}

// AllEvents returns a wildcard subscription for every lifecycle event.
//
// Example: sqlez/events/+
func (t Topics) AllEvents() string {
	return t.root() + "/events/+"
}
