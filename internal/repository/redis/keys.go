package redis

import "fmt"

const ns = "haus:v1"

func KeyEventSummary(eventID uint64) string {
	return fmt.Sprintf("%s:event:%d:summary", ns, eventID)
}

func KeyEventTips(eventID uint64) string {
	return fmt.Sprintf("%s:event:%d:tips", ns, eventID)
}

func KeyRegistry() string {
	return ns + ":registry"
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func ChannelEventsChanged() string {
	return ns + ":events:changed"
}
