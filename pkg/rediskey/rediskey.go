package rediskey

import "fmt"

const (
	ScoringPrefix  = "scoring"
	SequencePrefix = "seq"
)

func NamespaceKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

// BuildFreezeFlagKey returns "scoring:frozen"
func BuildFreezeFlagKey() string {
	return NamespaceKey(ScoringPrefix, "frozen")
}

// BuildSequenceKey returns "seq:{name}"
func BuildSequenceKey(name string) string {
	return NamespaceKey(SequencePrefix, name)
}
