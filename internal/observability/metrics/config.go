package metrics

import "go.opentelemetry.io/otel/attribute"

// Config carries the static labels attached to every metric.
type Config struct {
	ServiceName string
	Environment string
}

// Low-cardinality attribute keys allowed on metrics. Anything else is
// dropped so a buggy caller cannot explode series cardinality.
var allowedAttributeKeys = map[attribute.Key]struct{}{
	"endpoint":    {},
	"status_code": {},
	"result":      {},
	"method":      {},
}

// FilterAttributes keeps only the allowed metric attributes.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedAttributeKeys[attr.Key]; ok {
			filtered = append(filtered, attr)
		}
	}
	return filtered
}
