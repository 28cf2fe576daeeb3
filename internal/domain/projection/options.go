package projection

import "github.com/prometheus/client_golang/prometheus"

// Option applies a configuration option to the Projector.
type Option func(*Projector)

// WithConstLabels attaches constant labels to both room families.
func WithConstLabels(labels map[string]string) Option {
	return func(p *Projector) {
		if len(labels) > 0 {
			p.constLabels = prometheus.Labels(labels)
		}
	}
}
