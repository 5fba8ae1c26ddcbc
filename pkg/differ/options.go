package differ

// Option is a functional option for configuring Differ
type Option func(*differ)

// WithTracking enables or disables recording field changes on updates
func WithTracking(enabled bool) Option {
	return func(d *differ) {
		d.tracking = enabled
	}
}
