// Package metrics defines the sinks that record forecast activity. Sinks
// such as PromSink and InfluxSink implement MetricsSink and may implement the
// optional recorder interfaces; NewMetricsSink combines several configured
// sinks into a MultiSink.
package metrics
