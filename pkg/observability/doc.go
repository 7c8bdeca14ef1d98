/*
Package observability exports engine activity as Prometheus metrics.

Metrics are collected through domain.LifecycleHooks, so any engine can be
instrumented without depending on this package:

	m := observability.NewMetrics(prometheus.DefaultRegisterer)
	eng, _ := tubelife.New(tubelife.WithLifecycleHooks(m.Hooks()))
*/
package observability
