// Package metrics holds the process-wide Prometheus collectors.
package metrics

const namespace = "vecrec"
