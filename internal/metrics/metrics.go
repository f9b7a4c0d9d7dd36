// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CaptureFramesTotal counts frames read from a capture source
	CaptureFramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batadv_capture_frames_total",
			Help: "Total number of frames read from capture sources",
		},
		[]string{"source"},
	)

	// FilterSkippedTotal counts frames rejected by the BPF ethertype pre-filter
	FilterSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "batadv_filter_skipped_total",
			Help: "Total number of frames skipped by the ethertype pre-filter",
		},
	)

	// DecodedPacketsTotal counts decoded payloads by dispatcher protocol label
	DecodedPacketsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batadv_decoded_packets_total",
			Help: "Total number of decoded batadv payloads",
		},
		[]string{"protocol"},
	)

	// AnnotationsTotal counts tree annotations by code
	AnnotationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batadv_annotations_total",
			Help: "Total number of annotations attached to decoded trees",
		},
		[]string{"code"},
	)

	// TapHeadersTotal counts headers observed by the statistics tap
	TapHeadersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batadv_tap_headers_total",
			Help: "Total number of packet headers delivered to taps",
		},
		[]string{"protocol", "version"},
	)

	// DecodeLatencySeconds measures the time spent decoding one frame
	DecodeLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "batadv_decode_latency_seconds",
			Help:    "Latency of decoding one frame in seconds",
			Buckets: prometheus.ExponentialBuckets(0.000001, 2, 20), // 1µs to ~1s
		},
		[]string{"worker"},
	)

	// ReassemblyActiveAssemblies tracks fragment sets awaiting completion
	ReassemblyActiveAssemblies = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "batadv_reassembly_active_assemblies",
			Help: "Number of fragment assemblies still collecting parts",
		},
	)

	// ReassembledTotal counts completed fragment sets
	ReassembledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "batadv_reassembled_total",
			Help: "Total number of reassembled fragment sets",
		},
	)

	// FragmentRejects counts fragments refused by the reassembler
	FragmentRejects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batadv_fragment_rejects_total",
			Help: "Total number of fragments refused by the reassembler",
		},
		[]string{"reason"},
	)

	// ReassemblyEvictions counts assemblies dropped before completion
	ReassemblyEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batadv_reassembly_evictions_total",
			Help: "Total number of incomplete assemblies dropped",
		},
		[]string{"reason"},
	)

	// SinkBatchSize tracks Kafka batch size distribution
	SinkBatchSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "batadv_sink_batch_size",
			Help:    "Number of records sent per sink batch",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1, 2, 4, ..., 2048
		},
		[]string{"sink"},
	)

	// SinkErrorsTotal counts sink errors by name and error type
	SinkErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batadv_sink_errors_total",
			Help: "Total number of sink errors",
		},
		[]string{"sink", "error_type"},
	)

	// OriginatorTableSize tracks the number of originators currently known
	OriginatorTableSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "batadv_originator_table_size",
			Help: "Current number of originators in the originator table",
		},
	)
)
