package pqdecode

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds the prometheus collectors of a decoder. The zero value
// collects nothing, which is what decoders configured without a registerer
// use.
type metrics struct {
	pages             *prometheus.CounterVec
	rows              prometheus.Counter
	decompressedBytes prometheus.Counter
	errors            *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := new(metrics)
	if reg == nil {
		return m, nil
	}

	pages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pqdecode_pages_total",
		Help: "Total pages read from column chunks, by page type",
	}, []string{"type"})

	rows := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pqdecode_rows_total",
		Help: "Total rows decoded into column buffers",
	})

	decompressedBytes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pqdecode_decompressed_bytes_total",
		Help: "Total bytes of page data after decompression",
	})

	decodeErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pqdecode_errors_total",
		Help: "Total decoding errors, by error kind",
	}, []string{"kind"})

	var err error
	if m.pages, err = registerCollector(reg, pages); err != nil {
		return nil, err
	}
	if m.rows, err = registerCollector(reg, rows); err != nil {
		return nil, err
	}
	if m.decompressedBytes, err = registerCollector(reg, decompressedBytes); err != nil {
		return nil, err
	}
	if m.errors, err = registerCollector(reg, decodeErrors); err != nil {
		return nil, err
	}
	return m, nil
}

// registerCollector registers c with reg, or returns the collector previously
// registered by another decoder sharing the registerer.
func registerCollector[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, &Error{Kind: Invalid, Message: "registering decoder metrics", Err: err}
	}
	return c, nil
}

func (m *metrics) page(pageType string, decompressed int) {
	if m.pages != nil {
		m.pages.WithLabelValues(pageType).Inc()
		m.decompressedBytes.Add(float64(decompressed))
	}
}

func (m *metrics) decoded(rows int) {
	if m.rows != nil {
		m.rows.Add(float64(rows))
	}
}

func (m *metrics) failed(err error) {
	if m.errors != nil && err != nil {
		m.errors.WithLabelValues(classify(err).Kind.String()).Inc()
	}
}
