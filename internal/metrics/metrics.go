// Package metrics exposes Prometheus instrumentation for vault operations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CapsulesCreated counts capsules sealed since process start.
	CapsulesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chronoseal",
		Name:      "capsules_created_total",
		Help:      "Number of capsules sealed.",
	})

	// CapsulesDecrypted counts successful decryptions.
	CapsulesDecrypted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chronoseal",
		Name:      "capsules_decrypted_total",
		Help:      "Number of capsules successfully decrypted.",
	})

	// DecryptDenied counts rejected decrypt attempts by reason.
	DecryptDenied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chronoseal",
		Name:      "decrypt_denied_total",
		Help:      "Decrypt attempts rejected, by reason.",
	}, []string{"reason"})

	// CapsulesStored tracks the current store size.
	CapsulesStored = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "chronoseal",
		Name:      "capsules_stored",
		Help:      "Number of capsule records in the store.",
	})

	// UnlockNotifications counts unlock webhook deliveries by outcome.
	UnlockNotifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chronoseal",
		Name:      "unlock_notifications_total",
		Help:      "Unlock notifications sent, by outcome.",
	}, []string{"outcome"})
)
