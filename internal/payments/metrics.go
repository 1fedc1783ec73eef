package payments

import (
	"github.com/prometheus/client_golang/prometheus"
)

// notifyOutcomes counts every processed gateway notify by what it did.
// Labels: applied_paid, applied_failed, duplicate, unknown_order,
// invalid_check_value, malformed, store_error.
var notifyOutcomes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "newebpay_notify_total",
		Help: "NewebPay notify callbacks processed, by outcome.",
	},
	[]string{"outcome"},
)

func init() {
	prometheus.MustRegister(notifyOutcomes)
}
