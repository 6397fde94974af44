package internaldefs

import (
	goBiometric "github.com/MrEthical07/goBiometric"
)

// CounterDef defines a public type used by goBiometric APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   goBiometric.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by goBiometric APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   goBiometric.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the arbitration broker.
var CounterDefs = []CounterDef{
	{ID: goBiometric.MetricAuthRequested, Name: "gobiometric_auth_requested_total", Help: "Admitted authentication attempts."},
	{ID: goBiometric.MetricAuthRejected, Name: "gobiometric_auth_rejected_total", Help: "Attempts rejected before any sensing started."},
	{ID: goBiometric.MetricAuthStarted, Name: "gobiometric_auth_started_total", Help: "Attempts whose readiness handshake completed."},
	{ID: goBiometric.MetricAuthSucceeded, Name: "gobiometric_auth_succeeded_total", Help: "Recognitions reported by providers."},
	{ID: goBiometric.MetricAuthConfirmed, Name: "gobiometric_auth_confirmed_total", Help: "Recognitions confirmed by an explicit tap."},
	{ID: goBiometric.MetricAuthFailed, Name: "gobiometric_auth_failed_total", Help: "Failed recognition rounds, including sensing timeouts."},
	{ID: goBiometric.MetricAuthCanceled, Name: "gobiometric_auth_canceled_total", Help: "Attempts resolved as canceled."},
	{ID: goBiometric.MetricNegativeButton, Name: "gobiometric_negative_button_total", Help: "Prompt dismissals through the negative button."},
	{ID: goBiometric.MetricUserCanceled, Name: "gobiometric_user_canceled_total", Help: "Prompt dismissals through tap-outside or back."},
	{ID: goBiometric.MetricTryAgain, Name: "gobiometric_try_again_total", Help: "Try-again taps after a passive-modality miss."},
	{ID: goBiometric.MetricTaskSwitchCancel, Name: "gobiometric_task_switch_cancel_total", Help: "Attempts canceled because the caller lost the foreground."},
	{ID: goBiometric.MetricHardwareError, Name: "gobiometric_hardware_error_total", Help: "Hard provider errors other than lockout."},
	{ID: goBiometric.MetricLockout, Name: "gobiometric_lockout_total", Help: "Lockout errors reported by providers."},
	{ID: goBiometric.MetricFallbackLaunched, Name: "gobiometric_fallback_launched_total", Help: "Device-credential fallback launches."},
	{ID: goBiometric.MetricFallbackSucceeded, Name: "gobiometric_fallback_succeeded_total", Help: "Device-credential flows resolved as authenticated."},
	{ID: goBiometric.MetricFallbackError, Name: "gobiometric_fallback_error_total", Help: "Device-credential flows resolved with an error."},
}

// AuditDroppedName is an exported constant or variable used by the arbitration broker.
const AuditDroppedName = "gobiometric_audit_dropped_total"

// AuditDroppedHelp is an exported constant or variable used by the arbitration broker.
const AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."

// HistogramDefs is an exported constant or variable used by the arbitration broker.
var HistogramDefs = []HistogramDef{
	{ID: goBiometric.MetricAuthLatency, Name: "gobiometric_auth_latency_seconds", Help: "Admission-to-resolution latency histogram."},
	{ID: goBiometric.MetricConfirmLatency, Name: "gobiometric_confirm_latency_seconds", Help: "Recognition-to-confirmation latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the arbitration broker.
var HistogramBounds = []string{
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"2.5",
	"5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the arbitration broker.
var HistogramBoundSuffix = []string{
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"1",
	"2_5",
	"5",
	"inf",
}
