package internaldefs

import (
	"strconv"
	"strings"

	credgate "github.com/MrEthical07/credgate"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   credgate.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for exporters.
type HistogramDef struct {
	ID   credgate.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: credgate.MetricLoginSuccess, Name: "credgate_login_success_total", Help: "Successful password logins."},
	{ID: credgate.MetricLoginFailure, Name: "credgate_login_failure_total", Help: "Failed password logins."},
	{ID: credgate.MetricPasswordRehash, Name: "credgate_password_rehash_total", Help: "Stored hashes upgraded to current parameters at login."},
	{ID: credgate.MetricTokenValid, Name: "credgate_token_valid_total", Help: "Session tokens accepted."},
	{ID: credgate.MetricTokenInvalid, Name: "credgate_token_invalid_total", Help: "Session tokens rejected."},
	{ID: credgate.MetricVerificationCodeSent, Name: "credgate_verification_code_sent_total", Help: "Verification codes issued and delivered."},
	{ID: credgate.MetricVerificationCodeSkipped, Name: "credgate_verification_code_skipped_total", Help: "Verification sends skipped for already verified accounts."},
	{ID: credgate.MetricVerificationSuccess, Name: "credgate_verification_success_total", Help: "Successful email verifications."},
	{ID: credgate.MetricVerificationFailure, Name: "credgate_verification_failure_total", Help: "Failed email verifications."},
	{ID: credgate.MetricResetCodeSent, Name: "credgate_reset_code_sent_total", Help: "Password reset codes issued and delivered."},
	{ID: credgate.MetricResetCheckSuccess, Name: "credgate_reset_check_success_total", Help: "Reset codes that passed a non-consuming check."},
	{ID: credgate.MetricResetCheckFailure, Name: "credgate_reset_check_failure_total", Help: "Reset codes that failed a non-consuming check."},
	{ID: credgate.MetricResetSuccess, Name: "credgate_reset_success_total", Help: "Completed password resets."},
	{ID: credgate.MetricResetFailure, Name: "credgate_reset_failure_total", Help: "Failed password reset completions."},
	{ID: credgate.MetricDeliveryFailure, Name: "credgate_delivery_failure_total", Help: "Challenge codes the notifier failed to deliver."},
	{ID: credgate.MetricAccountCreated, Name: "credgate_account_created_total", Help: "Registered accounts."},
	{ID: credgate.MetricAccountDuplicate, Name: "credgate_account_duplicate_total", Help: "Registrations rejected for an existing email."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: credgate.MetricValidateLatency, Name: "credgate_validate_latency_seconds", Help: "Session token validation latency."},
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const AuditDroppedName = "credgate_audit_dropped_total"

// AuditDroppedHelp describes AuditDroppedName.
const AuditDroppedHelp = "Audit events dropped because the dispatcher buffer was full."

// BucketCount is the number of histogram buckets, the overflow bucket
// included.
const BucketCount = 8

// UpperBounds returns the finite bucket bounds in seconds. The overflow
// bucket has no entry.
func UpperBounds() []float64 {
	bounds := credgate.HistogramBounds()
	out := make([]float64, len(bounds))
	for i, d := range bounds {
		out[i] = d.Seconds()
	}
	return out
}

// BoundSuffixes returns instrument-name-safe labels for every bucket,
// ending with "inf".
func BoundSuffixes() []string {
	bounds := UpperBounds()
	out := make([]string, 0, len(bounds)+1)
	for _, b := range bounds {
		out = append(out, strings.ReplaceAll(strconv.FormatFloat(b, 'f', -1, 64), ".", "_"))
	}
	return append(out, "inf")
}

// NormalizeBuckets copies raw into a fixed-size array, padding with zeros.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
