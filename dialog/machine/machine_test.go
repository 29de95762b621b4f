package machine

import (
	"errors"
	"testing"
	"time"

	contractx "github.com/voxline/custodyline/dialog/contract"
	statex "github.com/voxline/custodyline/dialog/state"
	validatex "github.com/voxline/custodyline/dialog/validate"
)

var testNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

func newMachine(t *testing.T) *Machine {
	t.Helper()
	m, err := New(validatex.New(validatex.Config{}), Config{MaxRetries: 3})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

func gather(raw string) contractx.Event {
	return contractx.Event{CallID: "call-1", Type: contractx.EventGather, RawInput: raw}
}

func digits(d string) contractx.Event {
	return contractx.Event{CallID: "call-1", Type: contractx.EventGather, Digits: d}
}

func step(t *testing.T, m *Machine, sess *statex.CallSession, ev contractx.Event) Outcome {
	t.Helper()
	out, err := m.Step(sess, ev, testNow)
	if err != nil {
		t.Fatalf("Step(%+v) error = %v", ev, err)
	}
	return out
}

// drive walks a session to the recap step with all three fields confirmed.
func drive(t *testing.T, m *Machine, sess *statex.CallSession) {
	t.Helper()
	step(t, m, sess, gather("yes"))
	step(t, m, sess, gather("John"))
	step(t, m, sess, gather("yes"))
	step(t, m, sess, gather("Smith"))
	step(t, m, sess, gather("yes"))
	step(t, m, sess, gather("January 15th, 1990"))
	step(t, m, sess, gather("yes"))
	if sess.State != statex.StateConfirmingAll {
		t.Fatalf("drive ended in state %s", sess.State)
	}
}

func TestConsentAffirmativeAdvances(t *testing.T) {
	t.Parallel()

	m := newMachine(t)
	sess := statex.NewCallSession("call-1", testNow)
	step(t, m, sess, gather("yes"))
	if sess.State != statex.StateCollectingFirstName {
		t.Fatalf("state = %s", sess.State)
	}
}

func TestConsentDTMFAccepts(t *testing.T) {
	t.Parallel()

	m := newMachine(t)
	sess := statex.NewCallSession("call-1", testNow)
	step(t, m, sess, digits("1"))
	if sess.State != statex.StateCollectingFirstName {
		t.Fatalf("state = %s", sess.State)
	}
}

func TestConsentNegativeDeclines(t *testing.T) {
	t.Parallel()

	m := newMachine(t)
	sess := statex.NewCallSession("call-1", testNow)
	step(t, m, sess, gather("no thanks"))
	if sess.State != statex.StateDeclined {
		t.Fatalf("state = %s", sess.State)
	}
	if sess.EndReason != statex.EndDeclined {
		t.Fatalf("end reason = %s", sess.EndReason)
	}
	if sess.FirstName.Status != statex.FieldUnset {
		t.Fatal("field collected despite refusal")
	}
}

func TestConsentRetryExhaustionDeclines(t *testing.T) {
	t.Parallel()

	m := newMachine(t)
	sess := statex.NewCallSession("call-1", testNow)
	for i := 0; i < 3; i++ {
		step(t, m, sess, gather("mumble"))
	}
	if sess.State != statex.StateDeclined {
		t.Fatalf("state = %s, want declined after exhausted retries", sess.State)
	}
}

func TestAmbiguousReplyIsUnrecognized(t *testing.T) {
	t.Parallel()

	m := newMachine(t)
	sess := statex.NewCallSession("call-1", testNow)
	step(t, m, sess, gather("yes no maybe"))
	if sess.State != statex.StateAwaitingConsent {
		t.Fatalf("ambiguous input advanced state to %s", sess.State)
	}
	if sess.RetryCount(statex.RetryConsent) != 1 {
		t.Fatalf("retry count = %d", sess.RetryCount(statex.RetryConsent))
	}
}

func TestCollectValidNameMovesToConfirm(t *testing.T) {
	t.Parallel()

	m := newMachine(t)
	sess := statex.NewCallSession("call-1", testNow)
	step(t, m, sess, gather("yes"))
	step(t, m, sess, gather("john"))

	if sess.State != statex.StateConfirmingFirstName {
		t.Fatalf("state = %s", sess.State)
	}
	if sess.FirstName.Status != statex.FieldPending || sess.FirstName.Value != "John" {
		t.Fatalf("first name = %+v", sess.FirstName)
	}
}

func TestCollectImpossibleDateRetries(t *testing.T) {
	t.Parallel()

	m := newMachine(t)
	sess := statex.NewCallSession("call-1", testNow)
	step(t, m, sess, gather("yes"))
	step(t, m, sess, gather("John"))
	step(t, m, sess, gather("yes"))
	step(t, m, sess, gather("Smith"))
	step(t, m, sess, gather("yes"))

	step(t, m, sess, gather("February 30th, 1990"))
	if sess.State != statex.StateCollectingDate {
		t.Fatalf("state = %s, want still collecting date", sess.State)
	}
	if got := sess.RetryCount(string(statex.FieldDateOfBirth)); got != 1 {
		t.Fatalf("retry count = %d, want 1", got)
	}
	if sess.PromptHint != string(validatex.ReasonUnparseableDate) {
		t.Fatalf("prompt hint = %q", sess.PromptHint)
	}
}

func TestFieldRetryExhaustionEndsCall(t *testing.T) {
	t.Parallel()

	m := newMachine(t)
	sess := statex.NewCallSession("call-1", testNow)
	step(t, m, sess, gather("yes"))
	for i := 0; i < 3; i++ {
		step(t, m, sess, gather("12345"))
	}
	if sess.State != statex.StateEnded {
		t.Fatalf("state = %s", sess.State)
	}
	if sess.EndReason != statex.EndRetriesExceeded {
		t.Fatalf("end reason = %s", sess.EndReason)
	}
}

func TestNegativeConfirmationRedoesFieldWithoutPenalty(t *testing.T) {
	t.Parallel()

	m := newMachine(t)
	sess := statex.NewCallSession("call-1", testNow)
	step(t, m, sess, gather("yes"))
	step(t, m, sess, gather("12345")) // one bad try
	step(t, m, sess, gather("Jon"))
	if sess.State != statex.StateConfirmingFirstName {
		t.Fatalf("state = %s", sess.State)
	}

	step(t, m, sess, gather("no"))
	if sess.State != statex.StateCollectingFirstName {
		t.Fatalf("state after negative confirm = %s", sess.State)
	}
	if sess.FirstName.Status != statex.FieldUnset {
		t.Fatalf("pending value not cleared: %+v", sess.FirstName)
	}
	if got := sess.RetryCount(string(statex.FieldFirstName)); got != 0 {
		t.Fatalf("retry count = %d, want reset to 0", got)
	}
}

func TestConfirmAllNegativeRestartsCollection(t *testing.T) {
	t.Parallel()

	m := newMachine(t)
	sess := statex.NewCallSession("call-1", testNow)
	drive(t, m, sess)

	step(t, m, sess, gather("no"))
	if sess.State != statex.StateCollectingFirstName {
		t.Fatalf("state = %s, want collection restart", sess.State)
	}
	for _, fv := range []statex.FieldValue{sess.FirstName, sess.LastName, sess.DateOfBirth} {
		if fv.Status != statex.FieldUnset {
			t.Fatalf("field not cleared: %+v", fv)
		}
	}
}

func TestConfirmAllAffirmativeRequestsLookup(t *testing.T) {
	t.Parallel()

	m := newMachine(t)
	sess := statex.NewCallSession("call-1", testNow)
	drive(t, m, sess)

	out := step(t, m, sess, gather("yes"))
	if !out.NeedsLookup {
		t.Fatal("outcome did not request lookup")
	}
	if sess.State != statex.StateLookupInProgress {
		t.Fatalf("state = %s", sess.State)
	}
	if !sess.AllConfirmed() {
		t.Fatal("fields not confirmed at lookup time")
	}
	if sess.DateOfBirth.Value != "1990-01-15" {
		t.Fatalf("dob = %q", sess.DateOfBirth.Value)
	}
}

func TestApplyLookupMovesToDelivering(t *testing.T) {
	t.Parallel()

	m := newMachine(t)
	sess := statex.NewCallSession("call-1", testNow)
	drive(t, m, sess)
	step(t, m, sess, gather("yes"))

	res := contractx.LookupResult{Status: contractx.LookupSuccess, StatusText: "In custody, Facility X"}
	if err := m.ApplyLookup(sess, res); err != nil {
		t.Fatalf("ApplyLookup: %v", err)
	}
	if sess.State != statex.StateDelivering {
		t.Fatalf("state = %s", sess.State)
	}
	if sess.Lookup == nil || sess.Lookup.StatusText != "In custody, Facility X" {
		t.Fatalf("lookup = %+v", sess.Lookup)
	}
}

func TestApplyLookupFailureEndsCall(t *testing.T) {
	t.Parallel()

	m := newMachine(t)
	sess := statex.NewCallSession("call-1", testNow)
	drive(t, m, sess)
	step(t, m, sess, gather("yes"))

	res := contractx.LookupResult{Status: contractx.LookupFailed, FailReason: "timeout"}
	if err := m.ApplyLookup(sess, res); err != nil {
		t.Fatalf("ApplyLookup: %v", err)
	}
	if sess.State != statex.StateEnded || sess.EndReason != statex.EndLookupUnavailable {
		t.Fatalf("state = %s reason = %s", sess.State, sess.EndReason)
	}
}

func TestApplyLookupRejectsWrongState(t *testing.T) {
	t.Parallel()

	m := newMachine(t)
	sess := statex.NewCallSession("call-1", testNow)
	err := m.ApplyLookup(sess, contractx.LookupResult{Status: contractx.LookupNotFound})
	if !errors.Is(err, ErrNotAwaiting) {
		t.Fatalf("error = %v, want ErrNotAwaiting", err)
	}
}

func TestHangupFromAnyState(t *testing.T) {
	t.Parallel()

	m := newMachine(t)
	hangupEv := contractx.Event{CallID: "call-1", Type: contractx.EventHangup}

	fresh := statex.NewCallSession("call-1", testNow)
	step(t, m, fresh, hangupEv)
	if fresh.State != statex.StateEnded || fresh.EndReason != statex.EndHangup {
		t.Fatalf("fresh: state=%s reason=%s", fresh.State, fresh.EndReason)
	}

	mid := statex.NewCallSession("call-1", testNow)
	step(t, m, mid, gather("yes"))
	step(t, m, mid, gather("John"))
	step(t, m, mid, hangupEv)
	if mid.State != statex.StateEnded || mid.EndReason != statex.EndHangup {
		t.Fatalf("mid: state=%s reason=%s", mid.State, mid.EndReason)
	}
}

func TestEmptyGatherReissuesWithoutPenalty(t *testing.T) {
	t.Parallel()

	m := newMachine(t)
	sess := statex.NewCallSession("call-1", testNow)
	step(t, m, sess, contractx.Event{CallID: "call-1", Type: contractx.EventGather})
	if sess.State != statex.StateAwaitingConsent {
		t.Fatalf("state = %s", sess.State)
	}
	if sess.RetryCount(statex.RetryConsent) != 0 {
		t.Fatalf("empty gather counted as a retry: %d", sess.RetryCount(statex.RetryConsent))
	}
}

func TestStartEventDoesNotTransition(t *testing.T) {
	t.Parallel()

	m := newMachine(t)
	sess := statex.NewCallSession("call-1", testNow)
	step(t, m, sess, gather("yes"))
	step(t, m, sess, contractx.Event{CallID: "call-1", Type: contractx.EventStart})
	if sess.State != statex.StateCollectingFirstName {
		t.Fatalf("start event moved state to %s", sess.State)
	}
}

func TestReplyClassification(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw    string
		digits string
		want   replyKind
	}{
		{"yes", "", replyAffirmative},
		{"Yeah, that's correct", "", replyAffirmative},
		{"nope", "", replyNegative},
		{"", "1", replyAffirmative},
		{"", "2", replyNegative},
		{"yes no", "", replyUnrecognized},
		{"no", "1", replyUnrecognized},
		{"banana", "", replyUnrecognized},
		{"that's right", "", replyAffirmative},
	}
	for _, tc := range cases {
		r := reply{raw: tc.raw, digits: tc.digits}
		if got := r.classify(); got != tc.want {
			t.Fatalf("classify(%q, %q) = %v, want %v", tc.raw, tc.digits, got, tc.want)
		}
	}
}
