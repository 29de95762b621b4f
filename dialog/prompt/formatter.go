// Package prompt turns call state into the next spoken instruction.
package prompt

import (
	"fmt"
	"time"

	contractx "github.com/voxline/custodyline/dialog/contract"
	statex "github.com/voxline/custodyline/dialog/state"
	validatex "github.com/voxline/custodyline/dialog/validate"
)

// clarifiers prefix a re-prompt after rejected input, keyed by the
// validator's rejection reason.
var clarifiers = map[string]string{
	string(validatex.ReasonEmpty):           "I didn't catch that.",
	string(validatex.ReasonNotAName):        "That didn't sound like a name.",
	string(validatex.ReasonTooShort):        "I only caught part of that.",
	string(validatex.ReasonUnparseableDate): "I couldn't make out that date.",
	string(validatex.ReasonFutureDate):      "That date is in the future.",
	string(validatex.ReasonTooOld):          "That date seems too far in the past.",
}

// Formatter renders PromptInstruction values from session state. Pure: the
// same state and session always produce the same instruction.
type Formatter struct {
	prompts PromptSet
}

func NewFormatter() *Formatter {
	return &Formatter{prompts: LoadPromptSet()}
}

// PromptFor returns the instruction the transport should render for sess in
// the given state.
func (f *Formatter) PromptFor(state statex.CallState, sess *statex.CallSession) contractx.PromptInstruction {
	switch state {
	case statex.StateAwaitingConsent:
		return f.gather(f.prompts.Greeting, "consent", sess)

	case statex.StateCollectingFirstName:
		return f.gather(f.prompts.CollectFirstName, string(statex.FieldFirstName), sess)
	case statex.StateConfirmingFirstName:
		text := fmt.Sprintf(f.prompts.ConfirmField, "first name", sess.FirstName.Value)
		return f.gather(text, string(statex.FieldFirstName), sess)

	case statex.StateCollectingLastName:
		return f.gather(f.prompts.CollectLastName, string(statex.FieldLastName), sess)
	case statex.StateConfirmingLastName:
		text := fmt.Sprintf(f.prompts.ConfirmField, "last name", sess.LastName.Value)
		return f.gather(text, string(statex.FieldLastName), sess)

	case statex.StateCollectingDate:
		return f.gather(f.prompts.CollectDate, string(statex.FieldDateOfBirth), sess)
	case statex.StateConfirmingDate:
		text := fmt.Sprintf(f.prompts.ConfirmField, "date of birth", SpokenDate(sess.DateOfBirth.Value))
		return f.gather(text, string(statex.FieldDateOfBirth), sess)

	case statex.StateConfirmingAll:
		text := fmt.Sprintf(f.prompts.Recap,
			sess.FirstName.Value, sess.LastName.Value, SpokenDate(sess.DateOfBirth.Value))
		return f.gather(text, "confirmation", sess)

	case statex.StateLookupInProgress:
		// Holding prompt while the lookup runs; no answer is expected.
		return contractx.PromptInstruction{
			Action: contractx.ActionGather,
			Text:   f.prompts.Searching,
		}

	case statex.StateDelivering:
		return f.deliver(sess)

	case statex.StateDeclined:
		return hangup(f.prompts.Declined)

	case statex.StateEnded:
		return f.ended(sess)

	default:
		return transfer(f.prompts.Fault)
	}
}

func (f *Formatter) deliver(sess *statex.CallSession) contractx.PromptInstruction {
	if sess.Lookup == nil {
		return transfer(f.prompts.Fault)
	}
	switch sess.Lookup.Status {
	case contractx.LookupSuccess:
		return hangup(fmt.Sprintf(f.prompts.ResultFound, sess.Lookup.StatusText))
	case contractx.LookupNotFound:
		return hangup(f.prompts.ResultNotFound)
	default:
		return hangup(f.prompts.LookupUnavailable)
	}
}

func (f *Formatter) ended(sess *statex.CallSession) contractx.PromptInstruction {
	switch sess.EndReason {
	case statex.EndRetriesExceeded:
		return hangup(f.prompts.RetriesExceeded)
	case statex.EndLookupUnavailable:
		return hangup(f.prompts.LookupUnavailable)
	case statex.EndFault:
		return transfer(f.prompts.Fault)
	default:
		return hangup(f.prompts.Declined)
	}
}

func (f *Formatter) gather(text, field string, sess *statex.CallSession) contractx.PromptInstruction {
	if sess != nil && sess.PromptHint != "" {
		if clarifier, ok := clarifiers[sess.PromptHint]; ok {
			text = clarifier + " " + text
		}
	}
	return contractx.PromptInstruction{
		Action:        contractx.ActionGather,
		Text:          text,
		ExpectedField: field,
	}
}

func hangup(text string) contractx.PromptInstruction {
	return contractx.PromptInstruction{Action: contractx.ActionHangup, Text: text}
}

func transfer(text string) contractx.PromptInstruction {
	return contractx.PromptInstruction{Action: contractx.ActionTransfer, Text: text}
}

// SpokenDate renders a canonical calendar date the way the script reads it
// aloud ("January 15, 1990"). Unparseable input is returned unchanged.
func SpokenDate(canonical string) string {
	t, err := time.Parse(validatex.DateLayout, canonical)
	if err != nil {
		return canonical
	}
	return t.Format("January 2, 2006")
}
