package nodes

import (
	"fmt"

	contractx "github.com/voxline/custodyline/dialog/contract"
	promptx "github.com/voxline/custodyline/dialog/prompt"
	statex "github.com/voxline/custodyline/dialog/state"
)

// FormatPrompt renders the event's reply instruction.
func FormatPrompt(in *GraphState, formatter *promptx.Formatter) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	sess := in.Session
	if sess == nil {
		// Hangup for an unknown or already-purged call.
		sess = statex.NewCallSession(in.Event.CallID, in.Now)
		sess.End(statex.StateEnded, statex.EndHangup)
		in.PromptState = statex.StateEnded
	}

	return GraphOutput{Prompt: formatter.PromptFor(in.PromptState, sess)}, nil
}
