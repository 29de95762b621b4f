package machine

import (
	"strings"
	"unicode"

	contractx "github.com/voxline/custodyline/dialog/contract"
)

// Token sets and DTMF digits come from the original phone script: 1/yes-like
// words accept, 2/no-like words refuse.
var (
	affirmativeTokens = map[string]bool{
		"yes": true, "yeah": true, "yep": true,
		"okay": true, "ok": true, "sure": true,
		"correct": true, "right": true,
	}
	negativeTokens = map[string]bool{
		"no": true, "nope": true, "stop": true, "wrong": true, "incorrect": true,
	}
)

const (
	digitAffirm = "1"
	digitNegate = "2"
)

type replyKind int

const (
	replyUnrecognized replyKind = iota
	replyAffirmative
	replyNegative
)

// reply is one caller answer: the transcribed speech plus any DTMF digits.
type reply struct {
	raw    string
	digits string
}

func parseReply(ev contractx.Event) reply {
	return reply{
		raw:    strings.TrimSpace(ev.RawInput),
		digits: strings.TrimSpace(ev.Digits),
	}
}

func (r reply) empty() bool {
	return r.raw == "" && r.digits == ""
}

// classify maps the answer to yes/no/unrecognized. When speech matches both
// token sets the answer is ambiguous and we ask again rather than guess.
func (r reply) classify() replyKind {
	affirm := r.digits == digitAffirm
	negate := r.digits == digitNegate

	for _, word := range splitWords(r.raw) {
		if affirmativeTokens[word] {
			affirm = true
		}
		if negativeTokens[word] {
			negate = true
		}
	}

	switch {
	case affirm && negate:
		return replyUnrecognized
	case affirm:
		return replyAffirmative
	case negate:
		return replyNegative
	default:
		return replyUnrecognized
	}
}

func splitWords(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
