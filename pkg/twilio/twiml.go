package twilio

import (
	"encoding/xml"
	"fmt"

	contractx "github.com/voxline/custodyline/dialog/contract"
)

// TwiML voice settings used by the whole script.
const (
	sayVoice    = "alice"
	sayLanguage = "en-US"
)

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Gather  *twimlGather
	Say     *twimlSay
	Dial    *twimlDial
	Hangup  *twimlHangup
}

type twimlGather struct {
	XMLName       xml.Name `xml:"Gather"`
	Input         string   `xml:"input,attr"`
	Timeout       int      `xml:"timeout,attr"`
	SpeechTimeout int      `xml:"speechTimeout,attr"`
	Action        string   `xml:"action,attr"`
	Method        string   `xml:"method,attr"`
	Say           twimlSay
}

type twimlSay struct {
	XMLName  xml.Name `xml:"Say"`
	Voice    string   `xml:"voice,attr"`
	Language string   `xml:"language,attr"`
	Text     string   `xml:",chardata"`
}

type twimlDial struct {
	XMLName xml.Name `xml:"Dial"`
	Number  string   `xml:",chardata"`
}

type twimlHangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

// RenderTwiML turns a prompt instruction into the TwiML document Twilio
// expects back from a webhook.
func (c *Client) RenderTwiML(instr contractx.PromptInstruction) (string, error) {
	say := twimlSay{Voice: sayVoice, Language: sayLanguage, Text: instr.Text}

	var doc twimlResponse
	switch instr.Action {
	case contractx.ActionGather:
		doc.Gather = &twimlGather{
			Input:         "speech dtmf",
			Timeout:       int(c.timeout.Seconds()),
			SpeechTimeout: 3,
			Action:        c.gatherAction,
			Method:        "POST",
			Say:           say,
		}
	case contractx.ActionHangup:
		doc.Say = &say
		doc.Hangup = &twimlHangup{}
	case contractx.ActionTransfer:
		doc.Say = &say
		if c.transferNumber != "" {
			doc.Dial = &twimlDial{Number: c.transferNumber}
		} else {
			doc.Hangup = &twimlHangup{}
		}
	default:
		return "", fmt.Errorf("unsupported prompt action %q", instr.Action)
	}

	out, err := xml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal twiml: %w", err)
	}
	return xml.Header + string(out), nil
}
