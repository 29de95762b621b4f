package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/greeting.txt
	greetingRaw string

	//go:embed template/collect_first_name.txt
	collectFirstNameRaw string

	//go:embed template/collect_last_name.txt
	collectLastNameRaw string

	//go:embed template/collect_date.txt
	collectDateRaw string

	//go:embed template/confirm_field.txt
	confirmFieldRaw string

	//go:embed template/recap.txt
	recapRaw string

	//go:embed template/searching.txt
	searchingRaw string

	//go:embed template/result_found.txt
	resultFoundRaw string

	//go:embed template/result_not_found.txt
	resultNotFoundRaw string

	//go:embed template/lookup_unavailable.txt
	lookupUnavailableRaw string

	//go:embed template/retries_exceeded.txt
	retriesExceededRaw string

	//go:embed template/declined.txt
	declinedRaw string

	//go:embed template/fault.txt
	faultRaw string
)

// PromptSet holds all spoken script texts. Fields with %s verbs are filled by
// the formatter.
type PromptSet struct {
	Greeting          string
	CollectFirstName  string
	CollectLastName   string
	CollectDate       string
	ConfirmField      string
	Recap             string
	Searching         string
	ResultFound       string
	ResultNotFound    string
	LookupUnavailable string
	RetriesExceeded   string
	Declined          string
	Fault             string
}

// LoadPromptSet returns the embedded script with surrounding whitespace
// trimmed. Safe to call concurrently.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Greeting:          strings.TrimSpace(greetingRaw),
		CollectFirstName:  strings.TrimSpace(collectFirstNameRaw),
		CollectLastName:   strings.TrimSpace(collectLastNameRaw),
		CollectDate:       strings.TrimSpace(collectDateRaw),
		ConfirmField:      strings.TrimSpace(confirmFieldRaw),
		Recap:             strings.TrimSpace(recapRaw),
		Searching:         strings.TrimSpace(searchingRaw),
		ResultFound:       strings.TrimSpace(resultFoundRaw),
		ResultNotFound:    strings.TrimSpace(resultNotFoundRaw),
		LookupUnavailable: strings.TrimSpace(lookupUnavailableRaw),
		RetriesExceeded:   strings.TrimSpace(retriesExceededRaw),
		Declined:          strings.TrimSpace(declinedRaw),
		Fault:             strings.TrimSpace(faultRaw),
	}
}
