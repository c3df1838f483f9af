package reply

import "github.com/garyellow/picfinder-linebot-go/internal/dataset"

// Kind classifies the answer to one inbound text.
type Kind int

const (
	KindNoMatch Kind = iota
	KindSingleRecord
	KindResultList
)

func (k Kind) String() string {
	switch k {
	case KindSingleRecord:
		return "single"
	case KindResultList:
		return "list"
	default:
		return "none"
	}
}

// Outcome is what the dispatcher decided to answer.
type Outcome struct {
	Kind    Kind
	Record  dataset.Record   // set for KindSingleRecord
	Records []dataset.Record // set for KindResultList
}

// NoMatch is the outcome for an unresolved reply or an empty search.
func NoMatch() Outcome {
	return Outcome{Kind: KindNoMatch}
}

// SingleRecord is the outcome for exactly one record.
func SingleRecord(r dataset.Record) Outcome {
	return Outcome{Kind: KindSingleRecord, Record: r}
}

// FromResults maps a search result list to its outcome by size.
func FromResults(records []dataset.Record) Outcome {
	switch len(records) {
	case 0:
		return NoMatch()
	case 1:
		return SingleRecord(records[0])
	default:
		return Outcome{Kind: KindResultList, Records: records}
	}
}
