package telemetry

type ActionCategory int

const (
	Compiling = iota
	Fuzzing
	PropertyChecking
	CorpusSync
	Reporting
)

func (a ActionCategory) String() string {
	switch a {
	case Compiling:
		return "compiling"
	case Fuzzing:
		return "fuzzing"
	case PropertyChecking:
		return "property_checking"
	case CorpusSync:
		return "corpus_sync"
	case Reporting:
		return "reporting"
	default:
		return "unknown"
	}
}
