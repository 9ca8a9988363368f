package eventtree

import (
	"sync/atomic"

	"github.com/kataras/golog"
)

// ExceptionReporter is the single sink consulted whenever a listener panics
// or returns ResultException (spec §6: "a single sink handle_exception").
// Dispatch never surfaces a listener's failure to the caller of Node.Call.
type ExceptionReporter interface {
	HandleException(node *Node, eventType EventType, err error)
}

// DefaultReporter logs listener exceptions through github.com/kataras/golog,
// the logging library used elsewhere in the retrieval pack
// (jemygraw-langgraphgo) for exactly this kind of structured operational
// log line.
type DefaultReporter struct {
	log *golog.Logger
}

// NewDefaultReporter builds a DefaultReporter backed by a fresh golog.Logger.
func NewDefaultReporter() *DefaultReporter {
	return &DefaultReporter{log: golog.New()}
}

// HandleException implements ExceptionReporter.
func (r *DefaultReporter) HandleException(node *Node, eventType EventType, err error) {
	name := "<nil>"
	if node != nil {
		name = node.Name()
	}
	r.log.Errorf("eventtree: listener exception node=%s event=%s err=%s", name, eventType, err)
}

var _ ExceptionReporter = (*DefaultReporter)(nil)

var globalReporter atomic.Pointer[ExceptionReporter]

func init() {
	var r ExceptionReporter = NewDefaultReporter()
	globalReporter.Store(&r)
}

// SetExceptionReporter replaces the process-wide exception reporter used by
// every Node's dispatch path.
func SetExceptionReporter(r ExceptionReporter) {
	globalReporter.Store(&r)
}

func currentReporter() ExceptionReporter {
	return *globalReporter.Load()
}
