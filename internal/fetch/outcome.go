package fetch

import (
	"errors"
	"fmt"
)

// Kind classifies a single provider attempt.
type Kind int

const (
	Success Kind = iota
	NotFound
	Transient
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case NotFound:
		return "not-found"
	case Transient:
		return "transient-error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Outcome is the result of one attempt in a fallback chain. Err is set for
// Transient outcomes and may carry a reason for NotFound.
type Outcome struct {
	Kind Kind
	Err  error
}

// OK reports a successful attempt.
func OK() Outcome { return Outcome{Kind: Success} }

// Missing reports that the provider answered but had nothing for the query.
func Missing(reason string) Outcome {
	return Outcome{Kind: NotFound, Err: errors.New(reason)}
}

// Failed reports an attempt that errored.
func Failed(err error) Outcome { return Outcome{Kind: Transient, Err: err} }

// Ok reports whether the attempt succeeded.
func (o Outcome) Ok() bool { return o.Kind == Success }

func (o Outcome) String() string {
	if o.Err == nil {
		return o.Kind.String()
	}
	return fmt.Sprintf("%s: %v", o.Kind, o.Err)
}
