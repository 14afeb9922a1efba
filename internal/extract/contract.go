// Package extract turns article HTML into plain text. A fixed ladder of
// strategies runs in order of fidelity; the first candidate whose output
// clears the quality gate wins.
package extract

import "context"

// Strategy is one way of pulling article text out of an HTML document. The
// url is advisory, used by extractors that resolve relative references or
// consult metadata. Returning an empty string with a nil error means the
// strategy ran but found nothing usable.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, html, url string) (string, error)
}
