package slackbot

// ErrorReporter receives non-fatal relay failures, e.g. for forwarding to
// an external tracker. The default is a no-op.
type ErrorReporter interface {
	Report(err error, details map[string]string)
}

type noopReporter struct{}

func (n *noopReporter) Report(err error, details map[string]string) {}
