package emotion

import "time"

// Context carries ambient presence signals sampled by the vision sidecar.
// Known is false when no sidecar is connected or the sample went stale.
type Context struct {
	Known       bool
	UserPresent bool
	Observed    time.Time
}

// staleAfter bounds how long a presence sample stays trustworthy.
const staleAfter = 10 * time.Second

// Fresh reports whether the sample may still influence resolution.
func (c Context) Fresh(now time.Time) bool {
	return c.Known && now.Sub(c.Observed) <= staleAfter
}

// Adjust softens high-energy labels when nobody is watching. It is a pure
// function over (emotion, context); unknown or stale context is a no-op.
func Adjust(label Label, ctx Context, now time.Time) Label {
	if !ctx.Fresh(now) || ctx.UserPresent {
		return label
	}
	switch label {
	case Excited:
		return Calm
	case Anger:
		return Neutral
	default:
		return label
	}
}
