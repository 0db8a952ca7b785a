package dispatch

import "net/http"

type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeGone      Outcome = "gone"
	OutcomeTransient Outcome = "transient"
)

// Policy decides which push service responses mean the subscription is permanently dead.
// Dispatch and the verification sweep share one Policy. Without Strict, 401 and 403 are
// transient, so subscriptions created under a different VAPID key pair are never pruned.
type Policy struct {
	// Strict also treats every 4xx except 408, 413 and 429 as gone.
	Strict bool
}

func (p Policy) Classify(status int, err error) Outcome {
	if err == nil && status >= 200 && status < 300 {
		return OutcomeSuccess
	}

	switch status {
	case http.StatusNotFound, http.StatusGone:
		return OutcomeGone
	case http.StatusRequestTimeout, http.StatusRequestEntityTooLarge, http.StatusTooManyRequests:
		return OutcomeTransient
	}

	if p.Strict && status >= 400 && status < 500 {
		return OutcomeGone
	}
	return OutcomeTransient
}
