package domain

import "math/rand"

// Feedback holds the message variants an activity author configured for
// each outcome. Empty buckets fall back to built-in defaults.
type Feedback struct {
	Correct     []string
	Incorrect   []string
	PairCorrect []string
	Complete    []string
}

// Built-in fallbacks, matching the tone activity authors use.
var (
	defaultCorrect     = []string{"¡Bien!"}
	defaultIncorrect   = []string{"Inténtalo de nuevo"}
	defaultPairCorrect = []string{"¡Pareja correcta!"}
	defaultComplete    = []string{"¡Completado!"}
)

// PickCorrect returns a random correct-outcome message.
func (f Feedback) PickCorrect() string { return pick(f.Correct, defaultCorrect) }

// PickIncorrect returns a random incorrect-outcome message.
func (f Feedback) PickIncorrect() string { return pick(f.Incorrect, defaultIncorrect) }

// PickPairCorrect returns a random message for a single correct pairing.
func (f Feedback) PickPairCorrect() string { return pick(f.PairCorrect, defaultPairCorrect) }

// PickComplete returns a random completion message.
func (f Feedback) PickComplete() string { return pick(f.Complete, defaultComplete) }

func pick(bucket, fallback []string) string {
	if len(bucket) == 0 {
		bucket = fallback
	}
	return bucket[rand.Intn(len(bucket))]
}
