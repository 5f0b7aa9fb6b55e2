package game

// FeedbackGenerator produces the narrative customer review for one
// settled deal. Generation lives outside the core; the engine hands it
// the outcome and relays the text unmodified. Implementations must not
// block: TeamFeedback calls Generate under the engine lock.
type FeedbackGenerator interface {
	Generate(hotAttribute string, won bool, attributes []string) string
}
