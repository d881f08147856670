package service

import "sync"

// StaticPrompter answers prompts from a fixed list of values, in order.
// Once the list is used up every further prompt counts as dismissed.
type StaticPrompter struct {
	mu      sync.Mutex
	answers []string
}

// NewStaticPrompter creates a prompter with the given answers.
func NewStaticPrompter(answers ...string) *StaticPrompter {
	return &StaticPrompter{answers: answers}
}

// PromptText returns the next answer.
func (p *StaticPrompter) PromptText(title, label string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.answers) == 0 {
		return "", false
	}
	v := p.answers[0]
	p.answers = p.answers[1:]
	return v, true
}
