package log

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// StepLogger reports pipeline progress step by step. On a terminal it draws a
// one-line progress bar; elsewhere it only emits structured log events.
type StepLogger struct {
	mu          sync.Mutex
	name        string
	steps       []string
	currentStep int
	startTime   time.Time
	stepStart   time.Time
	stepTimes   []time.Duration
	out         io.Writer
	drawBar     bool
}

// NewStepLogger creates a step logger writing the bar to out
func NewStepLogger(name string, steps []string, out io.Writer) *StepLogger {
	now := time.Now()
	return &StepLogger{
		name:        name,
		steps:       steps,
		currentStep: -1,
		startTime:   now,
		stepStart:   now,
		stepTimes:   make([]time.Duration, len(steps)),
		out:         out,
		drawBar:     out != nil && IsTerminal(out),
	}
}

// StartStep begins a new pipeline step
func (sl *StepLogger) StartStep(stepName string) {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	stepIndex := -1
	for i, step := range sl.steps {
		if step == stepName {
			stepIndex = i
			break
		}
	}
	if stepIndex == -1 {
		log.Warn().Str("step", stepName).Msg("Unknown pipeline step")
		return
	}

	sl.currentStep = stepIndex
	sl.stepStart = time.Now()
	sl.draw(stepName)

	log.Debug().
		Str("step", stepName).
		Int("step_number", stepIndex+1).
		Int("total_steps", len(sl.steps)).
		Msg("Starting pipeline step")
}

// CompleteStep records the duration of the current step
func (sl *StepLogger) CompleteStep() {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if sl.currentStep < 0 {
		return
	}
	sl.stepTimes[sl.currentStep] = time.Since(sl.stepStart)
}

// Finish closes the bar and logs the timing summary
func (sl *StepLogger) Finish() {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	total := time.Since(sl.startTime)
	if sl.drawBar {
		fmt.Fprintf(sl.out, "\r\033[K✅ %s: %d steps (%v)\n", sl.name, len(sl.steps), total.Round(time.Millisecond))
	}

	event := log.Info().Dur("total_duration", total)
	for i, step := range sl.steps {
		event = event.Dur(strings.ToLower(step), sl.stepTimes[i])
	}
	event.Msg("Pipeline completed")
}

// Fail closes the bar with the failure reason
func (sl *StepLogger) Fail(reason string) {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if sl.drawBar {
		fmt.Fprintf(sl.out, "\r\033[K❌ %s failed: %s\n", sl.name, reason)
	}
	log.Error().
		Str("failed_step", sl.currentStepName()).
		Int("total_steps", len(sl.steps)).
		Str("reason", reason).
		Msg("Pipeline failed")
}

// StepTimes returns a copy of the recorded step durations
func (sl *StepLogger) StepTimes() []time.Duration {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return append([]time.Duration(nil), sl.stepTimes...)
}

func (sl *StepLogger) currentStepName() string {
	if sl.currentStep >= 0 && sl.currentStep < len(sl.steps) {
		return sl.steps[sl.currentStep]
	}
	return "unknown"
}

// draw renders "name [████░░░░] 2/4 step"
func (sl *StepLogger) draw(message string) {
	if !sl.drawBar || len(sl.steps) == 0 {
		return
	}
	const barWidth = 20
	done := sl.currentStep + 1
	filled := barWidth * done / len(sl.steps)

	var b strings.Builder
	b.WriteString("\r\033[K")
	b.WriteString(sl.name)
	b.WriteString(" [")
	b.WriteString(strings.Repeat("█", filled))
	b.WriteString(strings.Repeat("░", barWidth-filled))
	fmt.Fprintf(&b, "] %d/%d %s", done, len(sl.steps), message)
	fmt.Fprint(sl.out, b.String())
}
