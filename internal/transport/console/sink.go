// Package console implements the hardware sink against the process log.
// On the device the same interface is backed by the TTS engine, the LED
// ring and the e-ink panel; during development everything lands here.
package console

import (
	"go.uber.org/zap"

	"github.com/calmbox/calmbox/internal/domain"
)

// Sink logs every hardware action instead of driving peripherals.
type Sink struct {
	logger *zap.Logger
}

var _ domain.Sink = (*Sink)(nil)

// New creates a console sink.
func New(logger *zap.Logger) *Sink {
	return &Sink{logger: logger}
}

// Speak logs the utterance that would be sent to the TTS engine.
func (s *Sink) Speak(text string) {
	s.logger.Info("speak", zap.String("text", text))
}

// LED logs the pattern that would be sent to the LED ring.
func (s *Sink) LED(pattern domain.LEDPattern) {
	s.logger.Info("led", zap.Any("pattern", pattern))
}

// Screen logs the text that would be shown on the panel.
func (s *Sink) Screen(text string, durationMS int) {
	s.logger.Info("screen", zap.String("text", text), zap.Int("duration_ms", durationMS))
}
