package domain

// LEDPattern is an opaque pattern payload forwarded to the hardware layer.
type LEDPattern map[string]any

// Sink is the outbound hardware surface: speech, LED ring, small screen.
// Calls are fire-and-forget; the pipeline never consumes a return value.
type Sink interface {
	Speak(text string)
	LED(pattern LEDPattern)
	Screen(text string, durationMS int)
}
