package policy

// ZoomPolicy watches Zoom meetings.
type ZoomPolicy struct{}

// NewZoomPolicy creates the Zoom policy.
func NewZoomPolicy() *ZoomPolicy {
	return &ZoomPolicy{}
}

func (p *ZoomPolicy) ID() string {
	return "zoom"
}

func (p *ZoomPolicy) Name() string {
	return "Zoom"
}

// ProcessPatterns returns process names that only exist during a call.
// The idle launcher ("zoom.us" on macOS) is deliberately not listed.
func (p *ZoomPolicy) ProcessPatterns() []string {
	return []string{
		"CptHost",
		"caphost",
		"aomhost",
		"zoom_meeting",
	}
}

// Ensure ZoomPolicy implements AppPolicy.
var _ AppPolicy = (*ZoomPolicy)(nil)
