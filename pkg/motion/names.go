package motion

// Named motions known to the actuator.
const (
	MotionAgree     = "agree"
	MotionSwing     = "swing"
	MotionBow       = "bow"
	MotionHappy     = "happy"
	MotionLough     = "lough"
	MotionDepressed = "depressed"
	MotionAmazed    = "amazed"
	MotionSleep     = "sleep"
	MotionLookup    = "lookup"
	MotionNod       = "nod"
)

// labels maps the Japanese motion tags produced by the language model to
// actuator motion names.
var labels = map[string]string{
	"肯定する":   MotionAgree,
	"否定する":   MotionSwing,
	"おじぎ":    MotionBow,
	"喜ぶ":     MotionHappy,
	"笑う":     MotionLough,
	"落ち込む":   MotionDepressed,
	"うんざりする": MotionAmazed,
	"眠る":     MotionSleep,
	"ぼんやりする": MotionLookup,
}

// labelOrder keeps the tag enumeration stable for prompt construction.
var labelOrder = []string{
	"肯定する", "否定する", "おじぎ", "喜ぶ", "笑う", "落ち込む", "うんざりする", "眠る",
}

// FromLabel translates a model-produced motion tag to an actuator motion
// name.
func FromLabel(label string) (string, bool) {
	name, ok := labels[label]
	return name, ok
}

// Labels returns the motion tags offered to the language model, in a
// stable order.
func Labels() []string {
	out := make([]string, len(labelOrder))
	copy(out, labelOrder)
	return out
}
