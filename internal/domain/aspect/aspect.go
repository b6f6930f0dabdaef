package aspect

// Aspect is one of the ten semantic facets a title is embedded under.
type Aspect string

// Canonical aspects. Declaration order is the slot order.
const (
	Theme      Aspect = "theme"
	Mood       Aspect = "mood"
	Pace       Aspect = "pace"
	Tone       Aspect = "tone"
	Visual     Aspect = "visual"
	Depth      Aspect = "depth"
	Tension    Aspect = "tension"
	Emotion    Aspect = "emotion"
	Target     Aspect = "target"
	Experience Aspect = "experience"
)

// Count is the number of canonical aspects (and slots).
const Count = 10

var canonical = [Count]Aspect{
	Theme, Mood, Pace, Tone, Visual, Depth, Tension, Emotion, Target, Experience,
}

var slots = func() map[Aspect]int {
	m := make(map[Aspect]int, Count)
	for i, a := range canonical {
		m[a] = i
	}
	return m
}()

// All returns the aspects in canonical slot order.
func All() [Count]Aspect { return canonical }

// FromSlot returns the aspect at slot i.
func FromSlot(i int) (Aspect, bool) {
	if i < 0 || i >= Count {
		return "", false
	}
	return canonical[i], true
}

// Parse maps a stored profile_type value onto an aspect.
func Parse(s string) (Aspect, bool) {
	a := Aspect(s)
	_, ok := slots[a]
	return a, ok
}

// Slot returns the canonical slot of a, or -1 for an unknown aspect.
func (a Aspect) Slot() int {
	if i, ok := slots[a]; ok {
		return i
	}
	return -1
}

// IsValid reports whether a is one of the canonical aspects.
func (a Aspect) IsValid() bool {
	_, ok := slots[a]
	return ok
}

func (a Aspect) String() string { return string(a) }
