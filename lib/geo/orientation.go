package geo

// Orientation is a side of a box, or the direction of travel through it.
type Orientation int

const (
	Top Orientation = iota
	Right
	Bottom
	Left

	NONE
)

func (o Orientation) ToString() string {
	switch o {
	case Top:
		return "Top"
	case Right:
		return "Right"
	case Bottom:
		return "Bottom"
	case Left:
		return "Left"
	default:
		return ""
	}
}
