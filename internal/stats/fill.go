package stats

type FillState string

const (
	FillEmpty    FillState = "empty"
	FillQuarter  FillState = "quarter"
	FillHalf     FillState = "half"
	FillFull     FillState = "full"
	FillOverflow FillState = "overflow"
)

// Fill maps a day's volume in liters to the glass drawn for it.
func Fill(liters float64) FillState {
	switch {
	case liters <= 0:
		return FillEmpty
	case liters <= 1:
		return FillQuarter
	case liters <= 1.5:
		return FillHalf
	case liters <= 2:
		return FillFull
	default:
		return FillOverflow
	}
}
