package geo

// StateBox maps a state name to its approximate bounding box.
type StateBox struct {
	State string
	Box   BoundingBox
}

// stateBoxes is ordered; overlapping boxes resolve to the earliest entry.
var stateBoxes = []StateBox{
	{"Punjab", BoundingBox{29.5, 32.5, 74.0, 76.9}},
	{"Haryana", BoundingBox{27.6, 30.9, 74.4, 77.4}},
	{"Rajasthan", BoundingBox{23.0, 30.2, 69.5, 78.3}},
	{"Uttar Pradesh", BoundingBox{23.8, 30.4, 77.1, 84.6}},
	{"Madhya Pradesh", BoundingBox{21.1, 26.9, 74.0, 82.8}},
	{"Maharashtra", BoundingBox{15.6, 22.0, 72.6, 80.9}},
	{"Gujarat", BoundingBox{20.1, 24.7, 68.2, 74.5}},
	{"Karnataka", BoundingBox{11.3, 18.5, 74.1, 78.6}},
	{"Kerala", BoundingBox{8.2, 12.8, 74.8, 77.4}},
	{"Tamil Nadu", BoundingBox{8.1, 13.6, 76.2, 80.3}},
	{"Andhra Pradesh", BoundingBox{12.6, 19.9, 77.0, 84.8}},
	{"Telangana", BoundingBox{15.8, 19.9, 77.3, 81.1}},
	{"Odisha", BoundingBox{17.8, 22.6, 81.4, 87.5}},
	{"West Bengal", BoundingBox{21.5, 27.2, 85.8, 89.9}},
	{"Bihar", BoundingBox{24.3, 27.5, 83.3, 88.1}},
	{"Jharkhand", BoundingBox{21.9, 25.3, 83.3, 87.6}},
	{"Chhattisgarh", BoundingBox{17.8, 24.1, 80.2, 84.1}},
	{"Himachal Pradesh", BoundingBox{30.2, 33.2, 75.6, 79.0}},
	{"Uttarakhand", BoundingBox{28.4, 31.5, 77.6, 81.0}},
	{"Assam", BoundingBox{24.1, 28.2, 89.7, 96.0}},
	{"Jammu and Kashmir", BoundingBox{32.3, 36.6, 73.3, 80.3}},
	{"Delhi", BoundingBox{28.4, 28.9, 76.8, 77.3}},
}

// StateBoxes returns a copy of the ordered fallback table.
func StateBoxes() []StateBox {
	out := make([]StateBox, len(stateBoxes))
	copy(out, stateBoxes)
	return out
}

// FallbackRegion resolves c against the bounding-box table. It is total:
// coordinates outside every box yield UnknownState.
func FallbackRegion(c Coordinate) Region {
	for _, sb := range stateBoxes {
		if sb.Box.Contains(c) {
			return Region{
				State:    sb.State,
				District: UnknownDistrict,
				Country:  DefaultCountry,
			}
		}
	}
	return Region{
		State:    UnknownState,
		District: UnknownDistrict,
		Country:  UnknownCountry,
	}
}
