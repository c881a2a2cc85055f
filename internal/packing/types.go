package packing

// Mode distinguishes order lines sold by weight from lines sold by unit.
type Mode string

const (
	ModeKg   Mode = "kg"
	ModeUnit Mode = "unit"
)

// Fragility classes, from most to least delicate. The class drives the
// per-bag weight cap and the placement order inside a box.
type Fragility string

const (
	VeryFragile Fragility = "very_fragile"
	Fragile     Fragility = "fragile"
	Normal      Fragility = "normal"
	Sturdy      Fragility = "sturdy"
)

// BagCapKg returns the maximum weight a single bag of this fragility may hold
func (f Fragility) BagCapKg() float64 {
	switch f {
	case VeryFragile:
		return 0.7
	case Fragile:
		return 1.5
	case Normal:
		return 2.5
	case Sturdy:
		return 3.0
	default:
		return 2.5
	}
}

// placementRank orders pieces sturdy-first so delicate produce lands on top
func (f Fragility) placementRank() int {
	switch f {
	case Sturdy:
		return 0
	case Normal:
		return 1
	case Fragile:
		return 2
	case VeryFragile:
		return 3
	default:
		return 1
	}
}

// OrderLine is one requested item of an order. Exactly one of QuantityKg and
// Units is expected to be set; when both are set, weight wins.
type OrderLine struct {
	ItemID     string  `json:"itemId" bson:"itemId"`
	QuantityKg float64 `json:"quantityKg,omitempty" bson:"quantityKg,omitempty"`
	Units      int     `json:"units,omitempty" bson:"units,omitempty"`
}

// Item carries the catalog hints the engine classifies by. The engine never
// mutates items.
type Item struct {
	ID             string `json:"id" bson:"_id"`
	Category       string `json:"category" bson:"category"`
	Type           string `json:"type" bson:"type"`
	Variety        string `json:"variety" bson:"variety"`
	AvgUnitWeightG float64 `json:"avgUnitWeightG,omitempty" bson:"avgUnitWeightG,omitempty"`
}

// ContainerType is one available box type
type ContainerType struct {
	Key          string  `json:"key" bson:"_id"`
	LengthCm     float64 `json:"lengthCm" bson:"lengthCm"`
	WidthCm      float64 `json:"widthCm" bson:"widthCm"`
	HeightCm     float64 `json:"heightCm" bson:"heightCm"`
	HeadroomFrac float64 `json:"headroomFrac" bson:"headroomFrac"`
	UsableLiters float64 `json:"usableLiters,omitempty" bson:"usableLiters,omitempty"`
	MaxWeightKg  float64 `json:"maxWeightKg" bson:"maxWeightKg"`
	Vented       bool    `json:"vented" bson:"vented"`
}

// EffectiveLiters returns the stored usable volume, deriving it from the
// inner dimensions and headroom when absent.
func (c ContainerType) EffectiveLiters() float64 {
	if c.UsableLiters > 0 {
		return c.UsableLiters
	}
	headroom := c.HeadroomFrac
	if headroom < 0 {
		headroom = 0
	}
	if headroom > 0.9 {
		headroom = 0.9
	}
	return c.LengthCm * c.WidthCm * c.HeightCm * (1 - headroom) / 1000
}

// Override replaces classification defaults per item. A nil field leaves the
// default in place; a set field fully wins.
type Override struct {
	ItemID          string     `json:"itemId" bson:"_id"`
	Fragility       *Fragility `json:"fragility,omitempty" bson:"fragility,omitempty"`
	MixAllowed      *bool      `json:"mixAllowed,omitempty" bson:"mixAllowed,omitempty"`
	NeedsVent       *bool      `json:"needsVent,omitempty" bson:"needsVent,omitempty"`
	MinContainerKey *string    `json:"minContainerKey,omitempty" bson:"minContainerKey,omitempty"`
	MaxKgPerBox     *float64   `json:"maxKgPerBox,omitempty" bson:"maxKgPerBox,omitempty"`
	DensityKgPerL   *float64   `json:"densityKgPerL,omitempty" bson:"densityKgPerL,omitempty"`
	UnitVolumeL     *float64   `json:"unitVolumeL,omitempty" bson:"unitVolumeL,omitempty"`
}

// PieceKind distinguishes weight-capped bags from fixed-count bundles
type PieceKind string

const (
	PieceBag    PieceKind = "bag"
	PieceBundle PieceKind = "bundle"
)

// Piece is the unit actually placed into a box. Pieces exist only within one
// packing computation.
type Piece struct {
	ItemID          string    `json:"itemId" bson:"itemId"`
	Kind            PieceKind `json:"kind" bson:"kind"`
	Mode            Mode      `json:"mode" bson:"mode"`
	QuantityKg      float64   `json:"quantityKg,omitempty" bson:"quantityKg,omitempty"`
	Units           int       `json:"units,omitempty" bson:"units,omitempty"`
	EstLiters       float64   `json:"estLiters" bson:"estLiters"`
	EstWeightKg     float64   `json:"estWeightKg" bson:"estWeightKg"`
	Fragility       Fragility `json:"fragility" bson:"fragility"`
	MixAllowed      bool      `json:"mixAllowed" bson:"mixAllowed"`
	NeedsVent       bool      `json:"needsVent" bson:"needsVent"`
	MinContainerKey string    `json:"minContainerKey,omitempty" bson:"minContainerKey,omitempty"`
	MaxKgPerBox     float64   `json:"maxKgPerBox,omitempty" bson:"maxKgPerBox,omitempty"`
}

// Box is one planned container with its contents
type Box struct {
	Number       int     `json:"number" bson:"number"`
	ContainerKey string  `json:"containerKey" bson:"containerKey"`
	Vented       bool    `json:"vented" bson:"vented"`
	UsableLiters float64 `json:"usableLiters" bson:"usableLiters"`
	MaxWeightKg  float64 `json:"maxWeightKg" bson:"maxWeightKg"`
	FillLiters   float64 `json:"fillLiters" bson:"fillLiters"`
	WeightKg     float64 `json:"weightKg" bson:"weightKg"`
	FillPct      float64 `json:"fillPct" bson:"fillPct"`
	Pieces       []Piece `json:"pieces" bson:"pieces"`
}

// ItemRollup aggregates one item's share of the plan
type ItemRollup struct {
	ItemID      string  `json:"itemId" bson:"itemId"`
	Bags        int     `json:"bags" bson:"bags"`
	Bundles     int     `json:"bundles" bson:"bundles"`
	TotalKg     float64 `json:"totalKg" bson:"totalKg"`
	TotalUnits  int     `json:"totalUnits" bson:"totalUnits"`
	TotalLiters float64 `json:"totalLiters" bson:"totalLiters"`
}

// Summary is the plan-level roll-up
type Summary struct {
	BoxCount int          `json:"boxCount" bson:"boxCount"`
	Items    []ItemRollup `json:"items" bson:"items"`
	Warnings []string     `json:"warnings,omitempty" bson:"warnings,omitempty"`
}

// Plan is the result of one packing computation
type Plan struct {
	Boxes   []Box   `json:"boxes" bson:"boxes"`
	Summary Summary `json:"summary" bson:"summary"`
}
