package query

// ScoreField is the pseudo field that sorts by relevance.
const ScoreField = "_score"

// Direction of a sort order.
type Direction int

const (
	Asc Direction = iota
	Desc
)

func (d Direction) String() string {
	if d == Desc {
		return "desc"
	}
	return "asc"
}

// NullHandling places documents without a value.
type NullHandling int

const (
	NullsNative NullHandling = iota
	NullsFirst
	NullsLast
)

// SortMode picks a value from multi-valued fields.
type SortMode string

const (
	SortModeNone   SortMode = ""
	SortModeMin    SortMode = "min"
	SortModeMax    SortMode = "max"
	SortModeSum    SortMode = "sum"
	SortModeAvg    SortMode = "avg"
	SortModeMedian SortMode = "median"
)

// DistanceType is the distance computation of a geo-distance sort.
type DistanceType string

const (
	DistanceArc   DistanceType = "arc"
	DistancePlane DistanceType = "plane"
)

// GeoDistanceSort orders hits by distance to a point.
type GeoDistanceSort struct {
	Point        GeoPoint
	DistanceType DistanceType
	Unit         string
	// IgnoreUnmapped is only sent when true, which differs from the engine
	// default.
	IgnoreUnmapped bool
}

// Order is one entry of a sort list.
type Order struct {
	Property     string
	Direction    Direction
	Mode         SortMode
	UnmappedType string
	NullHandling NullHandling
	// Missing overrides NullHandling with an explicit replacement value.
	Missing     any
	NestedPath  string
	GeoDistance *GeoDistanceSort
}

// By returns ascending orders for the given properties.
func By(properties ...string) []Order {
	out := make([]Order, 0, len(properties))
	for _, p := range properties {
		out = append(out, Order{Property: p})
	}
	return out
}

// AscOn returns an ascending order on property.
func AscOn(property string) Order { return Order{Property: property, Direction: Asc} }

// DescOn returns a descending order on property.
func DescOn(property string) Order { return Order{Property: property, Direction: Desc} }

// ByScore returns a relevance order.
func ByScore(d Direction) Order { return Order{Property: ScoreField, Direction: d} }

// ByDistance returns a geo-distance order on property.
func ByDistance(property string, p GeoPoint, d Direction) Order {
	return Order{Property: property, Direction: d, GeoDistance: &GeoDistanceSort{Point: p}}
}

// IsScore reports whether the order sorts by relevance.
func (o Order) IsScore() bool { return o.Property == ScoreField }
