package community

import "strings"

// StrategyKind selects how a wants column is turned into a match fraction.
type StrategyKind int

const (
	// PresenceFlag scores 1 when the cell contains the yes marker.
	PresenceFlag StrategyKind = iota + 1
	// OrdinalQuality scores the position of the first matching vocabulary term.
	OrdinalQuality
	// CountBased scores the count relative to the column maximum.
	CountBased
	// RatingBased scores a rating on a fixed min..max scale.
	RatingBased
)

func (k StrategyKind) String() string {
	switch k {
	case PresenceFlag:
		return "presence"
	case OrdinalQuality:
		return "quality"
	case CountBased:
		return "count"
	case RatingBased:
		return "rating"
	default:
		return "unknown"
	}
}

// Strategy is the scoring variant attached to a wants column together with
// the parameters only that variant uses.
type Strategy struct {
	Kind StrategyKind

	// PresenceFlag
	YesMarker string
	NoMarker  string
	// OrdinalQuality, ordered from worst to best.
	Vocabulary []string
	// RatingBased
	MinRating float64
	MaxRating float64
}

// CellFormat is what a column must hold for the workbook to be accepted.
type CellFormat int

const (
	FormatAny CellFormat = iota
	// FormatText requires non-empty text.
	FormatText
	FormatOptionalText
	// FormatNumber allows numbers and empty cells.
	FormatNumber
	// FormatInteger requires a whole number.
	FormatInteger
)

// WantsColumn describes one amenity column of the wants sheet.
type WantsColumn struct {
	Header    string
	OutputKey string
	// PreferenceKey names the wants payload weight. Empty for projected-only columns.
	PreferenceKey string
	Strategy      *Strategy
	Format        CellFormat
	// FreeForm columns skip the vocabulary check of their strategy.
	FreeForm bool
}

func (c WantsColumn) Scored() bool {
	return c.Strategy != nil && c.PreferenceKey != ""
}

// Schema holds every column name, vocabulary and sentinel shared by the
// clusterer, needs filter, wants scorer and ranker.
type Schema struct {
	PrimaryKey string
	NeedsSheet string
	WantsSheet string

	City            string
	Location        string
	PriceAvg        string
	PriceLow        string
	PriceHigh       string
	HOAFee          string
	HomeTotal       string
	HomeAge         string
	PreservationFee string
	Link            string

	// Derived columns.
	Size  string
	Score string

	LocationDelimiter string
	Locations         []string
	SizeLabels        [3]string

	PriceMultiplier  float64
	PriceMaxSentinel string
	AnyAgeSentinel   string
	NotApplicable    string

	MinPreference int
	MaxPreference int

	Wants []WantsColumn
}

const (
	SizeSmall  = "Small"
	SizeMedium = "Medium"
	SizeLarge  = "Large"

	LocationWestValley = "West Valley"
	LocationEastValley = "East Valley"
	LocationCentral    = "Central"

	HasFeatureYes = "Y"
	HasFeatureNo  = "N"
)

var (
	GolfCourseQuality = []string{"OK", "OK-GOOD", "GOOD", "VERY GOOD", "GREAT"}
	TrailsQuality     = []string{"OK", "GOOD", "GREAT"}
)

// DefaultSchema returns the layout of the community workbook.
func DefaultSchema() *Schema {
	presence := &Strategy{Kind: PresenceFlag, YesMarker: HasFeatureYes, NoMarker: HasFeatureNo}
	count := &Strategy{Kind: CountBased}

	return &Schema{
		PrimaryKey: "Community Name",
		NeedsSheet: "Sheet1",
		WantsSheet: "Sheet2",

		City:            "City",
		Location:        "Location",
		PriceAvg:        "Average Single Family Home Price (90 Days)",
		PriceLow:        "Price Range Low",
		PriceHigh:       "Price Range High",
		HOAFee:          "HOA/Rec Fee - 2 People Annual Total",
		HomeTotal:       "Total Homes in community",
		HomeAge:         "Average Age of Home",
		PreservationFee: "Preservation Fee",
		Link:            "Links",

		Size:  "Size of Community",
		Score: "Homebuyer Score",

		LocationDelimiter: "/",
		Locations:         []string{LocationWestValley, LocationEastValley, LocationCentral},
		SizeLabels:        [3]string{SizeSmall, SizeMedium, SizeLarge},

		PriceMultiplier:  1000,
		PriceMaxSentinel: "Max",
		AnyAgeSentinel:   "Does not matter",
		NotApplicable:    "N/A",

		MinPreference: 1,
		MaxPreference: 5,

		Wants: []WantsColumn{
			{Header: "# of Golf Courses", OutputKey: "n_golf_courses", PreferenceKey: "mult_golf_courses", Strategy: count, Format: FormatNumber},
			{Header: "# of Clubs Offered", OutputKey: "n_clubs", PreferenceKey: "many_social_clubs", Strategy: count},
			{Header: "# of Rec Centers", OutputKey: "n_rec_center", Format: FormatNumber},
			{Header: "Golf Course Quality", OutputKey: "golf_course_qlty", PreferenceKey: "quality_golf_courses", Strategy: &Strategy{Kind: OrdinalQuality, Vocabulary: GolfCourseQuality}, Format: FormatOptionalText},
			{Header: "Walking/Biking Trails", OutputKey: "trails_qlty", PreferenceKey: "quality_trails", Strategy: &Strategy{Kind: OrdinalQuality, Vocabulary: TrailsQuality}, Format: FormatOptionalText},
			{Header: "Fishing in Community", OutputKey: "fish", PreferenceKey: "fishing", Strategy: presence, Format: FormatText},
			{Header: "Dog Park?", OutputKey: "dog_park", PreferenceKey: "dog_park", Strategy: presence, Format: FormatText},
			{Header: "Gated?", OutputKey: "gated", PreferenceKey: "gated", Strategy: presence, Format: FormatText},
			{Header: "Indoor + Outdoor Pool", OutputKey: "indoor_pool", PreferenceKey: "indoor_pool", Strategy: presence, Format: FormatText, FreeForm: true},
			{Header: "Woodwork Shop?", OutputKey: "woodwork", PreferenceKey: "woodwork_shop", Strategy: presence, Format: FormatText},
			{Header: "Nearby Mountain Views?", OutputKey: "mtn_view", PreferenceKey: "mountain_views", Strategy: presence, Format: FormatText},
			{Header: "Softball Field?", OutputKey: "softball", PreferenceKey: "softball_field", Strategy: presence, Format: FormatText},
			{Header: "Isolated From Rest of City", OutputKey: "isolated_from_city", PreferenceKey: "isolated_from_city", Strategy: presence, Format: FormatText},
			{Header: "Competitive Pickleball?", OutputKey: "competitive_pickleball", PreferenceKey: "competitive_pickleball", Strategy: &Strategy{Kind: RatingBased, MinRating: 1, MaxRating: 5}, Format: FormatNumber},
		},
	}
}

// NeedsFormats maps every needs column to the format it must hold.
func (s *Schema) NeedsFormats() map[string]CellFormat {
	return map[string]CellFormat{
		s.City:            FormatText,
		s.Location:        FormatText,
		s.PriceAvg:        FormatNumber,
		s.PriceLow:        FormatNumber,
		s.PriceHigh:       FormatNumber,
		s.HOAFee:          FormatNumber,
		s.HomeTotal:       FormatNumber,
		s.HomeAge:         FormatInteger,
		s.PreservationFee: FormatAny,
		s.Link:            FormatOptionalText,
	}
}

// NeedsHeaders lists the source columns of the needs sheet.
func (s *Schema) NeedsHeaders() []string {
	return []string{
		s.City, s.Location, s.PriceAvg, s.PriceLow, s.PriceHigh,
		s.HOAFee, s.HomeTotal, s.HomeAge, s.PreservationFee, s.Link,
	}
}

// WantsHeaders lists the source columns of the wants sheet.
func (s *Schema) WantsHeaders() []string {
	headers := make([]string, 0, len(s.Wants))
	for _, w := range s.Wants {
		headers = append(headers, w.Header)
	}
	return headers
}

// PreferenceKeys lists the wants payload keys consumed by the scorer.
func (s *Schema) PreferenceKeys() []string {
	keys := make([]string, 0, len(s.Wants))
	for _, w := range s.Wants {
		if w.Scored() {
			keys = append(keys, w.PreferenceKey)
		}
	}
	return keys
}

// Scored returns the wants columns that contribute to the homebuyer score.
func (s *Schema) Scored() []WantsColumn {
	scored := make([]WantsColumn, 0, len(s.Wants))
	for _, w := range s.Wants {
		if w.Scored() {
			scored = append(scored, w)
		}
	}
	return scored
}

// OutputColumn maps a table header to its key in a compiled community.
type OutputColumn struct {
	Key    string
	Header string
}

// Outputs lists the fields of a compiled community in emission order.
func (s *Schema) Outputs() []OutputColumn {
	outputs := []OutputColumn{
		{Key: "homebuyer_score", Header: s.Score},
		{Key: "city", Header: s.City},
		{Key: "location", Header: s.Location},
		{Key: "age_avg", Header: s.HomeAge},
		{Key: "price_avg", Header: s.PriceAvg},
		{Key: "price_lower", Header: s.PriceLow},
		{Key: "price_upper", Header: s.PriceHigh},
		{Key: "hoa_fee", Header: s.HOAFee},
		{Key: "preservation_fee", Header: s.PreservationFee},
		{Key: "size", Header: s.Size},
		{Key: "link", Header: s.Link},
	}
	for _, w := range s.Wants {
		outputs = append(outputs, OutputColumn{Key: w.OutputKey, Header: w.Header})
	}
	return outputs
}

// Normalize drops all whitespace and upper-cases s so vocabulary terms compare loosely.
func Normalize(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}
