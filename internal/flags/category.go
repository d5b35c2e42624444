package flags

import "slices"

// Category groups tools for coarse-grained migration control. It plays no
// part in dispatch.
type Category string

// Tool categories.
const (
	CategoryLocation  Category = "location"
	CategoryTravel    Category = "travel"
	CategorySearch    Category = "search"
	CategorySafety    Category = "safety"
	CategoryCalendar  Category = "calendar"
	CategoryTransport Category = "transport"
	CategoryDiscovery Category = "discovery"
)

// DefaultCategory receives tools missing from the category table.
const DefaultCategory = CategoryLocation

var allCategories = []Category{
	CategoryLocation,
	CategoryTravel,
	CategorySearch,
	CategorySafety,
	CategoryCalendar,
	CategoryTransport,
	CategoryDiscovery,
}

var categoryTools = map[Category][]string{
	CategoryLocation: {
		"get_user_location",
		"search_location",
		"search_nearby_places",
		"get_place_details",
		"get_directions",
		"reverse_geocode",
	},
	CategoryTravel: {
		"get_weather",
		"get_weather_forecast",
		"convert_currency",
		"translate_text",
		"get_local_time",
	},
	CategorySearch: {
		"web_search",
		"extract_web_content",
		"search_knowledge",
	},
	CategorySafety: {
		"get_safety_alerts",
		"get_emergency_numbers",
		"get_travel_advisory",
	},
	CategoryCalendar: {
		"get_calendar_events",
		"create_calendar_event",
		"get_local_events",
	},
	CategoryTransport: {
		"get_bikeshare_status",
		"find_bike_stations",
		"get_transit_departures",
	},
	CategoryDiscovery: {
		"get_reviews",
		"get_place_photos",
		"get_place_vibe",
		"parse_menu",
		"get_offerings",
		"get_venue_policy",
	},
}

var toolCategory = func() map[string]Category {
	m := make(map[string]Category, 32)
	for cat, tools := range categoryTools {
		for _, tool := range tools {
			m[tool] = cat
		}
	}

	return m
}()

// AllCategories returns every category in canonical order.
func AllCategories() []Category {
	return slices.Clone(allCategories)
}

// ToolsIn returns the tool names belonging to c, or nil for an unknown category.
func ToolsIn(c Category) []string {
	return slices.Clone(categoryTools[c])
}

// LookupCategory returns the category of tool and whether it is mapped.
func LookupCategory(tool string) (Category, bool) {
	c, ok := toolCategory[tool]

	return c, ok
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	_, ok := categoryTools[c]

	return ok
}

// sortCategories orders cats canonically.
func sortCategories(cats []Category) {
	slices.SortFunc(cats, func(a, b Category) int {
		return slices.Index(allCategories, a) - slices.Index(allCategories, b)
	})
}
