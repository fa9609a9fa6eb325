package models

// ReferencesModel carries the routes and stops an entry refers to.
type ReferencesModel struct {
	Routes []RouteReference `json:"routes"`
	Stops  []StopReference  `json:"stops"`
}

// NewEmptyReferences creates a new empty References model with initialized empty slices
func NewEmptyReferences() ReferencesModel {
	return ReferencesModel{
		Routes: []RouteReference{},
		Stops:  []StopReference{},
	}
}

type RouteReference struct {
	ID        string `json:"id"`
	ShortName string `json:"shortName"`
	LongName  string `json:"longName"`
	Color     string `json:"color"`
	TextColor string `json:"textColor"`
	Type      int    `json:"type"`
}

func NewRouteReference(id, shortName, longName, color, textColor string, routeType int) RouteReference {
	return RouteReference{
		ID:        id,
		ShortName: shortName,
		LongName:  longName,
		Color:     color,
		TextColor: textColor,
		Type:      routeType,
	}
}

type StopReference struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

func NewStopReference(id, name string, lat, lon float64) StopReference {
	return StopReference{ID: id, Name: name, Lat: lat, Lon: lon}
}
