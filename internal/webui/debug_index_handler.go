package webui

import (
	"embed"
	"html/template"
	"net/http"
	"net/url"

	"github.com/davecgh/go-spew/spew"
	"walktimes.dev/internal/utils"
)

//go:embed debug_index.html
var templateFS embed.FS

var debugTemplate = template.Must(template.ParseFS(templateFS, "debug_index.html"))

type debugLink struct {
	Name string
	Href string
}

type debugData struct {
	Title string
	Pre   string
	Links []debugLink
}

var dumper = spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, SortKeys: true}

// dataTypes lists the views in menu order.
var dataTypes = []string{"payload", "grouped", "board", "gtfs_stats", "realtime_trips", "realtime_vehicles", "store"}

func writeDebugData(w http.ResponseWriter, title string, data interface{}, query url.Values) {
	links := make([]debugLink, 0, len(dataTypes))
	for _, dt := range dataTypes {
		q := url.Values{}
		for _, keep := range []string{"key", "lat", "lon"} {
			if v := query.Get(keep); v != "" {
				q.Set(keep, v)
			}
		}
		q.Set("dataType", dt)
		links = append(links, debugLink{Name: dt, Href: "/debug/?" + q.Encode()})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := debugTemplate.Execute(w, debugData{
		Title: title,
		Pre:   dumper.Sdump(data),
		Links: links,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (webUI *WebUI) debugIndexHandler(w http.ResponseWriter, r *http.Request) {
	if webUI.RequestHasInvalidAPIKey(r) {
		http.Error(w, "permission denied", http.StatusUnauthorized)
		return
	}

	query := r.URL.Query()
	dataType := query.Get("dataType")

	var data interface{}
	var title string

	switch dataType {
	case "payload", "grouped", "board":
		coord, fieldErrors := utils.ParseLocation(query, nil)
		if len(fieldErrors) > 0 {
			data = fieldErrors
			title = "Invalid location"
			break
		}
		data, title = webUI.pipelineStage(r, dataType, coord)
	case "gtfs_stats", "realtime_trips", "realtime_vehicles":
		data, title = webUI.gtfsData(dataType)
	case "store":
		data, title = webUI.storeData(r)
	default:
		data = map[string]string{
			"error": "Please use one of the following: payload, grouped, board (with lat and lon), gtfs_stats, realtime_trips, realtime_vehicles, store.",
		}
		title = "Choose a data type"
	}

	writeDebugData(w, title, data, query)
}
