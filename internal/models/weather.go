package models

import "time"

// RawObservation is the decoded OpenWeatherMap current-weather payload.
// Required fields are pointers so an absent key is distinguishable from a
// zero value; everything else in the payload is intentionally not decoded.
type RawObservation struct {
	Main *struct {
		TempKelvin *float64 `json:"temp"`
		Humidity   *int     `json:"humidity"`
	} `json:"main"`
	Wind *struct {
		Speed *float64 `json:"speed"`
	} `json:"wind"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Name string `json:"name"`
}

// WeatherRecord is the canonical observation persisted to the weather table.
// ID and ObservedAt are assigned by the database on insert.
type WeatherRecord struct {
	ID                 int64
	City               string
	TemperatureCelsius float64
	HumidityPercent    int
	WindSpeedMPS       float64
	WeatherCondition   string
	ObservedAt         time.Time
}
