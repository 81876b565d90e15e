package normalize

import (
	"fmt"
	"math"

	"github.com/yuva-raja-reddy/city-weather-collector-db/internal/models"
)

const kelvinOffset = 273.15

// TransformError reports a raw payload that cannot be normalized: a required
// field is absent or its value is out of range. A payload failing
// normalization never produces a record.
type TransformError struct {
	Field  string
	Reason string
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform %s: %s", e.Field, e.Reason)
}

// Normalize converts a raw provider payload into the canonical WeatherRecord
// for the given query city. Temperature is converted from Kelvin to Celsius
// and rounded to 2 decimal places. Pure function: no I/O, deterministic.
// Every field the canonical schema does not name is dropped.
func Normalize(raw models.RawObservation, city string) (models.WeatherRecord, error) {
	if raw.Main == nil {
		return models.WeatherRecord{}, &TransformError{Field: "main", Reason: "missing"}
	}
	if raw.Main.TempKelvin == nil {
		return models.WeatherRecord{}, &TransformError{Field: "main.temp", Reason: "missing"}
	}
	if raw.Main.Humidity == nil {
		return models.WeatherRecord{}, &TransformError{Field: "main.humidity", Reason: "missing"}
	}
	if raw.Wind == nil || raw.Wind.Speed == nil {
		return models.WeatherRecord{}, &TransformError{Field: "wind.speed", Reason: "missing"}
	}
	if len(raw.Weather) == 0 {
		return models.WeatherRecord{}, &TransformError{Field: "weather", Reason: "missing"}
	}

	humidity := *raw.Main.Humidity
	if humidity < 0 || humidity > 100 {
		return models.WeatherRecord{}, &TransformError{
			Field:  "main.humidity",
			Reason: fmt.Sprintf("out of range: %d", humidity),
		}
	}

	windSpeed := *raw.Wind.Speed
	if windSpeed < 0 {
		return models.WeatherRecord{}, &TransformError{
			Field:  "wind.speed",
			Reason: fmt.Sprintf("negative: %g", windSpeed),
		}
	}

	condition := raw.Weather[0].Main
	if condition == "" {
		condition = raw.Weather[0].Description
	}
	if condition == "" {
		return models.WeatherRecord{}, &TransformError{Field: "weather[0]", Reason: "no condition label"}
	}

	return models.WeatherRecord{
		City:               city,
		TemperatureCelsius: roundTo2(*raw.Main.TempKelvin - kelvinOffset),
		HumidityPercent:    humidity,
		WindSpeedMPS:       windSpeed,
		WeatherCondition:   condition,
	}, nil
}

func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}
