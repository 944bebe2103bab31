package weather

import (
	"time"
)

const dateLayout = "2006-01-02"

// Document is the Open-Meteo forecast payload. Every section is optional and
// unknown fields are ignored by the decoder.
type Document struct {
	Latitude             *float64      `json:"latitude"`
	Longitude            *float64      `json:"longitude"`
	GenerationTimeMs     *float64      `json:"generationtime_ms"`
	UTCOffsetSeconds     *int          `json:"utc_offset_seconds"`
	Timezone             string        `json:"timezone"`
	TimezoneAbbreviation string        `json:"timezone_abbreviation"`
	Elevation            *float64      `json:"elevation"`
	CurrentUnits         *CurrentUnits `json:"current_units"`
	Current              *Current      `json:"current"`
	HourlyUnits          *HourlyUnits  `json:"hourly_units"`
	Hourly               *Hourly       `json:"hourly"`
}

type CurrentUnits struct {
	Time          string `json:"time"`
	Interval      string `json:"interval"`
	Temperature2m string `json:"temperature_2m"`
	WindSpeed10m  string `json:"wind_speed_10m"`
}

type Current struct {
	Time          string   `json:"time"`
	Interval      *int     `json:"interval"`
	Temperature2m *float64 `json:"temperature_2m"`
	WindSpeed10m  *float64 `json:"wind_speed_10m"`
}

type HourlyUnits struct {
	Time               string `json:"time"`
	Temperature2m      string `json:"temperature_2m"`
	RelativeHumidity2m string `json:"relative_humidity_2m"`
	WindSpeed10m       string `json:"wind_speed_10m"`
}

// Hourly holds the parallel hourly series. Series lengths are independent and
// any element may be null. Humidity is reported as whole percents but decoded
// as float64 so 50.0 is accepted too.
type Hourly struct {
	Time               []string   `json:"time"`
	Temperature2m      []*float64 `json:"temperature_2m"`
	RelativeHumidity2m []*float64 `json:"relative_humidity_2m"`
	WindSpeed10m       []*float64 `json:"wind_speed_10m"`
}

// ForecastRequest selects which maxima to compute.
type ForecastRequest struct {
	IncludeTemperature bool
	IncludeHumidity    bool
	IncludeWindSpeed   bool
}

// Date is a calendar day serialized as YYYY-MM-DD.
type Date struct {
	time.Time
}

// DateOf returns the calendar day of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return &time.ParseError{Layout: dateLayout, Value: string(b)}
	}
	parsed, err := ParseDate(string(b[1 : len(b)-1]))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Summary is the computed forecast returned to callers. A nil maximum means
// the metric was not requested or had no data.
type Summary struct {
	Date           Date     `json:"date"`
	MaxTemperature *float64 `json:"maxTemperature"`
	MaxHumidity    *float64 `json:"maxHumidity"`
	MaxWindSpeed   *float64 `json:"maxWindSpeed"`
}

// ForecastRecord is a persisted Summary. ID and CreatedAt are assigned by the store.
type ForecastRecord struct {
	ID             string    `json:"id"`
	ForecastDate   Date      `json:"forecastDate"`
	MaxTemperature *float64  `json:"maxTemperature"`
	MaxHumidity    *float64  `json:"maxHumidity"`
	MaxWindSpeed   *float64  `json:"maxWindSpeed"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (s Summary) Record() ForecastRecord {
	return ForecastRecord{
		ForecastDate:   s.Date,
		MaxTemperature: s.MaxTemperature,
		MaxHumidity:    s.MaxHumidity,
		MaxWindSpeed:   s.MaxWindSpeed,
	}
}
