package geo

import (
	"fmt"
	"sort"
	"time"
)

// HourlyPayload mirrors the archive API response shape: parallel hourly
// arrays indexed by the time column.
type HourlyPayload struct {
	Hourly HourlyBlock `json:"hourly"`
}

// HourlyBlock holds the hourly variable arrays. Any variable may be shorter
// than the time column when the upstream model lacks coverage; missing
// positions read as zero.
type HourlyBlock struct {
	Time         []string  `json:"time"`
	Temperature  []float64 `json:"temperature_2m"`
	Humidity     []float64 `json:"relative_humidity_2m"`
	Rain         []float64 `json:"rain"`
	CloudCover   []float64 `json:"cloud_cover_high"`
	SoilMoisture []float64 `json:"soil_moisture_100_to_255cm"`
	SoilTemp     []float64 `json:"soil_temperature_100_to_255cm"`
}

// hourlyTimeLayouts covers the archive API's minute-resolution stamps and
// the second-resolution stamps some mirrors return.
var hourlyTimeLayouts = []string{"2006-01-02T15:04", "2006-01-02T15:04:05"}

type hourlyRow struct {
	at           time.Time
	temperature  float64
	humidity     float64
	rain         float64
	cloudCover   float64
	soilMoisture float64
	soilTemp     float64
}

func (b HourlyBlock) rows() []hourlyRow {
	rows := make([]hourlyRow, 0, len(b.Time))
	for i, stamp := range b.Time {
		at, err := parseHourlyTime(stamp)
		if err != nil {
			continue
		}
		rows = append(rows, hourlyRow{
			at:           at,
			temperature:  valueAt(b.Temperature, i),
			humidity:     valueAt(b.Humidity, i),
			rain:         valueAt(b.Rain, i),
			cloudCover:   valueAt(b.CloudCover, i),
			soilMoisture: valueAt(b.SoilMoisture, i),
			soilTemp:     valueAt(b.SoilTemp, i),
		})
	}
	return rows
}

func parseHourlyTime(stamp string) (time.Time, error) {
	for _, layout := range hourlyTimeLayouts {
		if at, err := time.Parse(layout, stamp); err == nil {
			return at, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized hourly timestamp %q", stamp)
}

func valueAt(values []float64, i int) float64 {
	if i < len(values) {
		return values[i]
	}
	return 0
}

// AggregateWeather collapses an hourly archive payload into the daily
// series the overlay renders: per-day means for every variable except rain,
// which is summed. An empty payload yields the zero series, which callers
// treat as "no live data".
func AggregateWeather(payload HourlyPayload) WeatherSeries {
	rows := payload.Hourly.rows()
	if len(rows) == 0 {
		return WeatherSeries{}
	}

	type dayAccum struct {
		count        int
		temperature  float64
		humidity     float64
		rain         float64
		cloudCover   float64
		soilMoisture float64
		soilTemp     float64
	}
	byDay := make(map[string]*dayAccum)
	for _, row := range rows {
		day := row.at.Format("2006-01-02")
		acc := byDay[day]
		if acc == nil {
			acc = &dayAccum{}
			byDay[day] = acc
		}
		acc.count++
		acc.temperature += row.temperature
		acc.humidity += row.humidity
		acc.rain += row.rain
		acc.cloudCover += row.cloudCover
		acc.soilMoisture += row.soilMoisture
		acc.soilTemp += row.soilTemp
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	series := WeatherSeries{Seasonal: make(map[string][]SeasonStats)}
	dates := make([]time.Time, 0, len(days))
	for _, day := range days {
		acc := byDay[day]
		n := float64(acc.count)
		date, _ := time.Parse("2006-01-02", day)
		dates = append(dates, date)
		series.Time = append(series.Time, day+"T00:00:00")
		series.Temperature = append(series.Temperature, round2(acc.temperature/n))
		series.Humidity = append(series.Humidity, round2(acc.humidity/n))
		series.Rain = append(series.Rain, round2(acc.rain))
		series.CloudCover = append(series.CloudCover, round2(acc.cloudCover/n))
		series.SoilMoisture = append(series.SoilMoisture, round2(acc.soilMoisture/n))
		series.SoilTemp = append(series.SoilTemp, round2(acc.soilTemp/n))
	}

	years := map[int]bool{}
	for _, date := range dates {
		years[date.Year()] = true
	}
	yearList := make([]int, 0, len(years))
	for year := range years {
		yearList = append(yearList, year)
	}
	sort.Ints(yearList)

	for _, window := range SeasonWindows {
		var windowStats []SeasonStats
		for _, year := range yearList {
			stats, ok := seasonStatsForYear(window, year, dates, series)
			if ok {
				windowStats = append(windowStats, stats)
			}
		}
		if len(windowStats) > 0 {
			series.Seasonal[window.Name] = windowStats
		}
	}

	series.AvgTemperature = round2(meanOf(series.Temperature))
	series.AvgCloudiness = round2(meanOf(series.CloudCover))
	series.TotalRain = round2(sumOf(series.Rain))
	return series
}

func seasonStatsForYear(window Window, year int, dates []time.Time, s WeatherSeries) (SeasonStats, bool) {
	filtered := make([]time.Time, 0, len(dates))
	idx := make([]int, 0, len(dates))
	for i, date := range dates {
		if date.Year() == year {
			filtered = append(filtered, date)
			idx = append(idx, i)
		}
	}
	sub := WeatherSeries{}
	for _, i := range idx {
		sub.Temperature = append(sub.Temperature, s.Temperature[i])
		sub.Humidity = append(sub.Humidity, s.Humidity[i])
		sub.Rain = append(sub.Rain, s.Rain[i])
		sub.CloudCover = append(sub.CloudCover, s.CloudCover[i])
		sub.SoilMoisture = append(sub.SoilMoisture, s.SoilMoisture[i])
		sub.SoilTemp = append(sub.SoilTemp, s.SoilTemp[i])
	}
	return seasonStats(window, year, filtered, sub)
}

// FeatureRow holds the model features for one year, keyed by the trained
// column names.
type FeatureRow struct {
	Year   int
	Values map[string]float64
}

// phaseMetrics is the per-phase column stem order the model was trained on.
var phaseMetrics = []string{
	"avg_day_temp",
	"min_day_temp",
	"max_day_temp",
	"avg_soil_moisture_100_to_255cm",
	"sum_rain",
	"avg_temperature_soil",
	"avg_cloud_cover_high",
	"gtd",
}

// FeatureColumns returns the full model feature column order. The first two
// columns come from the embeddings table; the rest are phase aggregates.
func FeatureColumns() []string {
	columns := []string{"year", "embeddings"}
	for _, window := range PhaseWindows {
		for _, metric := range phaseMetrics {
			columns = append(columns, metric+"_"+window.Name)
		}
	}
	return columns
}

// PhaseFeatures aggregates hourly weather into per-year growth-phase
// features. Phases with no coverage contribute no columns; the model layer
// zero-fills absent columns. gtd is the hydrothermal coefficient: rain sum
// over a tenth of the accumulated above-10° temperature.
func PhaseFeatures(payload HourlyPayload) []FeatureRow {
	rows := payload.Hourly.rows()
	if len(rows) == 0 {
		return nil
	}

	byYear := make(map[int][]hourlyRow)
	for _, row := range rows {
		byYear[row.at.Year()] = append(byYear[row.at.Year()], row)
	}
	years := make([]int, 0, len(byYear))
	for year := range byYear {
		years = append(years, year)
	}
	sort.Ints(years)

	features := make([]FeatureRow, 0, len(years))
	for _, year := range years {
		row := FeatureRow{Year: year, Values: make(map[string]float64)}
		for _, window := range PhaseWindows {
			var (
				count            int
				tempSum, rainSum float64
				minTemp, maxTemp float64
				soilMoistSum     float64
				soilTempSum      float64
				cloudSum         float64
				warmTemp         float64
			)
			for _, hr := range byYear[year] {
				if !window.Contains(hr.at.Format("01-02")) {
					continue
				}
				if count == 0 {
					minTemp, maxTemp = hr.temperature, hr.temperature
				} else {
					if hr.temperature < minTemp {
						minTemp = hr.temperature
					}
					if hr.temperature > maxTemp {
						maxTemp = hr.temperature
					}
				}
				count++
				tempSum += hr.temperature
				rainSum += hr.rain
				soilMoistSum += hr.soilMoisture
				soilTempSum += hr.soilTemp
				cloudSum += hr.cloudCover
				if hr.temperature > 10 {
					warmTemp += hr.temperature
				}
			}
			if count == 0 {
				continue
			}
			n := float64(count)
			gtd := 0.0
			if warmTemp != 0 {
				gtd = rainSum / (0.1 * warmTemp)
			}
			row.Values["avg_day_temp_"+window.Name] = tempSum / n
			row.Values["min_day_temp_"+window.Name] = minTemp
			row.Values["max_day_temp_"+window.Name] = maxTemp
			row.Values["avg_soil_moisture_100_to_255cm_"+window.Name] = soilMoistSum / n
			row.Values["sum_rain_"+window.Name] = rainSum
			row.Values["avg_temperature_soil_"+window.Name] = soilTempSum / n
			row.Values["avg_cloud_cover_high_"+window.Name] = cloudSum / n
			row.Values["gtd_"+window.Name] = gtd
		}
		features = append(features, row)
	}
	return features
}
